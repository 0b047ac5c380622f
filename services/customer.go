package services

import (
	"context"
	"errors"
	"strings"

	"github.com/smartkasa/kasapay/models"
	"github.com/smartkasa/kasapay/utils"
	"gorm.io/gorm"
)

// CustomerHints are optional attributes attached on first creation. They are
// never applied retroactively to an existing customer.
type CustomerHints struct {
	Email     string
	FirstName string
	LastName  string
}

// CustomerService resolves customers by phone, creating them on first
// sighting. CRM linkage is best-effort and never fails resolution.
type CustomerService struct {
	db        *gorm.DB
	crm       CRMProvider
	phoneRule utils.PhoneRule
}

// NewCustomerService creates a CustomerService. crm may be nil when no CRM
// is configured.
func NewCustomerService(db *gorm.DB, crm CRMProvider, phoneRule utils.PhoneRule) *CustomerService {
	return &CustomerService{db: db, crm: crm, phoneRule: phoneRule}
}

// ResolveOrCreate finds the customer for the given phone or creates one.
// Under concurrent first-time requests the unique index on phone guarantees
// a single row; a uniqueness violation on create means someone else just
// created it, so the row is re-fetched instead of surfacing the error.
func (s *CustomerService) ResolveOrCreate(ctx context.Context, phone string, hints CustomerHints) (*models.Customer, error) {
	if err := s.phoneRule.Validate(phone); err != nil {
		return nil, err
	}

	var customer models.Customer
	err := s.db.Where("phone = ?", phone).First(&customer).Error
	if err == nil {
		s.ensureCRMLink(ctx, &customer)
		return &customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.InternalErr("failed to look up customer", err)
	}

	customer = models.Customer{
		Phone:     phone,
		Email:     hints.Email,
		FirstName: hints.FirstName,
		LastName:  hints.LastName,
	}
	if err := s.db.Create(&customer).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost the race; the winner's row is the customer.
			if err := s.db.Where("phone = ?", phone).First(&customer).Error; err != nil {
				return nil, utils.InternalErr("failed to re-fetch customer after conflict", err)
			}
			s.ensureCRMLink(ctx, &customer)
			return &customer, nil
		}
		return nil, utils.InternalErr("failed to create customer", err)
	}
	utils.LogInfo("Customer created: %s (ID: %d)", customer.Phone, customer.ID)

	s.ensureCRMLink(ctx, &customer)
	return &customer, nil
}

// GetByID returns a customer by id
func (s *CustomerService) GetByID(id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundErr("customer not found", nil)
		}
		return nil, utils.InternalErr("failed to load customer", err)
	}
	return &customer, nil
}

// GetByPhone returns a customer by exact phone match
func (s *CustomerService) GetByPhone(phone string) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.Where("phone = ?", phone).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundErr("customer not found", nil)
		}
		return nil, utils.InternalErr("failed to load customer", err)
	}
	return &customer, nil
}

// Update applies an explicit customer update. Changing the phone to one that
// already exists yields a conflict.
func (s *CustomerService) Update(id uint, phone string, hints CustomerHints) (*models.Customer, error) {
	customer, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if phone != "" && phone != customer.Phone {
		if err := s.phoneRule.Validate(phone); err != nil {
			return nil, err
		}
		var existing models.Customer
		if err := s.db.Where("phone = ?", phone).First(&existing).Error; err == nil {
			return nil, utils.ConflictErr("customer with this phone already exists", nil)
		}
		customer.Phone = phone
	}
	if hints.Email != "" {
		customer.Email = hints.Email
	}
	if hints.FirstName != "" {
		customer.FirstName = hints.FirstName
	}
	if hints.LastName != "" {
		customer.LastName = hints.LastName
	}

	if err := s.db.Save(customer).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.ConflictErr("customer with this phone already exists", nil)
		}
		return nil, utils.InternalErr("failed to update customer", err)
	}
	return customer, nil
}

// List returns all customers
func (s *CustomerService) List() ([]models.Customer, error) {
	var customers []models.Customer
	if err := s.db.Order("id").Find(&customers).Error; err != nil {
		return nil, utils.InternalErr("failed to list customers", err)
	}
	return customers, nil
}

// ensureCRMLink attaches an external CRM contact reference to the customer.
// Failures are logged, never raised.
func (s *CustomerService) ensureCRMLink(ctx context.Context, customer *models.Customer) {
	if s.crm == nil || customer.CrmID != "" {
		return
	}

	contactID, err := s.crm.FindContactByPhone(ctx, customer.Phone)
	if err != nil {
		utils.LogWarn("CRM contact lookup failed for %s: %v", customer.Phone, err)
		return
	}
	if contactID == "" {
		contactID, err = s.crm.CreateContact(ctx, ContactFields{
			Phone:     customer.Phone,
			Email:     customer.Email,
			FirstName: customer.FirstName,
			LastName:  customer.LastName,
		})
		if err != nil {
			utils.LogWarn("CRM contact creation failed for %s: %v", customer.Phone, err)
			return
		}
	}

	customer.CrmID = contactID
	if err := s.db.Model(customer).Update("crm_id", contactID).Error; err != nil {
		utils.LogWarn("Failed to persist CRM id for customer %d: %v", customer.ID, err)
	}
}

// isUniqueViolation reports whether err is a unique constraint violation.
// Covers gorm's translated error plus the raw postgres and sqlite messages.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
