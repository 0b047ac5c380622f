package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/smartkasa/kasapay/models"
	"github.com/smartkasa/kasapay/utils"
	"gorm.io/gorm"
)

// PaymentRequest is the checkout-side request to create a payment. It carries
// product references and quantities only; all sums are calculated server-side.
type PaymentRequest struct {
	StoreOrderID      string               `json:"store_order_id" binding:"required"`
	ClientPhone       string               `json:"client_phone" binding:"required"`
	Invoice           InvoiceData          `json:"invoice" binding:"required"`
	AvailablePrograms []AvailableProgram   `json:"available_programs"`
	Products          []ProductItemRequest `json:"products" binding:"required"`
	ResultCallbackURL string               `json:"result_callback_url" binding:"required"`
}

// PaymentResponse describes a created (or re-fetched) payment
type PaymentResponse struct {
	PaymentID  uint             `json:"payment_id"`
	ExternalID *string          `json:"external_id,omitempty"`
	Status     string           `json:"status"`
	TotalSum   float64          `json:"total_sum"`
	Items      []CalculatedItem `json:"items"`
}

// ConfirmResult is the outcome of a store-side confirmation
type ConfirmResult struct {
	PaymentID uint   `json:"payment_id"`
	Confirmed bool   `json:"confirmed"`
	Status    string `json:"status"`
}

// StatusResult is the current local view of a payment
type StatusResult struct {
	PaymentID   uint    `json:"payment_id"`
	ExternalID  *string `json:"external_id"`
	Status      string  `json:"status"`
	IsConfirmed bool    `json:"is_confirmed"`
	TotalSum    float64 `json:"total_sum"`
}

// PaymentService sequences the payment creation saga: validate, price,
// resolve the customer, persist Payment and items atomically, call the
// provider, persist the external reference.
type PaymentService struct {
	db        *gorm.DB
	provider  PaymentProvider
	pricing   *PricingService
	customers *CustomerService
	metrics   *utils.PaymentMetrics
	phoneRule utils.PhoneRule
}

// NewPaymentService creates a PaymentService
func NewPaymentService(db *gorm.DB, provider PaymentProvider, pricing *PricingService,
	customers *CustomerService, metrics *utils.PaymentMetrics, phoneRule utils.PhoneRule) *PaymentService {
	return &PaymentService{
		db:        db,
		provider:  provider,
		pricing:   pricing,
		customers: customers,
		metrics:   metrics,
		phoneRule: phoneRule,
	}
}

// CreatePayment runs the saga. StoreOrderID acts as an idempotency key: a
// request for an already-seen store order returns the existing payment
// instead of creating a second one.
//
// A provider failure after persistence is returned as an error together with
// the persisted payment's response: the pending row without an external id is
// intentional recoverable state, retryable via RetryProvider.
func (s *PaymentService) CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	if req.StoreOrderID == "" {
		return nil, utils.ValidationErr("store_order_id is required", nil)
	}
	if err := s.phoneRule.Validate(req.ClientPhone); err != nil {
		return nil, err
	}
	if len(req.Products) == 0 {
		return nil, utils.ValidationErr("products list cannot be empty", nil)
	}

	// Saga re-entry for a known store order returns the existing payment.
	var existing models.Payment
	err := s.db.Preload("Items.Product").Where("store_order_id = ?", req.StoreOrderID).First(&existing).Error
	if err == nil {
		utils.LogInfo("Payment for store order %s already exists (ID: %d)", req.StoreOrderID, existing.ID)
		return paymentToResponse(&existing), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.InternalErr("failed to check for existing payment", err)
	}

	calc, err := s.pricing.Calculate(req.Products)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.ResolveOrCreate(ctx, req.ClientPhone, CustomerHints{})
	if err != nil {
		return nil, err
	}

	invoiceSnapshot, err := json.Marshal(req)
	if err != nil {
		return nil, utils.InternalErr("failed to snapshot payment request", err)
	}

	payment := models.Payment{
		StoreOrderID: req.StoreOrderID,
		CustomerID:   customer.ID,
		TotalSum:     calc.TotalSum,
		Status:       models.PaymentStatusPending,
		InvoiceData:  string(invoiceSnapshot),
	}

	// Payment and its items become visible together or not at all.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		items := make([]models.PaymentItem, 0, len(calc.Items))
		for _, line := range calc.Items {
			items = append(items, models.PaymentItem{
				PaymentID:  payment.ID,
				ProductID:  line.ProductID,
				CustomerID: customer.ID,
				Quantity:   line.Quantity,
				UnitPrice:  line.UnitPrice,
				TotalPrice: line.TotalPrice,
			})
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, utils.InternalErr("failed to persist payment", err)
	}
	utils.LogInfo("Payment persisted: ID %d, store order %s, total %.2f",
		payment.ID, payment.StoreOrderID, payment.TotalSum)

	response := &PaymentResponse{
		PaymentID: payment.ID,
		Status:    payment.Status,
		TotalSum:  payment.TotalSum,
		Items:     calc.Items,
	}

	result, err := s.provider.CreateOrder(ctx, s.buildProviderOrder(req, calc))
	if err != nil {
		// The pending row without an external id survives for a later retry.
		utils.LogError("Provider call failed for payment %d: %v", payment.ID, err)
		if s.metrics != nil {
			s.metrics.RecordProviderError(errorKind(err))
			s.metrics.RecordPaymentCreated(false, payment.TotalSum)
		}
		return response, err
	}

	payment.ExternalID = &result.OrderID
	if err := s.db.Model(&payment).Update("external_id", result.OrderID).Error; err != nil {
		return response, utils.InternalErr("failed to persist external order id", err)
	}
	response.ExternalID = payment.ExternalID
	if s.metrics != nil {
		s.metrics.RecordPaymentCreated(true, payment.TotalSum)
	}
	utils.LogInfo("Payment %d linked to provider order %s", payment.ID, result.OrderID)

	return response, nil
}

// RetryProvider re-invokes the provider for a pending payment whose earlier
// provider call failed, using the stored invoice snapshot. A payment that
// already has an external id is returned as-is.
func (s *PaymentService) RetryProvider(ctx context.Context, paymentID uint) (*PaymentResponse, error) {
	var payment models.Payment
	if err := s.db.Preload("Items.Product").First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundErr("payment not found", nil)
		}
		return nil, utils.InternalErr("failed to load payment", err)
	}

	if payment.ExternalID != nil {
		return paymentToResponse(&payment), nil
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, utils.ConflictErr(
			fmt.Sprintf("payment %d is %s, not retryable", payment.ID, payment.Status), nil)
	}

	var req PaymentRequest
	if err := json.Unmarshal([]byte(payment.InvoiceData), &req); err != nil {
		return nil, utils.InternalErr("failed to decode stored invoice snapshot", err)
	}

	calc := itemsToCalculation(&payment)
	result, err := s.provider.CreateOrder(ctx, s.buildProviderOrder(req, calc))
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordProviderError(errorKind(err))
		}
		return nil, err
	}

	if err := s.db.Model(&payment).Update("external_id", result.OrderID).Error; err != nil {
		return nil, utils.InternalErr("failed to persist external order id", err)
	}
	payment.ExternalID = &result.OrderID
	utils.LogInfo("Payment %d linked to provider order %s after retry", payment.ID, result.OrderID)

	return paymentToResponse(&payment), nil
}

// ConfirmPayment records the store-side confirmation verdict. Idempotent:
// repeating the same verdict yields the same state and no error.
func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentID uint, confirmed bool) (*ConfirmResult, error) {
	var payment models.Payment
	if err := s.db.First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundErr("payment not found", nil)
		}
		return nil, utils.InternalErr("failed to load payment", err)
	}

	// Only a repeat of an already-recorded verdict short-circuits. IsConfirmed
	// starts false, so a first rejection must still reach the provider.
	if payment.ConfirmedAt != nil && payment.IsConfirmed == confirmed {
		return &ConfirmResult{PaymentID: payment.ID, Confirmed: confirmed, Status: payment.Status}, nil
	}

	if payment.ExternalID != nil {
		if providerStatus, err := s.provider.GetOrderStatus(ctx, *payment.ExternalID); err != nil {
			utils.LogWarn("Provider status query failed for payment %d: %v", payment.ID, err)
		} else {
			utils.LogInfo("Provider status for payment %d before confirmation: %s", payment.ID, providerStatus)
		}
		if err := s.provider.ConfirmStore(ctx, *payment.ExternalID, confirmed); err != nil {
			if s.metrics != nil {
				s.metrics.RecordProviderError(errorKind(err))
			}
			return nil, err
		}
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"is_confirmed": confirmed, "confirmed_at": now}
	if confirmed {
		updates["status"] = models.PaymentStatusConfirmed
	}
	if err := s.db.Model(&payment).Updates(updates).Error; err != nil {
		return nil, utils.InternalErr("failed to record confirmation", err)
	}
	if confirmed && s.metrics != nil {
		s.metrics.RecordTransition(payment.Status, models.PaymentStatusConfirmed)
	}
	if confirmed {
		payment.Status = models.PaymentStatusConfirmed
	}
	payment.IsConfirmed = confirmed
	payment.ConfirmedAt = &now
	utils.LogInfo("Payment %d confirmation recorded: %v", payment.ID, confirmed)

	return &ConfirmResult{PaymentID: payment.ID, Confirmed: confirmed, Status: payment.Status}, nil
}

// GetPaymentStatus returns the local status for a payment id or external
// order id. A pending payment with a provider reference is additionally
// polled with a bounded timeout; poll failures degrade to the stored status.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, idOrExternal string) (*StatusResult, error) {
	payment, err := s.findByIDOrExternal(idOrExternal)
	if err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentStatusPending && payment.ExternalID != nil {
		pollCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		providerStatus, err := s.provider.GetOrderStatus(pollCtx, *payment.ExternalID)
		if err != nil {
			utils.LogWarn("Status poll failed for payment %d, serving local status: %v", payment.ID, err)
		} else if mapped := mapProviderStatus(providerStatus); mapped != "" && mapped != payment.Status {
			if err := s.db.Model(payment).Update("status", mapped).Error; err != nil {
				utils.LogError("Failed to persist polled status for payment %d: %v", payment.ID, err)
			} else {
				if s.metrics != nil {
					s.metrics.RecordTransition(payment.Status, mapped)
				}
				payment.Status = mapped
			}
		}
	}

	return &StatusResult{
		PaymentID:   payment.ID,
		ExternalID:  payment.ExternalID,
		Status:      payment.Status,
		IsConfirmed: payment.IsConfirmed,
		TotalSum:    payment.TotalSum,
	}, nil
}

func (s *PaymentService) findByIDOrExternal(idOrExternal string) (*models.Payment, error) {
	var payment models.Payment

	if id, err := strconv.ParseUint(idOrExternal, 10, 64); err == nil {
		if err := s.db.First(&payment, uint(id)).Error; err == nil {
			return &payment, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.InternalErr("failed to load payment", err)
		}
	}

	if err := s.db.Where("external_id = ?", idOrExternal).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundErr("payment not found", nil)
		}
		return nil, utils.InternalErr("failed to load payment", err)
	}
	return &payment, nil
}

// buildProviderOrder maps the request plus the server-side calculation into
// the provider's order format. Client-supplied sums never reach this point.
func (s *PaymentService) buildProviderOrder(req PaymentRequest, calc *Calculation) ProviderOrderRequest {
	products := make([]ProviderProduct, 0, len(calc.Items))
	for _, line := range calc.Items {
		products = append(products, ProviderProduct{
			Name:  line.Name,
			Count: line.Quantity,
			Sum:   line.TotalPrice,
		})
	}

	invoice := req.Invoice
	if invoice.Source == "" {
		invoice.Source = "INTERNET"
	}
	programs := req.AvailablePrograms
	for i := range programs {
		if programs[i].Type == "" {
			programs[i].Type = "payment_installments"
		}
	}

	return ProviderOrderRequest{
		StoreOrderID:      req.StoreOrderID,
		ClientPhone:       req.ClientPhone,
		TotalSum:          calc.TotalSum,
		Invoice:           invoice,
		AvailablePrograms: programs,
		Products:          products,
		ResultCallback:    req.ResultCallbackURL,
	}
}

func paymentToResponse(payment *models.Payment) *PaymentResponse {
	calc := itemsToCalculation(payment)
	return &PaymentResponse{
		PaymentID:  payment.ID,
		ExternalID: payment.ExternalID,
		Status:     payment.Status,
		TotalSum:   payment.TotalSum,
		Items:      calc.Items,
	}
}

func itemsToCalculation(payment *models.Payment) *Calculation {
	items := make([]CalculatedItem, 0, len(payment.Items))
	for _, item := range payment.Items {
		items = append(items, CalculatedItem{
			ProductID:  item.ProductID,
			Name:       item.Product.Name,
			SKU:        item.Product.SKU,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	return &Calculation{TotalSum: payment.TotalSum, Items: items}
}

func errorKind(err error) string {
	if appErr := utils.GetAppError(err); appErr != nil {
		return appErr.Kind
	}
	return "unknown"
}
