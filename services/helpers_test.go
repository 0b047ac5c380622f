package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"

	"github.com/smartkasa/kasapay/config"
	"github.com/smartkasa/kasapay/models"
	"github.com/smartkasa/kasapay/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testPhoneRule = utils.PhoneRule{Prefix: "+380", Length: 13}

var testDBCounter int

// newTestDB opens a fresh in-memory database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBCounter)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.MigrateModels(db))
	return db
}

// seedCatalog inserts the reference products used across tests
func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	products := []models.Product{
		{ID: 1, Name: "TV", SKU: "TV-001", Price: 25000, IsActive: true},
		{ID: 2, Name: "Laptop", SKU: "LAP-001", Price: 45000, IsActive: true},
		{ID: 3, Name: "Old Phone", SKU: "PH-OLD", Price: 3000, IsActive: false},
		{ID: 4, Name: "Headphones", SKU: "HP-001", Price: 8500, IsActive: true},
	}
	// GORM drops the zero-value IsActive:false on insert because the column
	// has default:true (and RETURNING overwrites the structs afterwards), so
	// record the inactive IDs first and flip the flag explicitly.
	var inactive []uint
	for _, p := range products {
		if !p.IsActive {
			inactive = append(inactive, p.ID)
		}
	}
	require.NoError(t, db.Create(&products).Error)
	if len(inactive) > 0 {
		require.NoError(t, db.Model(&models.Product{}).
			Where("id IN ?", inactive).Update("is_active", false).Error)
	}
}

// fakeProvider is an in-memory PaymentProvider for orchestrator and
// reconciler tests
type fakeProvider struct {
	mu sync.Mutex

	secret string

	createResult *ProviderOrderResult
	createErr    error
	createCalls  []ProviderOrderRequest

	statusResult string
	statusErr    error

	confirmErr   error
	confirmCalls []bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		secret:       "test-secret",
		createResult: &ProviderOrderResult{OrderID: "ext-1", Status: "CREATED"},
	}
}

func (f *fakeProvider) CreateOrder(_ context.Context, order ProviderOrderRequest) (*ProviderOrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, order)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResult, nil
}

func (f *fakeProvider) GetOrderStatus(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.statusResult, nil
}

func (f *fakeProvider) ConfirmStore(_ context.Context, _ string, confirmed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmCalls = append(f.confirmCalls, confirmed)
	return f.confirmErr
}

func (f *fakeProvider) VerifySignature(body []byte, signature string) bool {
	return hmac.Equal([]byte(f.sign(body)), []byte(signature))
}

func (f *fakeProvider) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(f.secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// fakeCRM records calls and optionally fails everything
type fakeCRM struct {
	mu sync.Mutex

	failAll bool

	contacts     map[string]string
	nextID       int
	createdDeals []DealFields
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{contacts: map[string]string{}, nextID: 100}
}

func (f *fakeCRM) CreateContact(_ context.Context, fields ContactFields) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return "", utils.CRMFailureErr("crm down", nil)
	}
	f.nextID++
	id := fmt.Sprintf("%d", f.nextID)
	f.contacts[fields.Phone] = id
	return id, nil
}

func (f *fakeCRM) UpdateContact(_ context.Context, _ string, _ ContactFields) error {
	if f.failAll {
		return utils.CRMFailureErr("crm down", nil)
	}
	return nil
}

func (f *fakeCRM) CreateDeal(_ context.Context, fields DealFields) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return "", utils.CRMFailureErr("crm down", nil)
	}
	f.createdDeals = append(f.createdDeals, fields)
	return "deal-1", nil
}

func (f *fakeCRM) FindContactByPhone(_ context.Context, phone string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return "", utils.CRMFailureErr("crm down", nil)
	}
	return f.contacts[phone], nil
}
