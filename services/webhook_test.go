package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/smartkasa/kasapay/models"
	"github.com/smartkasa/kasapay/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type webhookFixture struct {
	db       *gorm.DB
	provider *fakeProvider
	crm      *fakeCRM
	webhooks *WebhookService
	payments *PaymentService
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	db := newTestDB(t)
	seedCatalog(t, db)
	provider := newFakeProvider()
	crm := newFakeCRM()
	customers := NewCustomerService(db, crm, testPhoneRule)
	payments := NewPaymentService(db, provider, NewPricingService(db), customers, nil, testPhoneRule)
	webhooks := NewWebhookService(db, provider, crm, nil, "")
	return &webhookFixture{db: db, provider: provider, crm: crm, webhooks: webhooks, payments: payments}
}

// createPendingPayment runs the saga so the payment under test carries a real
// external id and customer
func (f *webhookFixture) createPendingPayment(t *testing.T, storeOrderID string) *PaymentResponse {
	t.Helper()
	resp, err := f.payments.CreatePayment(context.Background(), makePaymentRequest(storeOrderID))
	require.NoError(t, err)
	require.NotNil(t, resp.ExternalID)
	return resp
}

// signedCallback builds a callback body plus its valid signature
func (f *webhookFixture) signedCallback(orderID, status string) ([]byte, string) {
	body, _ := json.Marshal(map[string]string{"order_id": orderID, "status": status})
	return body, f.provider.sign(body)
}

func (f *webhookFixture) paymentStatus(t *testing.T, id uint) string {
	t.Helper()
	var payment models.Payment
	require.NoError(t, f.db.First(&payment, id).Error)
	return payment.Status
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("approval transitions the payment and stores the raw body", func(t *testing.T) {
		f := newWebhookFixture(t)
		resp := f.createPendingPayment(t, "order-40")

		body, sig := f.signedCallback(*resp.ExternalID, ProviderStatusApproved)
		result, err := f.webhooks.HandleCallback(ctx, body, sig)
		require.NoError(t, err)
		assert.True(t, result.Applied)
		assert.Equal(t, models.PaymentStatusApproved, result.Status)

		var payment models.Payment
		require.NoError(t, f.db.First(&payment, resp.PaymentID).Error)
		assert.Equal(t, models.PaymentStatusApproved, payment.Status)
		assert.JSONEq(t, string(body), payment.CallbackData)
	})

	t.Run("replaying the same callback is a no-op", func(t *testing.T) {
		f := newWebhookFixture(t)
		resp := f.createPendingPayment(t, "order-41")

		body, sig := f.signedCallback(*resp.ExternalID, ProviderStatusApproved)
		_, err := f.webhooks.HandleCallback(ctx, body, sig)
		require.NoError(t, err)

		result, err := f.webhooks.HandleCallback(ctx, body, sig)
		require.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Equal(t, models.PaymentStatusApproved, result.Status)
		assert.Equal(t, models.PaymentStatusApproved, f.paymentStatus(t, resp.PaymentID))
	})

	t.Run("invalid signature mutates nothing", func(t *testing.T) {
		f := newWebhookFixture(t)
		resp := f.createPendingPayment(t, "order-42")

		body, _ := f.signedCallback(*resp.ExternalID, ProviderStatusApproved)
		for _, sig := range []string{"", "bogus", f.provider.sign([]byte("other body"))} {
			_, err := f.webhooks.HandleCallback(ctx, body, sig)
			require.Error(t, err)
			assert.True(t, utils.IsSignatureInvalid(err))
		}
		assert.Equal(t, models.PaymentStatusPending, f.paymentStatus(t, resp.PaymentID))
	})

	t.Run("signature covers the exact raw bytes", func(t *testing.T) {
		f := newWebhookFixture(t)
		resp := f.createPendingPayment(t, "order-43")

		body, sig := f.signedCallback(*resp.ExternalID, ProviderStatusApproved)
		tampered := append([]byte(nil), body...)
		tampered = append(tampered, ' ')
		_, err := f.webhooks.HandleCallback(ctx, tampered, sig)
		require.Error(t, err)
		assert.True(t, utils.IsSignatureInvalid(err))
	})

	t.Run("unknown external order is not found, not unauthorized", func(t *testing.T) {
		f := newWebhookFixture(t)

		body, sig := f.signedCallback("no-such-order", ProviderStatusApproved)
		_, err := f.webhooks.HandleCallback(ctx, body, sig)
		require.Error(t, err)
		assert.True(t, utils.IsNotFoundError(err))
		assert.False(t, utils.IsSignatureInvalid(err))
	})

	t.Run("malformed body with a valid signature is rejected", func(t *testing.T) {
		f := newWebhookFixture(t)

		body := []byte("{not json")
		_, err := f.webhooks.HandleCallback(ctx, body, f.provider.sign(body))
		require.Error(t, err)
		assert.True(t, utils.IsValidationError(err))

		body = []byte(`{"status":"APPROVED"}`)
		_, err = f.webhooks.HandleCallback(ctx, body, f.provider.sign(body))
		require.Error(t, err)
		assert.True(t, utils.IsValidationError(err))
	})

	t.Run("unrecognized status never downgrades the payment", func(t *testing.T) {
		f := newWebhookFixture(t)
		resp := f.createPendingPayment(t, "order-44")

		body, sig := f.signedCallback(*resp.ExternalID, "SOMETHING_NEW")
		result, err := f.webhooks.HandleCallback(ctx, body, sig)
		require.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Equal(t, models.PaymentStatusPending, f.paymentStatus(t, resp.PaymentID))
	})

	t.Run("late delivery against settled state is ignored", func(t *testing.T) {
		f := newWebhookFixture(t)
		resp := f.createPendingPayment(t, "order-45")

		body, sig := f.signedCallback(*resp.ExternalID, ProviderStatusApproved)
		_, err := f.webhooks.HandleCallback(ctx, body, sig)
		require.NoError(t, err)

		body, sig = f.signedCallback(*resp.ExternalID, ProviderStatusRejected)
		result, err := f.webhooks.HandleCallback(ctx, body, sig)
		require.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Equal(t, models.PaymentStatusApproved, f.paymentStatus(t, resp.PaymentID))
	})

	t.Run("each provider status maps to its local status", func(t *testing.T) {
		cases := map[string]string{
			ProviderStatusApproved:            models.PaymentStatusApproved,
			ProviderStatusRejected:            models.PaymentStatusRejected,
			ProviderStatusWaitingStoreConfirm: models.PaymentStatusWaitingStoreConfirm,
		}
		i := 0
		for providerStatus, localStatus := range cases {
			f := newWebhookFixture(t)
			resp := f.createPendingPayment(t, fmt.Sprintf("order-46-%d", i))
			i++

			body, sig := f.signedCallback(*resp.ExternalID, providerStatus)
			result, err := f.webhooks.HandleCallback(ctx, body, sig)
			require.NoError(t, err)
			assert.True(t, result.Applied)
			assert.Equal(t, localStatus, f.paymentStatus(t, resp.PaymentID))
		}
	})

	t.Run("approval opens a CRM deal against the customer contact", func(t *testing.T) {
		f := newWebhookFixture(t)
		resp := f.createPendingPayment(t, "order-47")

		body, sig := f.signedCallback(*resp.ExternalID, ProviderStatusApproved)
		_, err := f.webhooks.HandleCallback(ctx, body, sig)
		require.NoError(t, err)

		require.Len(t, f.crm.createdDeals, 1)
		deal := f.crm.createdDeals[0]
		assert.Equal(t, 42000.0, deal.Amount)
		assert.Equal(t, "UAH", deal.Currency)
		assert.NotEmpty(t, deal.ContactID)

		var payment models.Payment
		require.NoError(t, f.db.First(&payment, resp.PaymentID).Error)
		assert.Equal(t, "deal-1", payment.CrmDealID)
	})

	t.Run("CRM failure never reverts the transition", func(t *testing.T) {
		f := newWebhookFixture(t)
		resp := f.createPendingPayment(t, "order-48")
		f.crm.failAll = true

		body, sig := f.signedCallback(*resp.ExternalID, ProviderStatusApproved)
		result, err := f.webhooks.HandleCallback(ctx, body, sig)
		require.NoError(t, err)
		assert.True(t, result.Applied)
		assert.Equal(t, models.PaymentStatusApproved, f.paymentStatus(t, resp.PaymentID))
	})
}
