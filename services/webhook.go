package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smartkasa/kasapay/models"
	"github.com/smartkasa/kasapay/utils"
	"gorm.io/gorm"
)

// ProviderCallback is the parsed body of an inbound provider callback
type ProviderCallback struct {
	OrderID string                 `json:"order_id"`
	Status  string                 `json:"status"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// CallbackResult reports what the reconciler did with a callback
type CallbackResult struct {
	PaymentID  uint   `json:"payment_id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	Applied    bool   `json:"applied"`
}

// WebhookService verifies inbound provider callbacks and reconciles their
// verdicts into local payment state. Delivery order is not guaranteed;
// correctness comes from idempotent status comparison, not ordering.
type WebhookService struct {
	db          *gorm.DB
	provider    PaymentProvider
	crm         CRMProvider
	metrics     *utils.PaymentMetrics
	notifyEmail string
}

// NewWebhookService creates a WebhookService. crm may be nil; notifyEmail
// may be empty to disable email notifications.
func NewWebhookService(db *gorm.DB, provider PaymentProvider, crm CRMProvider,
	metrics *utils.PaymentMetrics, notifyEmail string) *WebhookService {
	return &WebhookService{
		db:          db,
		provider:    provider,
		crm:         crm,
		metrics:     metrics,
		notifyEmail: notifyEmail,
	}
}

// HandleCallback authenticates and applies one provider callback. The
// signature is verified over the raw body bytes before any parsing or state
// lookup. Replaying a callback with the same external id and status is a
// no-op yielding the same end state.
func (s *WebhookService) HandleCallback(ctx context.Context, body []byte, signature string) (*CallbackResult, error) {
	if !s.provider.VerifySignature(body, signature) {
		utils.LogWarn("Webhook rejected: invalid signature")
		s.recordWebhook("signature_invalid")
		return nil, utils.SignatureInvalidErr("invalid webhook signature", nil)
	}

	var callback ProviderCallback
	if err := json.Unmarshal(body, &callback); err != nil {
		s.recordWebhook("malformed")
		return nil, utils.ValidationErr("malformed callback body", err)
	}
	if callback.OrderID == "" {
		s.recordWebhook("malformed")
		return nil, utils.ValidationErr("callback is missing order_id", nil)
	}
	utils.LogInfo("Received provider callback: order %s, status %s", callback.OrderID, callback.Status)

	var payment models.Payment
	if err := s.db.Preload("Customer").Where("external_id = ?", callback.OrderID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordWebhook("not_found")
			return nil, utils.NotFoundErr(
				fmt.Sprintf("no payment for external order %s", callback.OrderID), nil)
		}
		return nil, utils.InternalErr("failed to load payment for callback", err)
	}

	newStatus := mapProviderStatus(callback.Status)
	if newStatus == "" {
		// An unrecognized status must never silently downgrade known
		// progress; log and leave the payment untouched.
		utils.LogWarn("Unrecognized provider status %q for payment %d, leaving status %q",
			callback.Status, payment.ID, payment.Status)
		s.recordWebhook("unrecognized_status")
		return &CallbackResult{
			PaymentID:  payment.ID,
			ExternalID: callback.OrderID,
			Status:     payment.Status,
			Applied:    false,
		}, nil
	}

	if payment.Status == newStatus {
		// Replay of an already-applied callback.
		utils.LogInfo("Callback replay for payment %d (status %s), no-op", payment.ID, newStatus)
		s.recordWebhook("replay")
		return &CallbackResult{
			PaymentID:  payment.ID,
			ExternalID: callback.OrderID,
			Status:     payment.Status,
			Applied:    false,
		}, nil
	}

	if payment.Status != models.PaymentStatusPending {
		// Out-of-order or late delivery against settled state.
		utils.LogWarn("Ignoring transition %s -> %s for payment %d",
			payment.Status, newStatus, payment.ID)
		s.recordWebhook("ignored")
		return &CallbackResult{
			PaymentID:  payment.ID,
			ExternalID: callback.OrderID,
			Status:     payment.Status,
			Applied:    false,
		}, nil
	}

	previous := payment.Status
	if err := s.db.Model(&payment).Updates(map[string]interface{}{
		"status":        newStatus,
		"callback_data": string(body),
	}).Error; err != nil {
		return nil, utils.InternalErr("failed to apply status transition", err)
	}
	payment.Status = newStatus
	if s.metrics != nil {
		s.metrics.RecordTransition(previous, newStatus)
	}
	s.recordWebhook("applied")
	utils.LogInfo("Payment %d transitioned %s -> %s", payment.ID, previous, newStatus)

	if newStatus == models.PaymentStatusApproved {
		s.onApproved(ctx, &payment)
	}

	return &CallbackResult{
		PaymentID:  payment.ID,
		ExternalID: callback.OrderID,
		Status:     payment.Status,
		Applied:    true,
	}, nil
}

// onApproved runs the best-effort side effects of an approval. Failures are
// logged and never revert the transition.
func (s *WebhookService) onApproved(ctx context.Context, payment *models.Payment) {
	if s.crm != nil {
		externalID := ""
		if payment.ExternalID != nil {
			externalID = *payment.ExternalID
		}
		dealID, err := s.crm.CreateDeal(ctx, DealFields{
			Title:     fmt.Sprintf("Payment %s", externalID),
			Amount:    payment.TotalSum,
			Currency:  "UAH",
			ContactID: payment.Customer.CrmID,
			Comments:  fmt.Sprintf("Installment order %s for store order %s", externalID, payment.StoreOrderID),
		})
		if err != nil {
			utils.LogWarn("CRM deal creation failed for payment %d: %v", payment.ID, err)
			if s.metrics != nil {
				s.metrics.RecordCRMError()
			}
		} else {
			if err := s.db.Model(payment).Update("crm_deal_id", dealID).Error; err != nil {
				utils.LogWarn("Failed to persist CRM deal id for payment %d: %v", payment.ID, err)
			}
		}
	}

	if s.notifyEmail != "" {
		if err := utils.SendPaymentApprovedEmail(s.notifyEmail, payment.StoreOrderID, payment.TotalSum); err != nil {
			utils.LogWarn("Approval notification failed for payment %d: %v", payment.ID, err)
		}
	}
}

func (s *WebhookService) recordWebhook(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordWebhook(outcome)
	}
}

// mapProviderStatus translates a provider order status into the local
// payment status. An empty result means the status is not recognized.
func mapProviderStatus(providerStatus string) string {
	switch providerStatus {
	case ProviderStatusApproved:
		return models.PaymentStatusApproved
	case ProviderStatusRejected:
		return models.PaymentStatusRejected
	case ProviderStatusWaitingStoreConfirm:
		return models.PaymentStatusWaitingStoreConfirm
	default:
		return ""
	}
}
