package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/smartkasa/kasapay/config"
	"github.com/smartkasa/kasapay/utils"
)

// ContactFields carries the vendor-neutral contact attributes
type ContactFields struct {
	Phone     string
	Email     string
	FirstName string
	LastName  string
}

// DealFields carries the vendor-neutral deal attributes
type DealFields struct {
	Title     string
	Amount    float64
	Currency  string
	ContactID string
	Comments  string
}

// CRMProvider is the capability the payment flow needs from a CRM. Every
// caller treats failures here as non-fatal. FindContactByPhone returns an
// empty id when no contact matches; that is not an error.
type CRMProvider interface {
	CreateContact(ctx context.Context, fields ContactFields) (string, error)
	UpdateContact(ctx context.Context, contactID string, fields ContactFields) error
	CreateDeal(ctx context.Context, fields DealFields) (string, error)
	FindContactByPhone(ctx context.Context, phone string) (string, error)
}

// NewCRMProvider selects the configured CRM implementation
func NewCRMProvider(cfg *config.Config) (CRMProvider, error) {
	switch cfg.CRMProvider {
	case "bitrix":
		if cfg.BitrixWebhookURL == "" {
			return nil, fmt.Errorf("BITRIX_WEBHOOK_URL is required for the bitrix CRM provider")
		}
		return NewBitrixProvider(cfg.BitrixWebhookURL), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown CRM provider: %s", cfg.CRMProvider)
	}
}

// BitrixProvider talks to the Bitrix24 REST API through an inbound webhook URL
type BitrixProvider struct {
	webhookURL string
	httpClient *http.Client
}

// NewBitrixProvider creates a BitrixProvider
func NewBitrixProvider(webhookURL string) *BitrixProvider {
	return &BitrixProvider{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *BitrixProvider) call(ctx context.Context, method string, params interface{}) (map[string]interface{}, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, utils.CRMFailureErr("failed to encode CRM request", err)
	}

	url := b.webhookURL + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, utils.CRMFailureErr("failed to build CRM request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, utils.CRMFailureErr("CRM request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, utils.CRMFailureErr(fmt.Sprintf("CRM returned status %d for %s", resp.StatusCode, method), nil)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, utils.CRMFailureErr("failed to decode CRM response", err)
	}
	return result, nil
}

// CreateContact creates a Bitrix24 contact and returns its id
func (b *BitrixProvider) CreateContact(ctx context.Context, fields ContactFields) (string, error) {
	contactData := map[string]interface{}{
		"NAME":      fields.FirstName,
		"LAST_NAME": fields.LastName,
		"PHONE":     []map[string]string{{"VALUE": fields.Phone, "VALUE_TYPE": "WORK"}},
	}
	if fields.Email != "" {
		contactData["EMAIL"] = []map[string]string{{"VALUE": fields.Email, "VALUE_TYPE": "WORK"}}
	}

	result, err := b.call(ctx, "crm.contact.add", map[string]interface{}{"fields": contactData})
	if err != nil {
		return "", err
	}
	id, ok := result["result"]
	if !ok {
		return "", utils.CRMFailureErr("CRM contact creation returned no id", nil)
	}
	return fmt.Sprintf("%v", id), nil
}

// UpdateContact updates an existing Bitrix24 contact
func (b *BitrixProvider) UpdateContact(ctx context.Context, contactID string, fields ContactFields) error {
	contactData := map[string]interface{}{}
	if fields.FirstName != "" {
		contactData["NAME"] = fields.FirstName
	}
	if fields.LastName != "" {
		contactData["LAST_NAME"] = fields.LastName
	}
	if fields.Email != "" {
		contactData["EMAIL"] = []map[string]string{{"VALUE": fields.Email, "VALUE_TYPE": "WORK"}}
	}

	_, err := b.call(ctx, "crm.contact.update", map[string]interface{}{
		"id":     contactID,
		"fields": contactData,
	})
	return err
}

// CreateDeal creates a Bitrix24 deal and returns its id
func (b *BitrixProvider) CreateDeal(ctx context.Context, fields DealFields) (string, error) {
	currency := fields.Currency
	if currency == "" {
		currency = "UAH"
	}
	dealData := map[string]interface{}{
		"TITLE":       fields.Title,
		"OPPORTUNITY": fields.Amount,
		"CURRENCY_ID": currency,
		"STAGE_ID":    "NEW",
		"COMMENTS":    fields.Comments,
	}
	if fields.ContactID != "" {
		dealData["CONTACT_ID"] = fields.ContactID
	}

	result, err := b.call(ctx, "crm.deal.add", map[string]interface{}{"fields": dealData})
	if err != nil {
		return "", err
	}
	id, ok := result["result"]
	if !ok {
		return "", utils.CRMFailureErr("CRM deal creation returned no id", nil)
	}
	return fmt.Sprintf("%v", id), nil
}

// FindContactByPhone looks up a Bitrix24 contact by phone. Returns an empty
// id when nothing matches.
func (b *BitrixProvider) FindContactByPhone(ctx context.Context, phone string) (string, error) {
	result, err := b.call(ctx, "crm.contact.list", map[string]interface{}{
		"filter": map[string]string{"PHONE": phone},
		"select": []string{"ID", "NAME", "LAST_NAME", "PHONE", "EMAIL"},
	})
	if err != nil {
		return "", err
	}

	contacts, ok := result["result"].([]interface{})
	if !ok || len(contacts) == 0 {
		return "", nil
	}
	first, ok := contacts[0].(map[string]interface{})
	if !ok {
		return "", nil
	}
	return fmt.Sprintf("%v", first["ID"]), nil
}
