package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smartkasa/kasapay/config"
	"github.com/smartkasa/kasapay/utils"
)

// Provider order statuses as delivered in callbacks and status queries
const (
	ProviderStatusApproved            = "APPROVED"
	ProviderStatusRejected            = "REJECTED"
	ProviderStatusWaitingStoreConfirm = "WAITING_FOR_STORE_CONFIRM"
)

// InvoiceData identifies the fiscal document behind a payment
type InvoiceData struct {
	Date    string `json:"date" binding:"required"`
	Number  string `json:"number" binding:"required"`
	PointID int    `json:"point_id"`
	Source  string `json:"source"`
}

// AvailableProgram describes an installment program offered to the client
type AvailableProgram struct {
	AvailablePartsCount []int  `json:"available_parts_count"`
	Type                string `json:"type"`
}

// ProviderProduct is one priced line in the provider's order format
type ProviderProduct struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
}

// ProviderOrderRequest is the outbound order payload. Sums always come from
// the server-side calculation, never from the client.
type ProviderOrderRequest struct {
	StoreOrderID      string             `json:"store_order_id"`
	ClientPhone       string             `json:"client_phone"`
	TotalSum          float64            `json:"total_sum"`
	Invoice           InvoiceData        `json:"invoice"`
	AvailablePrograms []AvailableProgram `json:"available_programs"`
	Products          []ProviderProduct  `json:"products"`
	ResultCallback    string             `json:"result_callback"`
}

// ProviderOrderResult is the provider's answer to an order creation
type ProviderOrderResult struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// PaymentProvider is the deferred-payment API capability used by the saga.
// The gateway never retries; retry policy belongs to the caller.
type PaymentProvider interface {
	CreateOrder(ctx context.Context, order ProviderOrderRequest) (*ProviderOrderResult, error)
	GetOrderStatus(ctx context.Context, externalID string) (string, error)
	ConfirmStore(ctx context.Context, externalID string, confirmed bool) error
	VerifySignature(body []byte, signature string) bool
}

// MonobankClient signs and sends requests to the Monobank partner
// installments API. Stateless apart from credentials.
type MonobankClient struct {
	storeID     string
	storeSecret string
	baseURL     string
	httpClient  *http.Client
}

// NewMonobankClient creates a MonobankClient from the application config
func NewMonobankClient(cfg *config.Config) *MonobankClient {
	return &MonobankClient{
		storeID:     cfg.MonoStoreID,
		storeSecret: cfg.MonoStoreSecret,
		baseURL:     strings.TrimRight(cfg.MonoBaseURL, "/"),
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Sign computes the base64 HMAC-SHA256 of the exact body bytes with the
// store secret
func (m *MonobankClient) Sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(m.storeSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an inbound callback signature against the raw body
// bytes using a constant-time comparison
func (m *MonobankClient) VerifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := m.Sign(body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (m *MonobankClient) do(ctx context.Context, method, endpoint string, payload interface{}, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return utils.InternalErr("failed to encode provider request", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return utils.InternalErr("failed to build provider request", err)
	}
	// The signature covers the exact bytes sent
	req.Header.Set("store-id", m.storeID)
	req.Header.Set("signature", m.Sign(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return utils.ProviderUnavailableErr("payment provider request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return utils.ProviderUnavailableErr("failed to read provider response", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return utils.ProviderUnavailableErr(
			fmt.Sprintf("payment provider returned status %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return utils.ProviderRejectedErr(
			fmt.Sprintf("payment provider rejected the request with status %d: %s",
				resp.StatusCode, strings.TrimSpace(string(respBody))), nil)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return utils.ProviderUnavailableErr("failed to decode provider response", err)
		}
	}
	return nil
}

// CreateOrder submits a new installment order
func (m *MonobankClient) CreateOrder(ctx context.Context, order ProviderOrderRequest) (*ProviderOrderResult, error) {
	var result ProviderOrderResult
	if err := m.do(ctx, http.MethodPost, "/api/order/create", order, &result); err != nil {
		return nil, err
	}
	if result.OrderID == "" {
		return nil, utils.ProviderUnavailableErr("payment provider returned no order id", nil)
	}
	utils.LogInfo("Provider order created: %s (status %s)", result.OrderID, result.Status)
	return &result, nil
}

// GetOrderStatus queries the current provider-side status of an order
func (m *MonobankClient) GetOrderStatus(ctx context.Context, externalID string) (string, error) {
	var result struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	}
	endpoint := fmt.Sprintf("/api/order/%s/status", externalID)
	if err := m.do(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return "", err
	}
	return result.Status, nil
}

// ConfirmStore reports the store-side confirmation verdict for an order
func (m *MonobankClient) ConfirmStore(ctx context.Context, externalID string, confirmed bool) error {
	payload := map[string]interface{}{
		"order_id":  externalID,
		"confirmed": confirmed,
	}
	return m.do(ctx, http.MethodPost, "/api/order/confirm", payload, nil)
}
