// Package payment holds the PayPack gateway client and the helpers used to
// reconcile its callbacks.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/maintenance-service/internal/config"
)

// ErrNotConfigured is returned when gateway credentials are missing.
var ErrNotConfigured = errors.New("PayPack API credentials not configured")

// InitiateRequest describes a charge to start at the gateway.
type InitiateRequest struct {
	Amount      float64
	Phone       string
	Email       string
	Description string
	Reference   string
}

// InitiateResponse is the gateway's answer to an initiated charge.
type InitiateResponse struct {
	TransactionID string
	RedirectURL   string
	Status        string
}

// Gateway starts charges with a payment provider.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
}

// PayPackClient calls the PayPack REST API.
type PayPackClient struct {
	httpClient  *http.Client
	apiURL      string
	apiKey      string
	secretKey   string
	merchantID  string
	callbackURL string
}

// NewPayPackClient builds a client with the gateway's 10 second timeout.
func NewPayPackClient(cfg config.PaymentConfig) *PayPackClient {
	return &PayPackClient{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		apiURL:      strings.TrimRight(cfg.APIURL, "/"),
		apiKey:      cfg.APIKey,
		secretKey:   cfg.SecretKey,
		merchantID:  cfg.ClientID,
		callbackURL: cfg.CallbackURL,
	}
}

// Initiate posts a transaction. The reference is echoed back in the
// callback and is the local payment id.
func (c *PayPackClient) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	if c.apiKey == "" || c.secretKey == "" {
		return nil, ErrNotConfigured
	}
	if c.callbackURL == "" || strings.HasPrefix(c.callbackURL, "http://localhost") {
		return nil, errors.New("PayPack callback URL is not configured or is using localhost")
	}

	payload := map[string]any{
		"amount":       int64(math.Round(req.Amount)),
		"email":        req.Email,
		"description":  req.Description,
		"merchant_id":  c.merchantID,
		"callback_url": c.callbackURL,
		"reference":    req.Reference,
	}
	if req.Phone != "" {
		payload["phone"] = req.Phone
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("PayPack API Error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var decoded struct {
		TransactionID    string `json:"transaction_id"`
		ID               string `json:"id"`
		RedirectURL      string `json:"redirect_url"`
		AuthorizationURL string `json:"authorization_url"`
		Status           string `json:"status"`
		Message          string `json:"message"`
	}
	_ = json.Unmarshal(raw, &decoded)

	if resp.StatusCode >= 300 {
		msg := decoded.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, fmt.Errorf("PayPack API Error: %s", msg)
	}

	out := &InitiateResponse{
		TransactionID: firstNonEmpty(decoded.TransactionID, decoded.ID, req.Reference),
		RedirectURL:   firstNonEmpty(decoded.RedirectURL, decoded.AuthorizationURL),
		Status:        firstNonEmpty(decoded.Status, "pending"),
	}
	return out, nil
}

// SecretKey returns the callback signing secret.
func (c *PayPackClient) SecretKey() string {
	return c.secretKey
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
