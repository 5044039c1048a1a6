// Package ai talks to the Gemini generateContent REST API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spec-kit/maintenance-service/internal/config"
)

// SystemInstruction prefixes every prompt.
const SystemInstruction = "You are the KAT (Kigali Apple Tech) AI Assistant for a Maintenance Management System (MMS)."

var (
	// ErrQuota means the model refused the call for rate or quota reasons.
	ErrQuota = errors.New("ai: quota exceeded")
	// ErrNotConfigured means no API key is set.
	ErrNotConfigured = errors.New("GEMINI_API_KEY is not configured")
)

// APIError is a non-quota failure reported by the model API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ai: status %d: %s", e.Status, e.Message)
}

// Message is one turn of a chat history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Model is the generative backend.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Chat(ctx context.Context, history []Message, message string) (string, error)
}

// Client calls Gemini over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

// NewClient builds a client from config.
func NewClient(cfg config.AIConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends a single-turn prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.send(ctx, []content{{Role: "user", Parts: []part{{Text: prompt}}}})
}

// Chat replays history then sends message. Roles other than "user" are
// sent as "model".
func (c *Client) Chat(ctx context.Context, history []Message, message string) (string, error) {
	contents := make([]content, 0, len(history)+1)
	for _, h := range history {
		role := "model"
		if h.Role == "user" {
			role = "user"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: h.Content}}})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: message}}})
	return c.send(ctx, contents)
}

func (c *Client) send(ctx context.Context, contents []content) (string, error) {
	if c.apiKey == "" || c.apiKey == "dummy_key" {
		return "", ErrNotConfigured
	}
	body, err := json.Marshal(generateRequest{Contents: contents})
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	var decoded generateResponse
	_ = json.Unmarshal(raw, &decoded)

	if resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if decoded.Error != nil && decoded.Error.Message != "" {
			msg = decoded.Error.Message
		}
		if IsQuota(resp.StatusCode, msg) {
			return "", fmt.Errorf("%w: %s", ErrQuota, msg)
		}
		return "", &APIError{Status: resp.StatusCode, Message: msg}
	}

	var out strings.Builder
	if len(decoded.Candidates) > 0 {
		for _, p := range decoded.Candidates[0].Content.Parts {
			out.WriteString(p.Text)
		}
	}
	return out.String(), nil
}

// IsQuota reports whether a status or message indicates a rate limit.
func IsQuota(status int, message string) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "429") || strings.Contains(lower, "quota")
}
