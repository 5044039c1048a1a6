package dto

import (
	"github.com/spec-kit/maintenance-service/internal/ai"
	"github.com/spec-kit/maintenance-service/internal/service"
)

// CreateSubscriptionRequest subscribes a client. ClientID and SecretID are
// the integration credentials.
type CreateSubscriptionRequest struct {
	ClientID      string         `json:"clientId"`
	SecretID      string         `json:"secretId"`
	UserID        string         `json:"userId"`
	Email         string         `json:"email"`
	Plan          string         `json:"plan"`
	BillingCycle  string         `json:"billingCycle"`
	AutoRenew     *bool          `json:"autoRenew"`
	PaymentMethod string         `json:"paymentMethod"`
	Metadata      map[string]any `json:"metadata"`
}

// ToInput maps the request onto the service input.
func (r CreateSubscriptionRequest) ToInput() service.SubscriptionInput {
	return service.SubscriptionInput{
		ClientID:      r.ClientID,
		SecretID:      r.SecretID,
		UserID:        r.UserID,
		Email:         r.Email,
		Plan:          r.Plan,
		BillingCycle:  r.BillingCycle,
		AutoRenew:     r.AutoRenew,
		PaymentMethod: r.PaymentMethod,
		Metadata:      r.Metadata,
	}
}

// UpdateSubscriptionRequest edits owner fields.
type UpdateSubscriptionRequest struct {
	Email         *string        `json:"email"`
	AutoRenew     *bool          `json:"autoRenew"`
	PaymentMethod *string        `json:"paymentMethod"`
	Metadata      map[string]any `json:"metadata"`
}

// ToInput maps the request onto the service input.
func (r UpdateSubscriptionRequest) ToInput() service.SubscriptionUpdate {
	return service.SubscriptionUpdate{
		Email:         r.Email,
		AutoRenew:     r.AutoRenew,
		PaymentMethod: r.PaymentMethod,
		Metadata:      r.Metadata,
	}
}

// PlanRequest names a new plan.
type PlanRequest struct {
	Plan string `json:"plan"`
}

// BillingCycleRequest names a new billing cycle.
type BillingCycleRequest struct {
	BillingCycle string `json:"billingCycle"`
}

// PaymentRequest is shared by payment create, process and initiate.
type PaymentRequest struct {
	SubscriptionID string  `json:"subscriptionId"`
	Amount         float64 `json:"amount"`
	PaymentMethod  string  `json:"paymentMethod"`
	Currency       string  `json:"currency"`
	Description    string  `json:"description"`
	PhoneNumber    string  `json:"phoneNumber"`
	Email          string  `json:"email"`
	UserID         string  `json:"userId"`
}

// ToInput maps the request onto the service input.
func (r PaymentRequest) ToInput() service.PaymentInput {
	return service.PaymentInput{
		SubscriptionID: r.SubscriptionID,
		Amount:         r.Amount,
		PaymentMethod:  r.PaymentMethod,
		Currency:       r.Currency,
		Description:    r.Description,
		PhoneNumber:    r.PhoneNumber,
		Email:          r.Email,
		UserID:         r.UserID,
	}
}

// RefundRequest carries the refund reason.
type RefundRequest struct {
	Reason string `json:"reason"`
}

// TriageRequest describes an issue to triage.
type TriageRequest struct {
	Description string `json:"description"`
}

// ChatRequest is one chat turn with prior history.
type ChatRequest struct {
	Message string       `json:"message"`
	History []ai.Message `json:"history"`
}
