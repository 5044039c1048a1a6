package domain

import (
	"strings"
	"time"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanBasic        Plan = "basic"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

// BillingCycle is how often a subscription is charged.
type BillingCycle string

const (
	CycleWeekly  BillingCycle = "weekly"
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// Subscription and payment states.
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"

	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
	PaymentPaid      = "paid"

	InvoicePaid = "paid"
)

var pricing = map[Plan]map[BillingCycle]float64{
	PlanBasic:        {CycleWeekly: 9.99, CycleMonthly: 29.99, CycleYearly: 299.99},
	PlanProfessional: {CycleWeekly: 24.99, CycleMonthly: 79.99, CycleYearly: 799.99},
	PlanEnterprise:   {CycleWeekly: 49.99, CycleMonthly: 199.99, CycleYearly: 1999.99},
}

var planFeatures = map[Plan][]string{
	PlanBasic:        {"Dashboard", "Basic Reporting", "Email Support"},
	PlanProfessional: {"Dashboard", "Advanced Reporting", "Priority Support", "API Access", "Custom Branding"},
	PlanEnterprise:   {"All Professional Features", "Dedicated Support", "Custom Integration", "Training", "SLA"},
}

// ParsePlan lowercases s and checks it against the known plans.
func ParsePlan(s string) (Plan, bool) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	_, ok := pricing[p]
	return p, ok
}

// ParseBillingCycle lowercases s and checks it against the known cycles.
func ParseBillingCycle(s string) (BillingCycle, bool) {
	c := BillingCycle(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CycleWeekly, CycleMonthly, CycleYearly:
		return c, true
	}
	return c, false
}

// Price returns the USD price for plan and cycle.
func Price(plan Plan, cycle BillingCycle) (float64, bool) {
	byCycle, ok := pricing[plan]
	if !ok {
		return 0, false
	}
	amount, ok := byCycle[cycle]
	return amount, ok
}

// PlanFeatures returns a copy of the feature list for plan.
func PlanFeatures(plan Plan) []string {
	return append([]string(nil), planFeatures[plan]...)
}

// NextBillingDate returns the next charge date after from.
func NextBillingDate(from time.Time, cycle BillingCycle) time.Time {
	switch cycle {
	case CycleWeekly:
		return from.AddDate(0, 0, 7)
	case CycleYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Subscription is a client's paid plan.
type Subscription struct {
	ID              string         `json:"id"`
	ClientID        string         `json:"clientId"`
	Email           string         `json:"email"`
	Plan            Plan           `json:"plan"`
	BillingCycle    BillingCycle   `json:"billingCycle"`
	Amount          float64        `json:"amount"`
	Status          string         `json:"status"`
	PaymentStatus   string         `json:"paymentStatus"`
	StartDate       time.Time      `json:"startDate"`
	NextBillingDate time.Time      `json:"nextBillingDate"`
	CancelledAt     *time.Time     `json:"cancelledAt,omitempty"`
	CredentialHash  string         `json:"-"`
	Features        []string       `json:"features"`
	AutoRenew       bool           `json:"autoRenew"`
	PaymentMethod   string         `json:"paymentMethod,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Payment is a charge against a subscription.
type Payment struct {
	ID             string         `json:"id"`
	SubscriptionID string         `json:"subscriptionId"`
	Amount         float64        `json:"amount"`
	Currency       string         `json:"currency"`
	PaymentMethod  string         `json:"paymentMethod"`
	Status         string         `json:"status"`
	Description    string         `json:"description,omitempty"`
	TransactionID  string         `json:"transactionId,omitempty"`
	PaidAt         *time.Time     `json:"paidAt,omitempty"`
	FailureReason  string         `json:"failureReason,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Invoice is issued for each completed payment.
type Invoice struct {
	ID             string       `json:"id"`
	SubscriptionID string       `json:"subscriptionId"`
	InvoiceNumber  string       `json:"invoiceNumber"`
	Amount         float64      `json:"amount"`
	BillingCycle   BillingCycle `json:"billingCycle"`
	Period         string       `json:"period"`
	Status         string       `json:"status"`
	DueDate        time.Time    `json:"dueDate"`
	PaidAt         *time.Time   `json:"paidAt,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// PricingTable returns a copy of the plan price matrix.
func PricingTable() map[Plan]map[BillingCycle]float64 {
	out := make(map[Plan]map[BillingCycle]float64, len(pricing))
	for plan, byCycle := range pricing {
		inner := make(map[BillingCycle]float64, len(byCycle))
		for cycle, amount := range byCycle {
			inner[cycle] = amount
		}
		out[plan] = inner
	}
	return out
}
