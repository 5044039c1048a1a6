package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/payment"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

const (
	methodMobileMoney = "mobile_money"
	methodCard        = "card"
	gatewayCurrency   = "RWF"
	defaultCurrency   = "USD"
	invoiceDueDays    = 30
)

// Charger decides the outcome of a simulated charge.
type Charger interface {
	Charge() bool
}

// PaymentService records charges against subscriptions and reconciles
// gateway callbacks.
type PaymentService struct {
	payments      repository.PaymentRepository
	subscriptions repository.SubscriptionRepository
	invoices      repository.InvoiceRepository
	gateway       payment.Gateway
	simulator     Charger
	secret        string
	clock         Clock
	logger        *zap.Logger
}

// PaymentDependencies bundles collaborators for the payment service.
type PaymentDependencies struct {
	PaymentRepo      repository.PaymentRepository
	SubscriptionRepo repository.SubscriptionRepository
	InvoiceRepo      repository.InvoiceRepository
	Gateway          payment.Gateway
	Simulator        Charger
	CallbackSecret   string
	Clock            Clock
	Logger           *zap.Logger
}

// PaymentInput is the payload for creating or processing a payment.
type PaymentInput struct {
	SubscriptionID string
	Amount         float64
	PaymentMethod  string
	Currency       string
	Description    string
	PhoneNumber    string
	Email          string
	UserID         string
}

// NewPaymentService constructs the service.
func NewPaymentService(deps PaymentDependencies) *PaymentService {
	return &PaymentService{
		payments:      deps.PaymentRepo,
		subscriptions: deps.SubscriptionRepo,
		invoices:      deps.InvoiceRepo,
		gateway:       deps.Gateway,
		simulator:     deps.Simulator,
		secret:        deps.CallbackSecret,
		clock:         deps.Clock,
		logger:        nopLogger(deps.Logger),
	}
}

func validatePaymentInput(input PaymentInput) error {
	if strings.TrimSpace(input.SubscriptionID) == "" || input.Amount <= 0 || strings.TrimSpace(input.PaymentMethod) == "" {
		return apperrors.NewValidationError("Missing required fields: subscriptionId, amount, paymentMethod", nil)
	}
	return nil
}

// Create records a pending payment without charging it.
func (s *PaymentService) Create(ctx context.Context, input PaymentInput) (*domain.Payment, error) {
	if err := validatePaymentInput(input); err != nil {
		return nil, err
	}
	if _, err := s.subscription(ctx, input.SubscriptionID); err != nil {
		return nil, err
	}
	p := &domain.Payment{
		SubscriptionID: input.SubscriptionID,
		Amount:         input.Amount,
		Currency:       firstNonBlank(input.Currency, defaultCurrency),
		PaymentMethod:  input.PaymentMethod,
		Status:         domain.PaymentPending,
		Description:    input.Description,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, apperrors.MapError(err)
	}
	return p, nil
}

// Process charges a subscription. Mobile money and cards go through the
// gateway; every other method is simulated.
func (s *PaymentService) Process(ctx context.Context, input PaymentInput) (*domain.Payment, error) {
	if err := validatePaymentInput(input); err != nil {
		return nil, err
	}
	if input.PaymentMethod == methodMobileMoney || input.PaymentMethod == methodCard {
		return s.Initiate(ctx, input)
	}
	sub, err := s.subscription(ctx, input.SubscriptionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	p := &domain.Payment{
		SubscriptionID: sub.ID,
		Amount:         input.Amount,
		Currency:       firstNonBlank(input.Currency, defaultCurrency),
		PaymentMethod:  input.PaymentMethod,
		Status:         domain.PaymentPending,
		Description:    "Payment for subscription",
		TransactionID:  payment.NewTransactionID(now),
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.simulator != nil && s.simulator.Charge() {
		p.Status = domain.PaymentCompleted
		p.PaidAt = &now
		p.Metadata = map[string]any{"gateway": "simulated", "timestamp": now.Format("2006-01-02T15:04:05.000Z07:00")}
	} else {
		p.Status = domain.PaymentFailed
		p.FailureReason = "Insufficient funds (simulated)"
	}
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, apperrors.MapError(err)
	}
	if p.Status == domain.PaymentCompleted {
		s.settle(ctx, sub)
	}
	return p, nil
}

// Initiate opens a pending payment and asks the gateway to collect it.
func (s *PaymentService) Initiate(ctx context.Context, input PaymentInput) (*domain.Payment, error) {
	if err := validatePaymentInput(input); err != nil {
		return nil, err
	}
	if input.PaymentMethod == methodMobileMoney && strings.TrimSpace(input.PhoneNumber) == "" {
		return nil, apperrors.NewValidationError("Phone number required for mobile money payments", map[string]any{"field": "phoneNumber"})
	}
	sub, err := s.subscription(ctx, input.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if s.gateway == nil {
		return nil, apperrors.NewDomainError("GATEWAY_UNAVAILABLE", payment.ErrNotConfigured.Error(), http.StatusBadGateway, nil)
	}

	now := s.clock.now()
	email := firstNonBlank(input.Email, sub.Email)
	p := &domain.Payment{
		SubscriptionID: sub.ID,
		Amount:         input.Amount,
		Currency:       gatewayCurrency,
		PaymentMethod:  input.PaymentMethod,
		Status:         domain.PaymentPending,
		Description:    fmt.Sprintf("Payment for %s subscription", sub.Plan),
		TransactionID:  payment.NewTransactionID(now),
		Metadata: map[string]any{
			"phoneNumber":      input.PhoneNumber,
			"email":            email,
			"userId":           input.UserID,
			"paypackInitiated": now.Format("2006-01-02T15:04:05.000Z07:00"),
		},
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, apperrors.MapError(err)
	}

	resp, err := s.gateway.Initiate(ctx, payment.InitiateRequest{
		Amount:      input.Amount,
		Phone:       input.PhoneNumber,
		Email:       email,
		Description: fmt.Sprintf("Subscription - %s plan", sub.Plan),
		Reference:   p.ID,
	})
	if err != nil {
		s.logger.Error("gateway initiation failed", zap.String("paymentId", p.ID), zap.Error(err))
		return nil, apperrors.NewValidationError("Failed to initiate PayPack payment: "+err.Error(), nil)
	}

	p.Metadata["gatewayTransactionId"] = resp.TransactionID
	p.Metadata["redirectUrl"] = resp.RedirectURL
	p.Metadata["paymentGateway"] = "paypack"
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, apperrors.MapError(err)
	}
	return p, nil
}

// HandleCallback verifies and applies a gateway status callback.
func (s *PaymentService) HandleCallback(ctx context.Context, fields map[string]any) (*domain.Payment, error) {
	if _, signed := fields["signature"]; signed && !payment.VerifySignature(s.secret, fields) {
		return nil, apperrors.NewUnauthorized("Invalid PayPack signature")
	}
	txID, _ := fields["transaction_id"].(string)
	reference, _ := fields["reference"].(string)
	status, _ := fields["status"].(string)

	p, err := s.reconcile(ctx, txID, reference)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	if p.Metadata == nil {
		p.Metadata = map[string]any{}
	}
	p.Metadata["paypackReference"] = reference
	p.Metadata["paypackStatus"] = status
	p.Metadata["callbackReceivedAt"] = now.Format("2006-01-02T15:04:05.000Z07:00")

	if status == "success" || status == "completed" {
		p.Status = domain.PaymentCompleted
		p.PaidAt = &now
		p.FailureReason = ""
	} else {
		p.Status = domain.PaymentFailed
		p.PaidAt = nil
		reason, _ := fields["error_message"].(string)
		p.FailureReason = firstNonBlank(reason, "Payment failed")
	}
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("payment callback applied", zap.String("paymentId", p.ID), zap.String("status", p.Status))

	if p.Status == domain.PaymentCompleted {
		if sub, err := s.subscriptions.GetByID(ctx, p.SubscriptionID); err == nil {
			s.settle(ctx, sub)
		} else {
			s.logger.Error("subscription lookup after payment failed", zap.String("subscriptionId", p.SubscriptionID), zap.Error(err))
		}
	}
	return p, nil
}

// reconcile finds the payment a callback refers to: by stored or gateway
// transaction id first, then by treating either value as the payment id.
func (s *PaymentService) reconcile(ctx context.Context, ids ...string) (*domain.Payment, error) {
	for _, id := range ids {
		if id = strings.TrimSpace(id); id == "" {
			continue
		}
		p, err := s.payments.GetByTransactionID(ctx, id)
		if err == nil {
			return p, nil
		}
		if !apperrors.IsNotFound(err) {
			return nil, apperrors.MapError(err)
		}
		if _, perr := uuid.Parse(id); perr != nil {
			continue
		}
		p, err = s.payments.GetByID(ctx, id)
		if err == nil {
			return p, nil
		}
		if !apperrors.IsNotFound(err) {
			return nil, apperrors.MapError(err)
		}
	}
	return nil, apperrors.NewNotFound("payment", map[string]any{"transactionId": ids})
}

// settle marks the subscription paid, moves its billing date on and issues
// a paid invoice. Failures are logged; the payment itself already stands.
func (s *PaymentService) settle(ctx context.Context, sub *domain.Subscription) {
	now := s.clock.now()
	sub.PaymentStatus = domain.PaymentPaid
	sub.NextBillingDate = domain.NextBillingDate(now, sub.BillingCycle)
	if err := s.subscriptions.Update(ctx, sub); err != nil {
		s.logger.Error("subscription update after payment failed", zap.String("subscriptionId", sub.ID), zap.Error(err))
		return
	}
	invoice := &domain.Invoice{
		SubscriptionID: sub.ID,
		InvoiceNumber:  payment.NewInvoiceNumber(now),
		Amount:         sub.Amount,
		BillingCycle:   sub.BillingCycle,
		Period:         payment.BillingPeriod(now, sub.BillingCycle),
		Status:         domain.InvoicePaid,
		DueDate:        now.AddDate(0, 0, invoiceDueDays),
		PaidAt:         &now,
	}
	if err := s.invoices.Create(ctx, invoice); err != nil {
		s.logger.Error("invoice creation failed", zap.String("subscriptionId", sub.ID), zap.Error(err))
	}
}

// Get returns one payment.
func (s *PaymentService) Get(ctx context.Context, id string) (*domain.Payment, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return nil, apperrors.NewInvalidID("id", id)
	}
	p, err := s.payments.GetByID(ctx, id)
	return lookup(p, err, "payment", id)
}

// ListBySubscription returns a subscription's payments, newest first.
func (s *PaymentService) ListBySubscription(ctx context.Context, subscriptionID string) ([]domain.Payment, error) {
	if _, err := uuid.Parse(strings.TrimSpace(subscriptionID)); err != nil {
		return nil, apperrors.NewInvalidID("subscriptionId", subscriptionID)
	}
	out, err := s.payments.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return out, nil
}

// List pages through every payment.
func (s *PaymentService) List(ctx context.Context, limit, offset int) ([]domain.Payment, error) {
	out, err := s.payments.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return out, nil
}

// Refund marks a completed payment refunded.
func (s *PaymentService) Refund(ctx context.Context, id, reason string) (*domain.Payment, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PaymentCompleted {
		return nil, apperrors.NewConflict("Only completed payments can be refunded", map[string]any{"status": p.Status})
	}
	if p.Metadata == nil {
		p.Metadata = map[string]any{}
	}
	p.Status = domain.PaymentRefunded
	p.Metadata["refundReason"] = reason
	p.Metadata["refundedAt"] = s.clock.now().Format("2006-01-02T15:04:05.000Z07:00")
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, apperrors.MapError(err)
	}
	return p, nil
}

func (s *PaymentService) subscription(ctx context.Context, id string) (*domain.Subscription, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return nil, apperrors.NewInvalidID("subscriptionId", id)
	}
	sub, err := s.subscriptions.GetByID(ctx, id)
	if sub, err = lookup(sub, err, "subscription", id); err != nil {
		return nil, err
	}
	return sub, nil
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

