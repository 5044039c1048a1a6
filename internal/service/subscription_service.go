package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// SubscriptionService manages client plans and their billing cycle.
type SubscriptionService struct {
	subscriptions repository.SubscriptionRepository
	payments      repository.PaymentRepository
	invoices      repository.InvoiceRepository
	clientID      string
	secretID      string
	clock         Clock
	logger        *zap.Logger
}

// SubscriptionDependencies bundles collaborators for the subscription service.
type SubscriptionDependencies struct {
	SubscriptionRepo repository.SubscriptionRepository
	PaymentRepo      repository.PaymentRepository
	InvoiceRepo      repository.InvoiceRepository
	ClientID         string
	SecretID         string
	Clock            Clock
	Logger           *zap.Logger
}

// SubscriptionInput is the payload for creating a subscription. ClientID
// and SecretID are the integration credentials, UserID the subscriber.
type SubscriptionInput struct {
	ClientID      string
	SecretID      string
	UserID        string
	Email         string
	Plan          string
	BillingCycle  string
	AutoRenew     *bool
	PaymentMethod string
	Metadata      map[string]any
}

// SubscriptionUpdate carries the owner-editable subscription fields.
type SubscriptionUpdate struct {
	Email         *string
	AutoRenew     *bool
	PaymentMethod *string
	Metadata      map[string]any
}

// SubscriptionDetail is a subscription with its payment history and invoices.
type SubscriptionDetail struct {
	domain.Subscription
	Payments []domain.Payment `json:"payments"`
	Invoices []domain.Invoice `json:"invoices"`
}

// NewSubscriptionService constructs the service.
func NewSubscriptionService(deps SubscriptionDependencies) *SubscriptionService {
	return &SubscriptionService{
		subscriptions: deps.SubscriptionRepo,
		payments:      deps.PaymentRepo,
		invoices:      deps.InvoiceRepo,
		clientID:      deps.ClientID,
		secretID:      deps.SecretID,
		clock:         deps.Clock,
		logger:        nopLogger(deps.Logger),
	}
}

// CredentialHash is the stored digest of an integration credential pair.
func CredentialHash(clientID, secretID string) string {
	sum := sha256.Sum256([]byte(clientID + ":" + secretID))
	return hex.EncodeToString(sum[:])
}

func (s *SubscriptionService) verifyCredentials(clientID, secretID string) bool {
	if s.clientID == "" || s.secretID == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(clientID), []byte(s.clientID)) == 1 &&
		subtle.ConstantTimeCompare([]byte(secretID), []byte(s.secretID)) == 1
}

// Create opens an active, unpaid subscription.
func (s *SubscriptionService) Create(ctx context.Context, input SubscriptionInput) (*domain.Subscription, error) {
	if !s.verifyCredentials(input.ClientID, input.SecretID) {
		return nil, apperrors.NewUnauthorized("Invalid credentials")
	}
	plan, cycle, err := parsePlanCycle(input.Plan, input.BillingCycle)
	if err != nil {
		return nil, err
	}
	amount, _ := domain.Price(plan, cycle)
	now := s.clock.now()

	sub := &domain.Subscription{
		ClientID:        strings.TrimSpace(input.UserID),
		Email:           strings.TrimSpace(input.Email),
		Plan:            plan,
		BillingCycle:    cycle,
		Amount:          amount,
		Status:          domain.SubscriptionActive,
		PaymentStatus:   domain.PaymentPending,
		StartDate:       now,
		NextBillingDate: domain.NextBillingDate(now, cycle),
		CredentialHash:  CredentialHash(input.ClientID, input.SecretID),
		Features:        domain.PlanFeatures(plan),
		AutoRenew:       input.AutoRenew == nil || *input.AutoRenew,
		PaymentMethod:   strings.TrimSpace(input.PaymentMethod),
		Metadata:        input.Metadata,
	}
	if err := s.subscriptions.Create(ctx, sub); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("subscription created",
		zap.String("id", sub.ID), zap.String("plan", string(plan)), zap.String("cycle", string(cycle)))
	return sub, nil
}

// List returns subscriptions matching filter, newest first.
func (s *SubscriptionService) List(ctx context.Context, filter repository.SubscriptionFilter) ([]domain.Subscription, error) {
	subs, err := s.subscriptions.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return subs, nil
}

// GetByClient returns the newest subscription held by a client.
func (s *SubscriptionService) GetByClient(ctx context.Context, caller *domain.Caller, clientID string) (*SubscriptionDetail, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, apperrors.NewValidationError("clientId is required", map[string]any{"field": "clientId"})
	}
	if !caller.HasRole(domain.RoleAdmin, domain.RoleManager) && (caller.Anonymous() || caller.UserID != clientID) {
		return nil, apperrors.NewForbidden("not allowed to view this subscription")
	}
	subs, err := s.subscriptions.List(ctx, repository.SubscriptionFilter{ClientID: clientID, Limit: 1})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(subs) == 0 {
		return nil, apperrors.NewNotFound("subscription", map[string]any{"clientId": clientID})
	}
	return s.detail(ctx, &subs[0])
}

// Get returns a subscription with payments and invoices.
func (s *SubscriptionService) Get(ctx context.Context, caller *domain.Caller, id string) (*SubscriptionDetail, error) {
	sub, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, sub)
}

// Update edits contact and renewal settings. Plan and cycle have their own
// operations so the amount stays consistent.
func (s *SubscriptionService) Update(ctx context.Context, caller *domain.Caller, id string, input SubscriptionUpdate) (*domain.Subscription, error) {
	sub, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if input.Email != nil {
		sub.Email = strings.TrimSpace(*input.Email)
	}
	if input.AutoRenew != nil {
		sub.AutoRenew = *input.AutoRenew
	}
	if input.PaymentMethod != nil {
		sub.PaymentMethod = strings.TrimSpace(*input.PaymentMethod)
	}
	if input.Metadata != nil {
		sub.Metadata = input.Metadata
	}
	return s.save(ctx, sub)
}

// Cancel marks the subscription cancelled.
func (s *SubscriptionService) Cancel(ctx context.Context, caller *domain.Caller, id string) (*domain.Subscription, error) {
	sub, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	sub.Status = domain.SubscriptionCancelled
	sub.CancelledAt = &now
	return s.save(ctx, sub)
}

// Upgrade moves the subscription to another plan, repricing it for the
// current cycle.
func (s *SubscriptionService) Upgrade(ctx context.Context, id, planName string) (*domain.Subscription, error) {
	plan, ok := domain.ParsePlan(planName)
	if !ok {
		return nil, apperrors.NewValidationError("Invalid plan", map[string]any{"plan": planName})
	}
	sub, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	amount, ok := domain.Price(plan, sub.BillingCycle)
	if !ok {
		return nil, apperrors.NewValidationError("Invalid billing cycle", map[string]any{"billingCycle": sub.BillingCycle})
	}
	sub.Plan = plan
	sub.Amount = amount
	sub.Features = domain.PlanFeatures(plan)
	return s.save(ctx, sub)
}

// ChangeBillingCycle reprices the subscription and restarts its billing
// date from now.
func (s *SubscriptionService) ChangeBillingCycle(ctx context.Context, caller *domain.Caller, id, cycleName string) (*domain.Subscription, error) {
	cycle, ok := domain.ParseBillingCycle(cycleName)
	if !ok {
		return nil, apperrors.NewValidationError("Invalid billing cycle", map[string]any{"billingCycle": cycleName})
	}
	sub, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	amount, ok := domain.Price(sub.Plan, cycle)
	if !ok {
		return nil, apperrors.NewValidationError("Invalid plan", map[string]any{"plan": sub.Plan})
	}
	sub.BillingCycle = cycle
	sub.Amount = amount
	sub.NextBillingDate = domain.NextBillingDate(s.clock.now(), cycle)
	return s.save(ctx, sub)
}

// VerifyActive reports whether the subscription exists and is active.
func (s *SubscriptionService) VerifyActive(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return false, apperrors.NewInvalidID("id", id)
	}
	sub, err := s.subscriptions.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, nil
		}
		return false, apperrors.MapError(err)
	}
	return sub.Status == domain.SubscriptionActive, nil
}

// Delete removes a subscription and, by cascade, its payments and invoices.
func (s *SubscriptionService) Delete(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	return apperrors.MapError(s.subscriptions.Delete(ctx, id))
}

// Analytics summarizes the subscription book.
func (s *SubscriptionService) Analytics(ctx context.Context) (*repository.SubscriptionAnalytics, error) {
	out, err := s.subscriptions.Analytics(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return out, nil
}

// Pricing returns the plan price matrix.
func (s *SubscriptionService) Pricing() map[domain.Plan]map[domain.BillingCycle]float64 {
	return domain.PricingTable()
}

// Quote prices a plan and cycle.
func (s *SubscriptionService) Quote(planName, cycleName string) (float64, error) {
	if strings.TrimSpace(planName) == "" || strings.TrimSpace(cycleName) == "" {
		return 0, apperrors.NewValidationError("Missing required parameters: plan, billingCycle", nil)
	}
	plan, cycle, err := parsePlanCycle(planName, cycleName)
	if err != nil {
		return 0, err
	}
	amount, _ := domain.Price(plan, cycle)
	return amount, nil
}

func (s *SubscriptionService) detail(ctx context.Context, sub *domain.Subscription) (*SubscriptionDetail, error) {
	out := &SubscriptionDetail{Subscription: *sub}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Payments, err = s.payments.ListBySubscription(gctx, sub.ID)
		return err
	})
	g.Go(func() (err error) {
		out.Invoices, err = s.invoices.ListBySubscription(gctx, sub.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}
	return out, nil
}

func (s *SubscriptionService) load(ctx context.Context, id string) (*domain.Subscription, error) {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return nil, apperrors.NewInvalidID("id", id)
	}
	sub, err := s.subscriptions.GetByID(ctx, id)
	return lookup(sub, err, "subscription", id)
}

// owned loads a subscription the caller may manage: staff, or the client
// that holds it.
func (s *SubscriptionService) owned(ctx context.Context, caller *domain.Caller, id string) (*domain.Subscription, error) {
	if caller.Anonymous() {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	sub, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Role.IsStaff() && sub.ClientID != caller.UserID {
		return nil, apperrors.NewForbidden("not allowed to manage this subscription")
	}
	return sub, nil
}

func (s *SubscriptionService) save(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	sub.UpdatedAt = s.clock.now()
	if err := s.subscriptions.Update(ctx, sub); err != nil {
		return nil, apperrors.MapError(err)
	}
	return sub, nil
}

// parsePlanCycle applies the basic/monthly defaults and validates both.
func parsePlanCycle(planName, cycleName string) (domain.Plan, domain.BillingCycle, error) {
	if strings.TrimSpace(planName) == "" {
		planName = string(domain.PlanBasic)
	}
	if strings.TrimSpace(cycleName) == "" {
		cycleName = string(domain.CycleMonthly)
	}
	plan, ok := domain.ParsePlan(planName)
	if !ok {
		return "", "", apperrors.NewValidationError("Invalid plan", map[string]any{"plan": planName})
	}
	cycle, ok := domain.ParseBillingCycle(cycleName)
	if !ok {
		return "", "", apperrors.NewValidationError("Invalid billing cycle", map[string]any{"billingCycle": cycleName})
	}
	return plan, cycle, nil
}
