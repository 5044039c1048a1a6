package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
)

// BillingStore backs the subscription, payment and invoice fakes with one
// lock so cascades stay consistent.
type BillingStore struct {
	mu            sync.Mutex
	subscriptions map[string]domain.Subscription
	payments      map[string]domain.Payment
	invoices      []domain.Invoice
}

// NewBillingStore constructs an empty ledger.
func NewBillingStore() *BillingStore {
	return &BillingStore{
		subscriptions: map[string]domain.Subscription{},
		payments:      map[string]domain.Payment{},
	}
}

// Subscriptions returns the subscription repository view.
func (b *BillingStore) Subscriptions() repository.SubscriptionRepository { return subscriptionRepo{b} }

// Payments returns the payment repository view.
func (b *BillingStore) Payments() repository.PaymentRepository { return paymentRepo{b} }

// Invoices returns the invoice repository view.
func (b *BillingStore) Invoices() repository.InvoiceRepository { return invoiceRepo{b} }

type subscriptionRepo struct{ b *BillingStore }

func (r subscriptionRepo) Create(_ context.Context, sub *domain.Subscription) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	sub.ID = uuid.NewString()
	stamp(&sub.CreatedAt, &sub.UpdatedAt)
	r.b.subscriptions[sub.ID] = *sub
	return nil
}

func (r subscriptionRepo) Update(_ context.Context, sub *domain.Subscription) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, ok := r.b.subscriptions[sub.ID]; !ok {
		return pgx.ErrNoRows
	}
	stamp(nil, &sub.UpdatedAt)
	r.b.subscriptions[sub.ID] = *sub
	return nil
}

func (r subscriptionRepo) GetByID(_ context.Context, id string) (*domain.Subscription, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	sub, ok := r.b.subscriptions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &sub, nil
}

func (r subscriptionRepo) List(_ context.Context, filter repository.SubscriptionFilter) ([]domain.Subscription, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	out := []domain.Subscription{}
	for _, s := range r.b.subscriptions {
		if filter.ClientID != "" && s.ClientID != filter.ClientID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.Plan != "" && string(s.Plan) != filter.Plan {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []domain.Subscription{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r subscriptionRepo) Delete(_ context.Context, id string) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, ok := r.b.subscriptions[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.b.subscriptions, id)
	for pid, p := range r.b.payments {
		if p.SubscriptionID == id {
			delete(r.b.payments, pid)
		}
	}
	kept := r.b.invoices[:0]
	for _, inv := range r.b.invoices {
		if inv.SubscriptionID != id {
			kept = append(kept, inv)
		}
	}
	r.b.invoices = kept
	return nil
}

func (r subscriptionRepo) Analytics(_ context.Context) (*repository.SubscriptionAnalytics, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	out := &repository.SubscriptionAnalytics{
		ByPlan:        map[string]int64{},
		ByCycle:       map[string]int64{},
		RevenueByPlan: map[string]float64{},
	}
	for _, s := range r.b.subscriptions {
		out.Total++
		switch s.Status {
		case domain.SubscriptionActive:
			out.Active++
			out.ByPlan[string(s.Plan)]++
		case domain.SubscriptionCancelled:
			out.Cancelled++
		}
		out.ByCycle[string(s.BillingCycle)]++
	}
	for _, p := range r.b.payments {
		if p.Status != domain.PaymentCompleted {
			continue
		}
		if s, ok := r.b.subscriptions[p.SubscriptionID]; ok {
			out.RevenueByPlan[string(s.Plan)] += p.Amount
		}
		out.TotalRevenue += p.Amount
	}
	return out, nil
}

type paymentRepo struct{ b *BillingStore }

func (r paymentRepo) Create(_ context.Context, p *domain.Payment) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, ok := r.b.subscriptions[p.SubscriptionID]; !ok {
		return pgx.ErrNoRows
	}
	p.ID = uuid.NewString()
	stamp(&p.CreatedAt, &p.UpdatedAt)
	r.b.payments[p.ID] = clonePayment(*p)
	return nil
}

func (r paymentRepo) Update(_ context.Context, p *domain.Payment) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	if _, ok := r.b.payments[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	stamp(nil, &p.UpdatedAt)
	r.b.payments[p.ID] = clonePayment(*p)
	return nil
}

func (r paymentRepo) GetByID(_ context.Context, id string) (*domain.Payment, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	p, ok := r.b.payments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	p = clonePayment(p)
	return &p, nil
}

func (r paymentRepo) GetByTransactionID(_ context.Context, txID string) (*domain.Payment, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	for _, p := range r.b.payments {
		gateway, _ := p.Metadata["gatewayTransactionId"].(string)
		if p.TransactionID == txID || (gateway != "" && gateway == txID) {
			p = clonePayment(p)
			return &p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r paymentRepo) ListBySubscription(_ context.Context, subscriptionID string) ([]domain.Payment, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	out := []domain.Payment{}
	for _, p := range r.b.payments {
		if p.SubscriptionID == subscriptionID {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r paymentRepo) List(_ context.Context, limit, offset int) ([]domain.Payment, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	out := []domain.Payment{}
	for _, p := range r.b.payments {
		out = append(out, clonePayment(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []domain.Payment{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type invoiceRepo struct{ b *BillingStore }

func (r invoiceRepo) Create(_ context.Context, inv *domain.Invoice) error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	inv.ID = uuid.NewString()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	r.b.invoices = append(r.b.invoices, *inv)
	return nil
}

func (r invoiceRepo) ListBySubscription(_ context.Context, subscriptionID string) ([]domain.Invoice, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	out := []domain.Invoice{}
	for i := len(r.b.invoices) - 1; i >= 0; i-- {
		if r.b.invoices[i].SubscriptionID == subscriptionID {
			out = append(out, r.b.invoices[i])
		}
	}
	return out, nil
}

func clonePayment(p domain.Payment) domain.Payment {
	if p.Metadata != nil {
		meta := make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			meta[k] = v
		}
		p.Metadata = meta
	}
	return p
}
