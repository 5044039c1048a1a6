package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// SubscriptionFilter captures admin search parameters.
type SubscriptionFilter struct {
	ClientID string
	Status   string
	Plan     string
	Limit    int
	Offset   int
}

// SubscriptionAnalytics summarizes the subscription book.
type SubscriptionAnalytics struct {
	Total         int64              `json:"total"`
	Active        int64              `json:"active"`
	Cancelled     int64              `json:"cancelled"`
	ByPlan        map[string]int64   `json:"byPlan"`
	ByCycle       map[string]int64   `json:"byBillingCycle"`
	RevenueByPlan map[string]float64 `json:"revenueByPlan"`
	TotalRevenue  float64            `json:"totalRevenue"`
}

// SubscriptionRepository encapsulates subscription persistence.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	Update(ctx context.Context, sub *domain.Subscription) error
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	List(ctx context.Context, filter SubscriptionFilter) ([]domain.Subscription, error)
	Delete(ctx context.Context, id string) error
	Analytics(ctx context.Context) (*SubscriptionAnalytics, error)
}

const subscriptionColumns = `id::text, client_id, email, plan, billing_cycle, amount::float8, status, payment_status,
        start_date, next_billing_date, cancelled_at, credential_hash, features, auto_renew, payment_method,
        metadata, created_at, updated_at`

type subscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository instantiates repository.
func NewSubscriptionRepository(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepository{pool: pool}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	const query = `
        INSERT INTO subscriptions (client_id, email, plan, billing_cycle, amount, status, payment_status,
            start_date, next_billing_date, credential_hash, features, auto_renew, payment_method, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id::text, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		sub.ClientID,
		sub.Email,
		sub.Plan,
		sub.BillingCycle,
		sub.Amount,
		sub.Status,
		sub.PaymentStatus,
		sub.StartDate,
		sub.NextBillingDate,
		sub.CredentialHash,
		nonNilStrings(sub.Features),
		sub.AutoRenew,
		sub.PaymentMethod,
		nonNilMap(sub.Metadata),
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	const query = `
        UPDATE subscriptions SET email=$1, plan=$2, billing_cycle=$3, amount=$4, status=$5, payment_status=$6,
            next_billing_date=$7, cancelled_at=$8, features=$9, auto_renew=$10, payment_method=$11,
            metadata=$12, updated_at=NOW()
        WHERE id=$13::uuid
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		sub.Email,
		sub.Plan,
		sub.BillingCycle,
		sub.Amount,
		sub.Status,
		sub.PaymentStatus,
		sub.NextBillingDate,
		sub.CancelledAt,
		nonNilStrings(sub.Features),
		sub.AutoRenew,
		sub.PaymentMethod,
		nonNilMap(sub.Metadata),
		sub.ID,
	).Scan(&sub.UpdatedAt)
	return err
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id=$1::uuid`, id)
	return scanSubscription(row)
}

func (r *subscriptionRepository) List(ctx context.Context, filter SubscriptionFilter) ([]domain.Subscription, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.ClientID != "" {
		add("client_id=$%d", filter.ClientID)
	}
	if filter.Status != "" {
		add("status=$%d", filter.Status)
	}
	if filter.Plan != "" {
		add("plan=$%d", filter.Plan)
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

func (r *subscriptionRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM subscriptions WHERE id=$1::uuid`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *subscriptionRepository) Analytics(ctx context.Context) (*SubscriptionAnalytics, error) {
	out := &SubscriptionAnalytics{
		ByPlan:        map[string]int64{},
		ByCycle:       map[string]int64{},
		RevenueByPlan: map[string]float64{},
	}
	const totals = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='active'),
               COUNT(*) FILTER (WHERE status='cancelled')
        FROM subscriptions`
	if err := r.pool.QueryRow(ctx, totals).Scan(&out.Total, &out.Active, &out.Cancelled); err != nil {
		return nil, err
	}

	if err := groupCounts(ctx, r.pool, `SELECT plan, COUNT(*) FROM subscriptions GROUP BY plan`, out.ByPlan); err != nil {
		return nil, err
	}
	if err := groupCounts(ctx, r.pool, `SELECT billing_cycle, COUNT(*) FROM subscriptions GROUP BY billing_cycle`, out.ByCycle); err != nil {
		return nil, err
	}

	const revenue = `
        SELECT s.plan, COALESCE(SUM(p.amount), 0)::float8
        FROM payments p JOIN subscriptions s ON s.id = p.subscription_id
        WHERE p.status='completed'
        GROUP BY s.plan`
	rows, err := r.pool.Query(ctx, revenue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			plan   string
			amount float64
		)
		if err := rows.Scan(&plan, &amount); err != nil {
			return nil, err
		}
		out.RevenueByPlan[plan] = amount
		out.TotalRevenue += amount
	}
	return out, rows.Err()
}

func groupCounts(ctx context.Context, pool *pgxpool.Pool, query string, into map[string]int64) error {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key   string
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key] = count
	}
	return rows.Err()
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := row.Scan(
		&sub.ID,
		&sub.ClientID,
		&sub.Email,
		&sub.Plan,
		&sub.BillingCycle,
		&sub.Amount,
		&sub.Status,
		&sub.PaymentStatus,
		&sub.StartDate,
		&sub.NextBillingDate,
		&sub.CancelledAt,
		&sub.CredentialHash,
		&sub.Features,
		&sub.AutoRenew,
		&sub.PaymentMethod,
		&sub.Metadata,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// PaymentRepository encapsulates payment persistence.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	Update(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]domain.Payment, error)
	List(ctx context.Context, limit, offset int) ([]domain.Payment, error)
}

const paymentColumns = `id::text, subscription_id::text, amount::float8, currency, payment_method, status,
        description, transaction_id, paid_at, failure_reason, metadata, created_at, updated_at`

type paymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository instantiates repository.
func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	const query = `
        INSERT INTO payments (subscription_id, amount, currency, payment_method, status, description,
            transaction_id, paid_at, failure_reason, metadata)
        VALUES ($1::uuid,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id::text, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		payment.SubscriptionID,
		payment.Amount,
		payment.Currency,
		payment.PaymentMethod,
		payment.Status,
		payment.Description,
		payment.TransactionID,
		payment.PaidAt,
		payment.FailureReason,
		nonNilMap(payment.Metadata),
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	const query = `
        UPDATE payments SET status=$1, transaction_id=$2, paid_at=$3, failure_reason=$4, metadata=$5,
            updated_at=NOW()
        WHERE id=$6::uuid
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		payment.Status,
		payment.TransactionID,
		payment.PaidAt,
		payment.FailureReason,
		nonNilMap(payment.Metadata),
		payment.ID,
	).Scan(&payment.UpdatedAt)
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1::uuid`, id)
	return scanPayment(row)
}

func (r *paymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id=$1
        OR metadata->>'gatewayTransactionId'=$1 ORDER BY created_at DESC LIMIT 1`, transactionID)
	return scanPayment(row)
}

func (r *paymentRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE subscription_id=$1::uuid
        ORDER BY created_at DESC`, subscriptionID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (r *paymentRepository) List(ctx context.Context, limit, offset int) ([]domain.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments
        ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func collectPayments(rows pgx.Rows) ([]domain.Payment, error) {
	defer rows.Close()
	out := []domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.SubscriptionID,
		&p.Amount,
		&p.Currency,
		&p.PaymentMethod,
		&p.Status,
		&p.Description,
		&p.TransactionID,
		&p.PaidAt,
		&p.FailureReason,
		&p.Metadata,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InvoiceRepository encapsulates invoice persistence.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	ListBySubscription(ctx context.Context, subscriptionID string) ([]domain.Invoice, error)
}

type invoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository instantiates repository.
func NewInvoiceRepository(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepository{pool: pool}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	const query = `
        INSERT INTO invoices (subscription_id, invoice_number, amount, billing_cycle, period, status, due_date, paid_at)
        VALUES ($1::uuid,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id::text, created_at`
	return r.pool.QueryRow(ctx, query,
		invoice.SubscriptionID,
		invoice.InvoiceNumber,
		invoice.Amount,
		invoice.BillingCycle,
		invoice.Period,
		invoice.Status,
		invoice.DueDate,
		invoice.PaidAt,
	).Scan(&invoice.ID, &invoice.CreatedAt)
}

func (r *invoiceRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]domain.Invoice, error) {
	const query = `
        SELECT id::text, subscription_id::text, invoice_number, amount::float8, billing_cycle, period, status,
            due_date, paid_at, created_at
        FROM invoices WHERE subscription_id=$1::uuid ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Invoice{}
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(
			&inv.ID,
			&inv.SubscriptionID,
			&inv.InvoiceNumber,
			&inv.Amount,
			&inv.BillingCycle,
			&inv.Period,
			&inv.Status,
			&inv.DueDate,
			&inv.PaidAt,
			&inv.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilMap(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	return in
}
