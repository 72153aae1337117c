package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabletap/tabletap/internal/payment/application"
	"github.com/tabletap/tabletap/internal/payment/domain"
	"github.com/tabletap/tabletap/pkg/apperr"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p domain.Payment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments (id, order_id, provider, amount_cents, currency, status,
			provider_order_id, provider_payment_id, signature, refunded_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, p.ID, p.OrderID, p.Provider, p.AmountCents, p.Currency, p.Status,
		p.ProviderOrderID, p.ProviderPaymentID, p.Signature, p.RefundedCents, p.CreatedAt, p.UpdatedAt)
	return err
}

const selectPayment = `
	SELECT id, order_id, provider, amount_cents, currency, status,
	       provider_order_id, provider_payment_id, signature,
	       refunded_cents, refunded_at, created_at, updated_at
	FROM payments`

func (r *Repository) FindByOrder(ctx context.Context, orderID string) (domain.Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx, selectPayment+` WHERE order_id = $1`, orderID))
}

func (r *Repository) Reinitiate(ctx context.Context, id, providerOrderID string) (domain.Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `
		UPDATE payments
		SET status = 'PENDING', provider_order_id = $2,
		    provider_payment_id = NULL, signature = NULL, updated_at = now()
		WHERE id = $1 AND status = 'FAILED'
		RETURNING id, order_id, provider, amount_cents, currency, status,
		          provider_order_id, provider_payment_id, signature,
		          refunded_cents, refunded_at, created_at, updated_at
	`, id, providerOrderID))
}

func (r *Repository) MarkCompleted(ctx context.Context, id, providerPaymentID, signature string) (domain.Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `
		UPDATE payments
		SET status = 'COMPLETED', provider_payment_id = $2, signature = $3, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING id, order_id, provider, amount_cents, currency, status,
		          provider_order_id, provider_payment_id, signature,
		          refunded_cents, refunded_at, created_at, updated_at
	`, id, providerPaymentID, signature))
}

func (r *Repository) MarkFailed(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE payments SET status = 'FAILED', updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
	`, id)
	return err
}

// RecordRefund moves the accumulator with a guard that keeps it at or below
// the original amount, deriving REFUNDED or PARTIALLY_REFUNDED in the same
// statement. Zero rows affected means a concurrent refund drained the
// remainder first.
func (r *Repository) RecordRefund(ctx context.Context, id string, amountCents int64) (domain.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `
		UPDATE payments
		SET refunded_cents = refunded_cents + $2,
		    status = CASE WHEN refunded_cents + $2 = amount_cents THEN 'REFUNDED' ELSE 'PARTIALLY_REFUNDED' END,
		    refunded_at = now(), updated_at = now()
		WHERE id = $1
		  AND status IN ('COMPLETED', 'PARTIALLY_REFUNDED')
		  AND refunded_cents + $2 <= amount_cents
		RETURNING id, order_id, provider, amount_cents, currency, status,
		          provider_order_id, provider_payment_id, signature,
		          refunded_cents, refunded_at, created_at, updated_at
	`, id, amountCents))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, apperr.New(apperr.InvalidState, "refund amount exceeds the remaining payment amount")
	}
	return p, err
}

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Provider, &p.AmountCents, &p.Currency, &p.Status,
		&p.ProviderOrderID, &p.ProviderPaymentID, &p.Signature,
		&p.RefundedCents, &p.RefundedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// TenantReader loads per-tenant payment configuration.
type TenantReader struct {
	pool *pgxpool.Pool
}

func NewTenantReader(pool *pgxpool.Pool) *TenantReader {
	return &TenantReader{pool: pool}
}

func (r *TenantReader) Config(ctx context.Context, tenantID string) (application.TenantConfig, error) {
	var cfg application.TenantConfig
	err := r.pool.QueryRow(ctx, `
		SELECT currency, requires_payment, payment_provider, provider_key_id, provider_secret
		FROM tenants WHERE id = $1
	`, tenantID).Scan(&cfg.Currency, &cfg.RequiresPayment, &cfg.Provider, &cfg.KeyID, &cfg.Secret)
	if errors.Is(err, pgx.ErrNoRows) {
		return application.TenantConfig{}, apperr.New(apperr.NotFound, "tenant not found")
	}
	return cfg, err
}
