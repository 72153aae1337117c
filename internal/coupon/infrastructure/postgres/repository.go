package postgres

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabletap/tabletap/internal/coupon/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) FindByCode(ctx context.Context, tenantID, code string) (domain.Coupon, error) {
	var c domain.Coupon
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, code, discount_type, value, min_order_cents, max_discount_cents,
		       usage_limit, per_user_limit, valid_from, valid_until, active, usage_count
		FROM coupons
		WHERE tenant_id = $1 AND code = $2
	`, tenantID, strings.ToUpper(code)).Scan(
		&c.ID, &c.TenantID, &c.Code, &c.DiscountType, &c.Value, &c.MinOrderCents, &c.MaxDiscountCents,
		&c.UsageLimit, &c.PerUserLimit, &c.ValidFrom, &c.ValidUntil, &c.Active, &c.UsageCount,
	)
	return c, err
}

func (r *Repository) UserUsage(ctx context.Context, couponID, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(1) FROM orders
		WHERE coupon_id = $1 AND user_id = $2 AND status <> 'CANCELLED'
	`, couponID, userID).Scan(&n)
	return n, err
}
