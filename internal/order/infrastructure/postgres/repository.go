package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabletap/tabletap/internal/order/application"
	"github.com/tabletap/tabletap/internal/order/domain"
	"github.com/tabletap/tabletap/pkg/apperr"
	"github.com/tabletap/tabletap/pkg/outbox"
	"github.com/tabletap/tabletap/pkg/tracing"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// Create runs the whole order-creation write set as one transaction: number
// allocation, order + line inserts, conditional stock decrements, the
// optional coupon usage increment, and the NEW_ORDER outbox row. Any
// conditional update that misses aborts the transaction, so stock can never
// go negative and a coupon slot is never double-spent.
func (r *Repository) Create(ctx context.Context, o domain.Order, decrements []application.StockDecrement) (domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var seq int64
	err = tx.QueryRow(ctx, `
		INSERT INTO tenant_counters AS tc (tenant_id, order_seq) VALUES ($1, 1)
		ON CONFLICT (tenant_id) DO UPDATE SET order_seq = tc.order_seq + 1
		RETURNING order_seq
	`, o.TenantID).Scan(&seq)
	if err != nil {
		return domain.Order{}, fmt.Errorf("allocating order number: %w", err)
	}
	o.Number = fmt.Sprintf("ORD-%06d", seq)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, order_number, tenant_id, session_id, space_id, user_id, coupon_id,
			subtotal_cents, discount_cents, total_cents, status, chair_number, notes,
			placed_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, o.ID, o.Number, o.TenantID, o.SessionID, o.SpaceID, o.UserID, o.CouponID,
		o.SubtotalCents, o.DiscountCents, o.TotalCents, o.Status, o.ChairNumber, o.Notes,
		o.PlacedAt, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("inserting order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (id, order_id, item_id, name, quantity, unit_price_cents, line_total_cents, notes)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, item.ID, o.ID, item.ItemID, item.Name, item.Quantity, item.UnitPriceCents, item.LineTotalCents, item.Notes)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return domain.Order{}, fmt.Errorf("inserting order items: %w", err)
	}

	// Decrement only when the remaining stock covers the quantity; zero rows
	// affected means a concurrent sale won the race.
	for _, d := range decrements {
		ct, err := tx.Exec(ctx, `
			UPDATE menu_items SET stock = stock - $3
			WHERE id = $1 AND tenant_id = $2 AND stock IS NOT NULL AND stock >= $3
		`, d.ItemID, o.TenantID, d.Quantity)
		if err != nil {
			return domain.Order{}, err
		}
		if ct.RowsAffected() == 0 {
			return domain.Order{}, &application.InsufficientStockError{ItemID: d.ItemID}
		}
	}

	if o.CouponID != nil {
		ct, err := tx.Exec(ctx, `
			UPDATE coupons SET usage_count = usage_count + 1
			WHERE id = $1 AND active AND (usage_limit IS NULL OR usage_count < usage_limit)
		`, *o.CouponID)
		if err != nil {
			return domain.Order{}, err
		}
		if ct.RowsAffected() == 0 {
			return domain.Order{}, application.ErrCouponExhausted
		}
	}

	payload, err := json.Marshal(domain.Event{Type: domain.EventNewOrder, Order: o})
	if err != nil {
		return domain.Order{}, err
	}
	if err := outbox.Insert(ctx, tx, o.TenantID, "order", o.ID, domain.EventNewOrder, payload, tracing.Traceparent(ctx)); err != nil {
		return domain.Order{}, fmt.Errorf("queueing order event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, selectOrder+` WHERE id = $1`, id))
	if err != nil {
		return domain.Order{}, err
	}
	items, err := r.itemsFor(ctx, []string{o.ID})
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, selectOrder+` WHERE session_id = $1 ORDER BY placed_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

func (r *Repository) ListByTenant(ctx context.Context, tenantID string, status *domain.Status, limit, offset int) ([]domain.Order, error) {
	q := selectOrder + ` WHERE tenant_id = $1`
	args := []any{tenantID}
	if status != nil {
		q += ` AND status = $2`
		args = append(args, *status)
	}
	q += fmt.Sprintf(` ORDER BY placed_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

// UpdateStatus locks the order row, re-validates the transition under the
// lock, stamps the first time the target status is reached, and queues the
// STATUS_UPDATE event in the same transaction.
func (r *Repository) UpdateStatus(ctx context.Context, id string, target domain.Status) (domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var current domain.Status
	if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current); err != nil {
		return domain.Order{}, err
	}
	if current == target {
		// Another caller already applied this transition.
		if err := tx.Commit(ctx); err != nil {
			return domain.Order{}, err
		}
		return r.Get(ctx, id)
	}
	if !current.CanTransitionTo(target) {
		return domain.Order{}, apperr.Newf(apperr.InvalidState, "cannot transition order from %s to %s", current, target)
	}

	col, ok := domain.TimestampColumn(target)
	if !ok {
		return domain.Order{}, apperr.Newf(apperr.Validation, "unknown status %q", target)
	}
	// col comes from the fixed status table, never from input.
	q := fmt.Sprintf(`UPDATE orders SET status = $2, updated_at = now(), %s = COALESCE(%s, now()) WHERE id = $1`, col, col)
	if _, err := tx.Exec(ctx, q, id, target); err != nil {
		return domain.Order{}, err
	}

	o, err := scanOrder(tx.QueryRow(ctx, selectOrder+` WHERE id = $1`, id))
	if err != nil {
		return domain.Order{}, err
	}
	items, err := r.itemsForTx(ctx, tx, o.ID)
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items

	payload, err := json.Marshal(domain.Event{Type: domain.EventStatusUpdate, Order: o})
	if err != nil {
		return domain.Order{}, err
	}
	if err := outbox.Insert(ctx, tx, o.TenantID, "order", o.ID, domain.EventStatusUpdate, payload, tracing.Traceparent(ctx)); err != nil {
		return domain.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

const selectOrder = `
	SELECT id, order_number, tenant_id, session_id, space_id, user_id, coupon_id,
	       subtotal_cents, discount_cents, total_cents, status, chair_number, notes,
	       placed_at, accepted_at, preparing_at, ready_at, delivered_at, cancelled_at,
	       created_at, updated_at
	FROM orders`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.Number, &o.TenantID, &o.SessionID, &o.SpaceID, &o.UserID, &o.CouponID,
		&o.SubtotalCents, &o.DiscountCents, &o.TotalCents, &o.Status, &o.ChairNumber, &o.Notes,
		&o.PlacedAt, &o.AcceptedAt, &o.PreparingAt, &o.ReadyAt, &o.DeliveredAt, &o.CancelledAt,
		&o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *Repository) collect(ctx context.Context, rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()

	var orders []domain.Order
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []domain.Order{}, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

const selectItems = `
	SELECT id, order_id, item_id, name, quantity, unit_price_cents, line_total_cents, notes
	FROM order_items WHERE order_id = ANY($1)`

func (r *Repository) itemsFor(ctx context.Context, orderIDs []string) (map[string][]domain.Item, error) {
	rows, err := r.pool.Query(ctx, selectItems, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := map[string][]domain.Item{}
	for rows.Next() {
		var it domain.Item
		var orderID string
		if err := rows.Scan(&it.ID, &orderID, &it.ItemID, &it.Name, &it.Quantity, &it.UnitPriceCents, &it.LineTotalCents, &it.Notes); err != nil {
			return nil, err
		}
		items[orderID] = append(items[orderID], it)
	}
	return items, rows.Err()
}

func (r *Repository) itemsForTx(ctx context.Context, tx pgx.Tx, orderID string) ([]domain.Item, error) {
	rows, err := tx.Query(ctx, selectItems, []string{orderID})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		var oid string
		if err := rows.Scan(&it.ID, &oid, &it.ItemID, &it.Name, &it.Quantity, &it.UnitPriceCents, &it.LineTotalCents, &it.Notes); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
