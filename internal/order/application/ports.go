package application

import (
	"context"
	"errors"
	"fmt"

	catalog "github.com/tabletap/tabletap/internal/catalog/domain"
	coupon "github.com/tabletap/tabletap/internal/coupon/application"
	"github.com/tabletap/tabletap/internal/order/domain"
	session "github.com/tabletap/tabletap/internal/session/domain"
)

// ErrCouponExhausted is returned by the repository when the conditional
// usage-count increment finds the coupon already at its limit.
var ErrCouponExhausted = errors.New("coupon usage limit reached")

// InsufficientStockError is returned by the repository when a conditional
// stock decrement would drive the counter negative.
type InsufficientStockError struct {
	ItemID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s", e.ItemID)
}

// StockDecrement is a conditional decrement applied inside the order
// creation transaction, one per line that tracks finite stock.
type StockDecrement struct {
	ItemID   string
	Quantity int
}

type OrderRepository interface {
	// Create persists the order, its lines, the stock decrements, the
	// optional coupon usage increment, and the NEW_ORDER outbox event as a
	// single transaction. It allocates the tenant-scoped order number and
	// returns the completed order.
	Create(ctx context.Context, o domain.Order, decrements []StockDecrement) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error)
	ListByTenant(ctx context.Context, tenantID string, status *domain.Status, limit, offset int) ([]domain.Order, error)
	// UpdateStatus serializes through row-level locking, re-validates the
	// transition, records the first-reach timestamp, and queues the
	// STATUS_UPDATE outbox event in the same transaction.
	UpdateStatus(ctx context.Context, id string, target domain.Status) (domain.Order, error)
}

type CatalogReader interface {
	ItemsByIDs(ctx context.Context, tenantID string, ids []string) (map[string]catalog.Item, error)
}

type SessionResolver interface {
	Routing(ctx context.Context, sessionID string) (session.Routing, error)
}

type CouponEvaluator interface {
	Validate(ctx context.Context, tenantID, code string, orderCents int64, userID *string) (coupon.Quote, error)
}
