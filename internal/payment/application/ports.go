package application

import (
	"context"

	order "github.com/tabletap/tabletap/internal/order/domain"
	"github.com/tabletap/tabletap/internal/payment/domain"
)

// ProviderNoPay names the synthetic strategy used when a tenant does not
// require payment or an order total is zero.
const ProviderNoPay = "nopay"

type PaymentRepository interface {
	Create(ctx context.Context, p domain.Payment) error
	FindByOrder(ctx context.Context, orderID string) (domain.Payment, error)
	// Reinitiate puts a failed payment back to PENDING under a fresh provider
	// order, clearing the stale provider payment id and signature.
	Reinitiate(ctx context.Context, id, providerOrderID string) (domain.Payment, error)
	MarkCompleted(ctx context.Context, id, providerPaymentID, signature string) (domain.Payment, error)
	MarkFailed(ctx context.Context, id string) error
	// RecordRefund adds amountCents to the refunded accumulator with a
	// conditional update that never lets it exceed the original amount, and
	// derives the resulting status.
	RecordRefund(ctx context.Context, id string, amountCents int64) (domain.Payment, error)
}

// TenantConfig is the per-tenant payment configuration read from the store.
type TenantConfig struct {
	Currency        string
	RequiresPayment bool
	Provider        string
	KeyID           string
	Secret          string
}

type TenantReader interface {
	Config(ctx context.Context, tenantID string) (TenantConfig, error)
}

// OrderGateway is the slice of the order service settlement needs: reading an
// order and advancing it to ACCEPTED once paid.
type OrderGateway interface {
	Get(ctx context.Context, id string) (order.Order, error)
	UpdateStatus(ctx context.Context, orderID string, target order.Status, tenantID string) (order.Order, error)
}
