package gateway

import (
	"context"
	"errors"
)

// ErrSignatureMismatch is returned by Verify when the callback signature does
// not match the provider secret.
var ErrSignatureMismatch = errors.New("signature verification failed")

// Credentials carry per-tenant provider configuration. Tenants bring their own
// provider accounts.
type Credentials struct {
	KeyID  string
	Secret string
}

// ProviderOrder is the provider-side handle a client completes checkout
// against.
type ProviderOrder struct {
	ID       string
	Amount   int64
	Currency string
}

// VerifyParams is the client-reported checkout result to authenticate.
type VerifyParams struct {
	ProviderOrderID   string
	ProviderPaymentID string
	Signature         string
}

// Gateway abstracts a payment provider. Implementations must be safe for
// concurrent use.
type Gateway interface {
	// CreateOrder registers an intent with the provider and returns its handle.
	CreateOrder(ctx context.Context, creds Credentials, amountCents int64, currency, receipt string) (ProviderOrder, error)
	// Verify authenticates a client-reported payment against the provider
	// secret. ErrSignatureMismatch means the payment must be marked FAILED.
	Verify(ctx context.Context, creds Credentials, p VerifyParams) error
	// Refund issues a (possibly partial) refund against a captured payment.
	Refund(ctx context.Context, creds Credentials, providerPaymentID string, amountCents int64) error
}
