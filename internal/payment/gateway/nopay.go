package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// NoPay serves tenants that do not require payment. Every operation succeeds
// locally without touching any provider.
type NoPay struct{}

func NewNoPay() *NoPay { return &NoPay{} }

func (*NoPay) CreateOrder(_ context.Context, _ Credentials, amountCents int64, currency, _ string) (ProviderOrder, error) {
	return ProviderOrder{
		ID:       fmt.Sprintf("nopay_%s", uuid.NewString()),
		Amount:   amountCents,
		Currency: currency,
	}, nil
}

func (*NoPay) Verify(context.Context, Credentials, VerifyParams) error { return nil }

func (*NoPay) Refund(context.Context, Credentials, string, int64) error { return nil }
