package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusAccepted},
		{StatusPending, StatusCancelled},
		{StatusAccepted, StatusPreparing},
		{StatusAccepted, StatusCancelled},
		{StatusPreparing, StatusReady},
		{StatusPreparing, StatusCancelled},
		{StatusReady, StatusDelivered},
		{StatusReady, StatusCancelled},
		{StatusPending, StatusPending}, // idempotent repeat
	}
	for _, c := range allowed {
		assert.True(t, c.from.CanTransitionTo(c.to), "%s -> %s should be allowed", c.from, c.to)
	}

	rejected := []struct{ from, to Status }{
		{StatusPreparing, StatusPending}, // backward
		{StatusPending, StatusPreparing}, // skipping ahead
		{StatusPending, StatusReady},
		{StatusAccepted, StatusDelivered},
		{StatusDelivered, StatusCancelled}, // terminal
		{StatusCancelled, StatusAccepted},  // terminal
	}
	for _, c := range rejected {
		assert.False(t, c.from.CanTransitionTo(c.to), "%s -> %s should be rejected", c.from, c.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, Status("BOGUS").Terminal())
}

func TestRecalculate(t *testing.T) {
	o := Order{
		Items: []Item{
			{UnitPriceCents: 80, Quantity: 2},
			{UnitPriceCents: 120, Quantity: 1},
		},
		DiscountCents: 30,
	}
	o.Recalculate()

	assert.Equal(t, int64(280), o.SubtotalCents)
	assert.Equal(t, int64(160), o.Items[0].LineTotalCents)
	assert.Equal(t, int64(250), o.TotalCents)
}

func TestRecalculateClampsTotal(t *testing.T) {
	o := Order{
		Items:         []Item{{UnitPriceCents: 50, Quantity: 1}},
		DiscountCents: 500,
	}
	o.Recalculate()

	assert.Equal(t, int64(50), o.DiscountCents, "discount clamped to subtotal")
	assert.Equal(t, int64(0), o.TotalCents, "total never negative")
}

func TestTimestampColumn(t *testing.T) {
	col, ok := TimestampColumn(StatusAccepted)
	assert.True(t, ok)
	assert.Equal(t, "accepted_at", col)

	_, ok = TimestampColumn(StatusPending)
	assert.False(t, ok)
}
