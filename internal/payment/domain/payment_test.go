package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRefundHalves(t *testing.T) {
	p := Payment{AmountCents: 200, Status: StatusCompleted}
	now := time.Now()

	require.NoError(t, p.ApplyRefund(100, now))
	assert.Equal(t, StatusPartiallyRefunded, p.Status)
	assert.Equal(t, int64(100), p.RefundedCents)
	assert.True(t, p.Refundable())

	require.NoError(t, p.ApplyRefund(100, now))
	assert.Equal(t, StatusRefunded, p.Status)
	assert.Equal(t, int64(200), p.RefundedCents)
	assert.False(t, p.Refundable())

	err := p.ApplyRefund(1, now)
	assert.ErrorIs(t, err, ErrRefundExceedsAmount)
	assert.Equal(t, int64(200), p.RefundedCents, "accumulator untouched after rejection")
}

func TestApplyRefundRejectsOverdraw(t *testing.T) {
	p := Payment{AmountCents: 100, Status: StatusCompleted}
	err := p.ApplyRefund(101, time.Now())
	assert.ErrorIs(t, err, ErrRefundExceedsAmount)
	assert.Equal(t, StatusCompleted, p.Status)
}

func TestApplyRefundRejectsNonPositive(t *testing.T) {
	p := Payment{AmountCents: 100, Status: StatusCompleted}
	assert.Error(t, p.ApplyRefund(0, time.Now()))
	assert.Error(t, p.ApplyRefund(-5, time.Now()))
}

func TestRemainingCents(t *testing.T) {
	p := Payment{AmountCents: 300, RefundedCents: 120}
	assert.Equal(t, int64(180), p.RemainingCents())
}
