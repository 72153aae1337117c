package domain

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending           Status = "PENDING"
	StatusCompleted         Status = "COMPLETED"
	StatusFailed            Status = "FAILED"
	StatusPartiallyRefunded Status = "PARTIALLY_REFUNDED"
	StatusRefunded          Status = "REFUNDED"
)

var ErrRefundExceedsAmount = errors.New("refund exceeds remaining amount")

// Payment settles exactly one order. The refunded accumulator never exceeds
// the original amount.
type Payment struct {
	ID                string     `json:"id"`
	OrderID           string     `json:"order_id"`
	Provider          string     `json:"provider"`
	AmountCents       int64      `json:"amount_cents"`
	Currency          string     `json:"currency"`
	Status            Status     `json:"status"`
	ProviderOrderID   *string    `json:"provider_order_id,omitempty"`
	ProviderPaymentID *string    `json:"provider_payment_id,omitempty"`
	Signature         *string    `json:"-"` // audit metadata, never serialized out
	RefundedCents     int64      `json:"refunded_cents"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Refundable reports whether a refund may be issued against the payment.
func (p Payment) Refundable() bool {
	return p.Status == StatusCompleted || p.Status == StatusPartiallyRefunded
}

// RemainingCents is the amount still available to refund.
func (p Payment) RemainingCents() int64 {
	return p.AmountCents - p.RefundedCents
}

// ApplyRefund moves the accumulator and derives the resulting status:
// REFUNDED once the accumulator reaches the original amount,
// PARTIALLY_REFUNDED otherwise.
func (p *Payment) ApplyRefund(amountCents int64, now time.Time) error {
	if amountCents <= 0 {
		return ErrRefundExceedsAmount
	}
	if p.RefundedCents+amountCents > p.AmountCents {
		return ErrRefundExceedsAmount
	}
	p.RefundedCents += amountCents
	if p.RefundedCents == p.AmountCents {
		p.Status = StatusRefunded
	} else {
		p.Status = StatusPartiallyRefunded
	}
	p.RefundedAt = &now
	p.UpdatedAt = now
	return nil
}
