package domain

import "time"

type DiscountType string

const (
	TypePercentage DiscountType = "PERCENTAGE"
	TypeFixed      DiscountType = "FIXED"
)

// Coupon is a tenant-scoped discount code. Codes are stored uppercase and
// matched case-insensitively. The usage counter only ever increments; a
// cancelled order does not release its slot.
type Coupon struct {
	ID                string       `json:"id"`
	TenantID          string       `json:"tenant_id"`
	Code              string       `json:"code"`
	DiscountType      DiscountType `json:"discount_type"`
	Value             int64        `json:"value"` // percent for PERCENTAGE, cents for FIXED
	MinOrderCents     *int64       `json:"min_order_cents,omitempty"`
	MaxDiscountCents  *int64       `json:"max_discount_cents,omitempty"`
	UsageLimit        *int         `json:"usage_limit,omitempty"`
	PerUserLimit      *int         `json:"per_user_limit,omitempty"`
	ValidFrom         time.Time    `json:"valid_from"`
	ValidUntil        *time.Time   `json:"valid_until,omitempty"`
	Active            bool         `json:"active"`
	UsageCount        int          `json:"usage_count"`
}

// WithinWindow reports whether the coupon's validity window covers now.
func (c Coupon) WithinWindow(now time.Time) bool {
	if now.Before(c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	return true
}

// Exhausted reports whether the global usage limit has been reached.
func (c Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit
}

// MeetsMinimum reports whether the order amount clears the minimum, if any.
func (c Coupon) MeetsMinimum(orderCents int64) bool {
	return c.MinOrderCents == nil || orderCents >= *c.MinOrderCents
}

// Discount computes the discount for an order amount. Percentage discounts
// are capped at MaxDiscountCents when set; fixed discounts never exceed the
// order amount.
func (c Coupon) Discount(orderCents int64) int64 {
	switch c.DiscountType {
	case TypePercentage:
		d := orderCents * c.Value / 100
		if c.MaxDiscountCents != nil && d > *c.MaxDiscountCents {
			d = *c.MaxDiscountCents
		}
		return d
	case TypeFixed:
		if c.Value > orderCents {
			return orderCents
		}
		return c.Value
	}
	return 0
}
