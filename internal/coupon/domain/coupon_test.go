package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestDiscountPercentage(t *testing.T) {
	c := Coupon{DiscountType: TypePercentage, Value: 10}
	assert.Equal(t, int64(20), c.Discount(200))

	capped := Coupon{DiscountType: TypePercentage, Value: 50, MaxDiscountCents: ptr(int64(30))}
	assert.Equal(t, int64(30), capped.Discount(200))
}

func TestDiscountFixed(t *testing.T) {
	c := Coupon{DiscountType: TypeFixed, Value: 50}
	assert.Equal(t, int64(50), c.Discount(200))
	assert.Equal(t, int64(40), c.Discount(40), "fixed discount never exceeds the order amount")
}

func TestWithinWindow(t *testing.T) {
	now := time.Now()
	c := Coupon{ValidFrom: now.Add(-time.Hour)}
	assert.True(t, c.WithinWindow(now))

	c.ValidFrom = now.Add(time.Hour)
	assert.False(t, c.WithinWindow(now), "not yet valid")

	c = Coupon{ValidFrom: now.Add(-2 * time.Hour), ValidUntil: ptr(now.Add(-time.Hour))}
	assert.False(t, c.WithinWindow(now), "window passed")
}

func TestExhausted(t *testing.T) {
	c := Coupon{UsageLimit: ptr(1), UsageCount: 1}
	assert.True(t, c.Exhausted())

	c.UsageCount = 0
	assert.False(t, c.Exhausted())

	unlimited := Coupon{UsageCount: 100000}
	assert.False(t, unlimited.Exhausted())
}

func TestMeetsMinimum(t *testing.T) {
	c := Coupon{MinOrderCents: ptr(int64(100))}
	assert.False(t, c.MeetsMinimum(99))
	assert.True(t, c.MeetsMinimum(100))
	assert.True(t, Coupon{}.MeetsMinimum(1))
}
