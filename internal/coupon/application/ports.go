package application

import (
	"context"

	"github.com/tabletap/tabletap/internal/coupon/domain"
)

type CouponRepository interface {
	// FindByCode matches on the uppercased code within the tenant.
	FindByCode(ctx context.Context, tenantID, code string) (domain.Coupon, error)
	// UserUsage counts successful (non-cancelled) orders by the user that
	// applied this coupon.
	UserUsage(ctx context.Context, couponID, userID string) (int, error)
}
