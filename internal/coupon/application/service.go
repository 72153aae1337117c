package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tabletap/tabletap/pkg/apperr"
)

type Service struct {
	log  *slog.Logger
	repo CouponRepository
	now  func() time.Time
}

func NewService(log *slog.Logger, repo CouponRepository) *Service {
	return &Service{log: log, repo: repo, now: time.Now}
}

// Quote is the outcome of a successful validation. Validation never mutates
// state; the usage counter moves only inside order creation.
type Quote struct {
	CouponID      string `json:"coupon_id"`
	Code          string `json:"code"`
	DiscountCents int64  `json:"discount_cents"`
	FinalCents    int64  `json:"final_cents"`
}

// Validate checks the coupon against the order amount and computes the
// discount it would grant.
func (s *Service) Validate(ctx context.Context, tenantID, code string, orderCents int64, userID *string) (Quote, error) {
	c, err := s.repo.FindByCode(ctx, tenantID, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, apperr.New(apperr.NotFound, "coupon not found")
		}
		return Quote{}, err
	}

	if !c.Active {
		return Quote{}, apperr.New(apperr.InvalidState, "coupon is not active")
	}
	if !c.WithinWindow(s.now()) {
		return Quote{}, apperr.New(apperr.InvalidState, "coupon is outside its validity window")
	}
	if c.Exhausted() {
		return Quote{}, apperr.New(apperr.InvalidState, "coupon usage limit reached")
	}
	if userID != nil && c.PerUserLimit != nil {
		used, err := s.repo.UserUsage(ctx, c.ID, *userID)
		if err != nil {
			return Quote{}, err
		}
		if used >= *c.PerUserLimit {
			return Quote{}, apperr.New(apperr.InvalidState, "coupon per-user limit reached")
		}
	}
	if !c.MeetsMinimum(orderCents) {
		return Quote{}, apperr.New(apperr.InvalidState, "order amount below coupon minimum")
	}

	discount := c.Discount(orderCents)
	return Quote{
		CouponID:      c.ID,
		Code:          c.Code,
		DiscountCents: discount,
		FinalCents:    orderCents - discount,
	}, nil
}
