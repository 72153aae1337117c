package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tabletap/tabletap/internal/order/domain"
	"github.com/tabletap/tabletap/pkg/apperr"
)

type Service struct {
	log      *slog.Logger
	repo     OrderRepository
	catalog  CatalogReader
	sessions SessionResolver
	coupons  CouponEvaluator
	now      func() time.Time
}

func NewService(log *slog.Logger, repo OrderRepository, catalog CatalogReader, sessions SessionResolver, coupons CouponEvaluator) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		catalog:  catalog,
		sessions: sessions,
		coupons:  coupons,
		now:      time.Now,
	}
}

type LineParams struct {
	ItemID   string
	Quantity int
	Notes    string
}

type CreateParams struct {
	SessionID   string
	Items       []LineParams
	CouponCode  *string
	ChairNumber *int
	Notes       string
	UserID      *string
}

// Create prices the requested lines against the catalog, applies the coupon
// best-effort, and persists the order atomically with its stock decrements.
// Session failures propagate unchanged; item problems name the item by its
// display name.
func (s *Service) Create(ctx context.Context, p CreateParams) (domain.Order, error) {
	if len(p.Items) == 0 {
		return domain.Order{}, apperr.New(apperr.Validation, "an order needs at least one item")
	}
	for _, line := range p.Items {
		if line.Quantity <= 0 {
			return domain.Order{}, apperr.New(apperr.Validation, "item quantity must be positive")
		}
	}

	routing, err := s.sessions.Routing(ctx, p.SessionID)
	if err != nil {
		return domain.Order{}, err
	}

	ids := make([]string, 0, len(p.Items))
	for _, line := range p.Items {
		ids = append(ids, line.ItemID)
	}
	items, err := s.catalog.ItemsByIDs(ctx, routing.TenantID, ids)
	if err != nil {
		return domain.Order{}, err
	}

	names := make(map[string]string, len(items))
	lines := make([]domain.Item, 0, len(p.Items))
	var decrements []StockDecrement
	for _, line := range p.Items {
		item, ok := items[line.ItemID]
		if !ok {
			return domain.Order{}, apperr.New(apperr.NotFound, "item not found")
		}
		names[item.ID] = item.Name
		if !item.Orderable() {
			return domain.Order{}, apperr.Newf(apperr.InvalidState, "%s is not available", item.Name)
		}
		if item.Stock != nil {
			if int(*item.Stock) < line.Quantity {
				return domain.Order{}, apperr.Newf(apperr.InvalidState, "Insufficient stock for %s", item.Name)
			}
			decrements = append(decrements, StockDecrement{ItemID: item.ID, Quantity: line.Quantity})
		}
		lines = append(lines, domain.Item{
			ID:             uuid.NewString(),
			ItemID:         item.ID,
			Name:           item.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: item.UnitPrice(),
			Notes:          line.Notes,
		})
	}

	userID := routing.UserID
	if userID == nil {
		userID = p.UserID
	}

	now := s.now().UTC()
	o := domain.Order{
		ID:          uuid.NewString(),
		TenantID:    routing.TenantID,
		SessionID:   routing.SessionID,
		SpaceID:     routing.SpaceID,
		UserID:      userID,
		Items:       lines,
		Status:      domain.StatusPending,
		ChairNumber: p.ChairNumber,
		Notes:       p.Notes,
		PlacedAt:    now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	o.Recalculate()

	// The coupon is best-effort: a code that fails validation is dropped
	// and the order proceeds at full price.
	if p.CouponCode != nil && *p.CouponCode != "" {
		quote, err := s.coupons.Validate(ctx, routing.TenantID, *p.CouponCode, o.SubtotalCents, userID)
		switch {
		case err == nil:
			o.CouponID = &quote.CouponID
			o.DiscountCents = quote.DiscountCents
			o.Recalculate()
		case apperr.Is(err, apperr.NotFound) || apperr.Is(err, apperr.InvalidState):
			s.log.Info("coupon ignored", "code", *p.CouponCode, "reason", err.Error())
		default:
			return domain.Order{}, err
		}
	}

	created, err := s.repo.Create(ctx, o, decrements)
	if errors.Is(err, ErrCouponExhausted) {
		// Lost the usage-limit race after validation; drop the coupon and
		// place the order at full price.
		s.log.Info("coupon exhausted during creation, retrying without it", "order_id", o.ID)
		o.CouponID = nil
		o.DiscountCents = 0
		o.Recalculate()
		created, err = s.repo.Create(ctx, o, decrements)
	}
	if err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			return domain.Order{}, apperr.Newf(apperr.InvalidState, "Insufficient stock for %s", names[stockErr.ItemID])
		}
		return domain.Order{}, err
	}
	return created, nil
}

// Get fetches an order with its lines.
func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, apperr.New(apperr.NotFound, "order not found")
		}
		return domain.Order{}, err
	}
	return o, nil
}

func (s *Service) ListBySession(ctx context.Context, sessionID string) ([]domain.Order, error) {
	return s.repo.ListBySession(ctx, sessionID)
}

func (s *Service) ListByTenant(ctx context.Context, tenantID string, status *domain.Status, limit, offset int) ([]domain.Order, error) {
	if status != nil && !status.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown status %q", *status)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByTenant(ctx, tenantID, status, limit, offset)
}

// UpdateStatus moves the order along the forward-only lifecycle. Repeating
// the current status is a no-op returning the unchanged order.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, target domain.Status, tenantID string) (domain.Order, error) {
	if !target.Valid() {
		return domain.Order{}, apperr.Newf(apperr.Validation, "unknown status %q", target)
	}

	o, err := s.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.TenantID != tenantID {
		return domain.Order{}, apperr.New(apperr.Forbidden, "order belongs to a different tenant")
	}
	if o.Status == target {
		return o, nil
	}
	if !o.Status.CanTransitionTo(target) {
		return domain.Order{}, apperr.Newf(apperr.InvalidState, "cannot transition order from %s to %s", o.Status, target)
	}

	return s.repo.UpdateStatus(ctx, orderID, target)
}
