package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "github.com/tabletap/tabletap/internal/catalog/domain"
	coupon "github.com/tabletap/tabletap/internal/coupon/application"
	"github.com/tabletap/tabletap/internal/order/domain"
	session "github.com/tabletap/tabletap/internal/session/domain"
	"github.com/tabletap/tabletap/pkg/apperr"
)

func ptr[T any](v T) *T { return &v }

type fakeRepo struct {
	orders       map[string]domain.Order
	seq          int
	failCoupon   int // fail the next n creates with ErrCouponExhausted
	failStockFor string
	created      []domain.Order
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[string]domain.Order{}}
}

func (f *fakeRepo) Create(_ context.Context, o domain.Order, decrements []StockDecrement) (domain.Order, error) {
	if f.failStockFor != "" {
		for _, d := range decrements {
			if d.ItemID == f.failStockFor {
				return domain.Order{}, &InsufficientStockError{ItemID: d.ItemID}
			}
		}
	}
	if o.CouponID != nil && f.failCoupon > 0 {
		f.failCoupon--
		return domain.Order{}, ErrCouponExhausted
	}
	f.seq++
	o.Number = fmt.Sprintf("ORD-%06d", f.seq)
	f.orders[o.ID] = o
	f.created = append(f.created, o)
	return o, nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeRepo) ListBySession(_ context.Context, sessionID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.SessionID == sessionID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListByTenant(_ context.Context, tenantID string, status *domain.Status, _, _ int) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.TenantID == tenantID && (status == nil || o.Status == *status) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id string, target domain.Status) (domain.Order, error) {
	o := f.orders[id]
	if !o.Status.CanTransitionTo(target) {
		return domain.Order{}, apperr.Newf(apperr.InvalidState, "cannot transition order from %s to %s", o.Status, target)
	}
	o.Status = target
	now := time.Now()
	switch target {
	case domain.StatusAccepted:
		if o.AcceptedAt == nil {
			o.AcceptedAt = &now
		}
	case domain.StatusPreparing:
		if o.PreparingAt == nil {
			o.PreparingAt = &now
		}
	case domain.StatusReady:
		if o.ReadyAt == nil {
			o.ReadyAt = &now
		}
	case domain.StatusDelivered:
		if o.DeliveredAt == nil {
			o.DeliveredAt = &now
		}
	case domain.StatusCancelled:
		if o.CancelledAt == nil {
			o.CancelledAt = &now
		}
	}
	f.orders[id] = o
	return o, nil
}

type fakeCatalog struct {
	items map[string]catalog.Item
}

func (f *fakeCatalog) ItemsByIDs(_ context.Context, tenantID string, ids []string) (map[string]catalog.Item, error) {
	out := map[string]catalog.Item{}
	for _, id := range ids {
		if it, ok := f.items[id]; ok && it.TenantID == tenantID {
			out[id] = it
		}
	}
	return out, nil
}

type fakeSessions struct {
	routing map[string]session.Routing
	err     error
}

func (f *fakeSessions) Routing(_ context.Context, id string) (session.Routing, error) {
	if f.err != nil {
		return session.Routing{}, f.err
	}
	r, ok := f.routing[id]
	if !ok {
		return session.Routing{}, apperr.New(apperr.NotFound, "session not found")
	}
	return r, nil
}

type fakeCoupons struct {
	quotes map[string]coupon.Quote
	errs   map[string]error
}

func (f *fakeCoupons) Validate(_ context.Context, _, code string, _ int64, _ *string) (coupon.Quote, error) {
	if err, ok := f.errs[code]; ok {
		return coupon.Quote{}, err
	}
	q, ok := f.quotes[code]
	if !ok {
		return coupon.Quote{}, apperr.New(apperr.NotFound, "coupon not found")
	}
	return q, nil
}

type fixture struct {
	repo     *fakeRepo
	catalog  *fakeCatalog
	sessions *fakeSessions
	coupons  *fakeCoupons
	svc      *Service
}

func newFixture() *fixture {
	stock := int32(5)
	f := &fixture{
		repo: newFakeRepo(),
		catalog: &fakeCatalog{items: map[string]catalog.Item{
			"coffee": {ID: "coffee", TenantID: "tenant-1", Name: "Coffee", PriceCents: 80, Available: true, Active: true, Stock: &stock},
			"water":  {ID: "water", TenantID: "tenant-1", Name: "Water", PriceCents: 100, IsFree: true, Available: true, Active: true},
			"cake":   {ID: "cake", TenantID: "tenant-1", Name: "Chocolate Cake", PriceCents: 200, Available: false, Active: true},
		}},
		sessions: &fakeSessions{routing: map[string]session.Routing{
			"sess-1": {SessionID: "sess-1", TenantID: "tenant-1", SpaceID: "space-1"},
		}},
		coupons: &fakeCoupons{
			quotes: map[string]coupon.Quote{
				"WELCOME10": {CouponID: "coupon-1", Code: "WELCOME10", DiscountCents: 16, FinalCents: 144},
			},
			errs: map[string]error{},
		},
	}
	f.svc = NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), f.repo, f.catalog, f.sessions, f.coupons)
	return f
}

func TestCreatePricesAndSnapshotsLines(t *testing.T) {
	f := newFixture()

	o, err := f.svc.Create(context.Background(), CreateParams{
		SessionID: "sess-1",
		Items:     []LineParams{{ItemID: "coffee", Quantity: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, "ORD-000001", o.Number)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, int64(160), o.SubtotalCents)
	assert.Equal(t, int64(0), o.DiscountCents)
	assert.Equal(t, int64(160), o.TotalCents)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Coffee", o.Items[0].Name)
	assert.Equal(t, int64(80), o.Items[0].UnitPriceCents)
	assert.Equal(t, int64(160), o.Items[0].LineTotalCents)
}

func TestCreateFreeItemSnapshotsZeroPrice(t *testing.T) {
	f := newFixture()

	o, err := f.svc.Create(context.Background(), CreateParams{
		SessionID: "sess-1",
		Items:     []LineParams{{ItemID: "water", Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), o.Items[0].UnitPriceCents)
	assert.Equal(t, int64(0), o.TotalCents)
}

func TestCreateUnavailableItemNamesIt(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), CreateParams{
		SessionID: "sess-1",
		Items:     []LineParams{{ItemID: "cake", Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.InvalidState))
	assert.Contains(t, err.Error(), "Chocolate Cake is not available")
}

func TestCreateInsufficientStockPrecheck(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), CreateParams{
		SessionID: "sess-1",
		Items:     []LineParams{{ItemID: "coffee", Quantity: 6}},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.InvalidState))
	assert.Contains(t, err.Error(), "Insufficient stock for Coffee")
}

func TestCreateStockRaceNamesItem(t *testing.T) {
	f := newFixture()
	f.repo.failStockFor = "coffee"

	_, err := f.svc.Create(context.Background(), CreateParams{
		SessionID: "sess-1",
		Items:     []LineParams{{ItemID: "coffee", Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.InvalidState))
	assert.Contains(t, err.Error(), "Insufficient stock for Coffee")
}

func TestCreateAppliesCoupon(t *testing.T) {
	f := newFixture()

	o, err := f.svc.Create(context.Background(), CreateParams{
		SessionID:  "sess-1",
		Items:      []LineParams{{ItemID: "coffee", Quantity: 2}},
		CouponCode: ptr("WELCOME10"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(160), o.SubtotalCents)
	assert.Equal(t, int64(16), o.DiscountCents)
	assert.Equal(t, int64(144), o.TotalCents)
	require.NotNil(t, o.CouponID)
	assert.Equal(t, "coupon-1", *o.CouponID)
}

func TestCreateIgnoresFailingCoupon(t *testing.T) {
	f := newFixture()
	f.coupons.errs["EXPIRED"] = apperr.New(apperr.InvalidState, "coupon is outside its validity window")

	o, err := f.svc.Create(context.Background(), CreateParams{
		SessionID:  "sess-1",
		Items:      []LineParams{{ItemID: "coffee", Quantity: 2}},
		CouponCode: ptr("EXPIRED"),
	})
	require.NoError(t, err, "a failing coupon must not abort the order")
	assert.Nil(t, o.CouponID)
	assert.Equal(t, int64(160), o.TotalCents)
}

func TestCreateRetriesWithoutCouponOnExhaustionRace(t *testing.T) {
	f := newFixture()
	f.repo.failCoupon = 1

	o, err := f.svc.Create(context.Background(), CreateParams{
		SessionID:  "sess-1",
		Items:      []LineParams{{ItemID: "coffee", Quantity: 2}},
		CouponCode: ptr("WELCOME10"),
	})
	require.NoError(t, err)
	assert.Nil(t, o.CouponID)
	assert.Equal(t, o.SubtotalCents, o.TotalCents, "second attempt runs at full price")
	assert.Len(t, f.repo.created, 1, "only the retry persisted")
}

func TestCreatePropagatesSessionFailure(t *testing.T) {
	f := newFixture()
	f.sessions.err = apperr.New(apperr.InvalidState, "session is closed or expired")

	_, err := f.svc.Create(context.Background(), CreateParams{
		SessionID: "sess-1",
		Items:     []LineParams{{ItemID: "coffee", Quantity: 1}},
	})
	assert.True(t, apperr.Is(err, apperr.InvalidState))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), CreateParams{SessionID: "sess-1"})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.svc.Create(context.Background(), CreateParams{
		SessionID: "sess-1",
		Items:     []LineParams{{ItemID: "coffee", Quantity: 0}},
	})
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestUpdateStatusHappyPath(t *testing.T) {
	f := newFixture()
	o, err := f.svc.Create(context.Background(), CreateParams{
		SessionID: "sess-1",
		Items:     []LineParams{{ItemID: "coffee", Quantity: 1}},
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(context.Background(), o.ID, domain.StatusAccepted, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, updated.Status)
	assert.NotNil(t, updated.AcceptedAt)
}

func TestUpdateStatusRejectsBackward(t *testing.T) {
	f := newFixture()
	o, _ := f.svc.Create(context.Background(), CreateParams{
		SessionID: "sess-1",
		Items:     []LineParams{{ItemID: "coffee", Quantity: 1}},
	})
	_, err := f.svc.UpdateStatus(context.Background(), o.ID, domain.StatusAccepted, "tenant-1")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), o.ID, domain.StatusPreparing, "tenant-1")
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), o.ID, domain.StatusPending, "tenant-1")
	assert.True(t, apperr.Is(err, apperr.InvalidState))
}

func TestUpdateStatusCrossTenantForbidden(t *testing.T) {
	f := newFixture()
	o, _ := f.svc.Create(context.Background(), CreateParams{
		SessionID: "sess-1",
		Items:     []LineParams{{ItemID: "coffee", Quantity: 1}},
	})

	_, err := f.svc.UpdateStatus(context.Background(), o.ID, domain.StatusAccepted, "tenant-2")
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestUpdateStatusSameStatusIsIdempotent(t *testing.T) {
	f := newFixture()
	o, _ := f.svc.Create(context.Background(), CreateParams{
		SessionID: "sess-1",
		Items:     []LineParams{{ItemID: "coffee", Quantity: 1}},
	})
	first, err := f.svc.UpdateStatus(context.Background(), o.ID, domain.StatusAccepted, "tenant-1")
	require.NoError(t, err)

	second, err := f.svc.UpdateStatus(context.Background(), o.ID, domain.StatusAccepted, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, first.AcceptedAt, second.AcceptedAt, "repeat keeps the original timestamp")
}

func TestUpdateStatusPreservesEarlierTimestamps(t *testing.T) {
	f := newFixture()
	o, _ := f.svc.Create(context.Background(), CreateParams{
		SessionID: "sess-1",
		Items:     []LineParams{{ItemID: "coffee", Quantity: 1}},
	})
	accepted, err := f.svc.UpdateStatus(context.Background(), o.ID, domain.StatusAccepted, "tenant-1")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), o.ID, domain.StatusPreparing, "tenant-1")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), o.ID, domain.StatusReady, "tenant-1")
	require.NoError(t, err)

	delivered, err := f.svc.UpdateStatus(context.Background(), o.ID, domain.StatusDelivered, "tenant-1")
	require.NoError(t, err)
	assert.NotNil(t, delivered.DeliveredAt)
	assert.Equal(t, accepted.AcceptedAt, delivered.AcceptedAt)
}

func TestGetNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Get(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
