package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	catalog "github.com/tabletap/tabletap/internal/catalog/domain"
	"github.com/tabletap/tabletap/internal/session/domain"
	"github.com/tabletap/tabletap/pkg/apperr"
)

type Service struct {
	log   *slog.Logger
	repo  SessionRepository
	cache RoutingCache
	menu  MenuReader
	now   func() time.Time
}

func NewService(log *slog.Logger, repo SessionRepository, cache RoutingCache, menu MenuReader) *Service {
	return &Service{log: log, repo: repo, cache: cache, menu: menu, now: time.Now}
}

type OpenParams struct {
	SpaceCode   string
	TTLMinutes  int
	GuestName   *string
	ChairNumber *int
	UserID      *string
}

// Open creates a session against an active space and primes the routing
// cache with a TTL matching the session lifetime.
func (s *Service) Open(ctx context.Context, p OpenParams) (domain.Session, error) {
	if p.SpaceCode == "" {
		return domain.Session{}, apperr.New(apperr.Validation, "space_code is required")
	}

	space, err := s.repo.ResolveSpace(ctx, p.SpaceCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, apperr.New(apperr.NotFound, "space not found")
		}
		return domain.Session{}, err
	}
	if !space.Active {
		return domain.Session{}, apperr.New(apperr.NotFound, "space not found")
	}

	ttl := domain.ClampTTL(p.TTLMinutes)
	now := s.now().UTC()
	sess := domain.Session{
		ID:          uuid.NewString(),
		TenantID:    space.TenantID,
		SpaceID:     space.ID,
		UserID:      p.UserID,
		GuestName:   p.GuestName,
		ChairNumber: p.ChairNumber,
		Status:      domain.StatusActive,
		ExpiresAt:   now.Add(time.Duration(ttl) * time.Minute),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return domain.Session{}, err
	}

	routing := domain.Routing{SessionID: sess.ID, TenantID: sess.TenantID, SpaceID: sess.SpaceID, UserID: sess.UserID}
	if err := s.cache.Put(ctx, routing, time.Duration(ttl)*time.Minute); err != nil {
		// Cache is advisory; the durable row is already committed.
		s.log.Warn("session cache put failed", "session_id", sess.ID, "err", err)
	}
	return sess, nil
}

// Get reads the authoritative session row and rejects closed or expired
// sessions.
func (s *Service) Get(ctx context.Context, id string) (domain.Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, apperr.New(apperr.NotFound, "session not found")
		}
		return domain.Session{}, err
	}
	if !sess.Usable(s.now()) {
		return domain.Session{}, apperr.New(apperr.InvalidState, "session is closed or expired")
	}
	return sess, nil
}

// Routing resolves the minimal routing fields for the order path. A cache
// hit skips the full row load but still probes the store for status and
// expiry; the cache never decides whether a session is usable.
func (s *Service) Routing(ctx context.Context, id string) (domain.Routing, error) {
	r, hit, err := s.cache.Get(ctx, id)
	if err != nil {
		s.log.Warn("session cache get failed", "session_id", id, "err", err)
		hit = false
	}
	if hit {
		status, expiresAt, err := s.repo.Probe(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.Routing{}, apperr.New(apperr.NotFound, "session not found")
			}
			return domain.Routing{}, err
		}
		if status != domain.StatusActive || !expiresAt.After(s.now()) {
			return domain.Routing{}, apperr.New(apperr.InvalidState, "session is closed or expired")
		}
		return r, nil
	}

	sess, err := s.Get(ctx, id)
	if err != nil {
		return domain.Routing{}, err
	}
	return domain.Routing{SessionID: sess.ID, TenantID: sess.TenantID, SpaceID: sess.SpaceID, UserID: sess.UserID}, nil
}

// Close marks the session CLOSED and evicts its cache entry. When a
// requesting user is known, only the session owner may close it.
func (s *Service) Close(ctx context.Context, id string, requestingUserID *string) (domain.Session, error) {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, apperr.New(apperr.NotFound, "session not found")
		}
		return domain.Session{}, err
	}
	if requestingUserID != nil && !sess.OwnedBy(*requestingUserID) {
		return domain.Session{}, apperr.New(apperr.Forbidden, "only the session owner may close it")
	}

	closed, err := s.repo.Close(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.Warn("session cache evict failed", "session_id", id, "err", err)
	}
	return closed, nil
}

type Menu struct {
	Session    domain.Session     `json:"session"`
	Categories []catalog.Category `json:"categories"`
}

// Menu composes the catalog snapshot for the session's tenant. It applies
// the same usability rule as Get.
func (s *Service) Menu(ctx context.Context, id string) (Menu, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return Menu{}, err
	}
	categories, err := s.menu.Menu(ctx, sess.TenantID)
	if err != nil {
		return Menu{}, err
	}
	return Menu{Session: sess, Categories: categories}, nil
}
