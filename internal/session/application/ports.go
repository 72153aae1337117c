package application

import (
	"context"
	"time"

	catalog "github.com/tabletap/tabletap/internal/catalog/domain"
	"github.com/tabletap/tabletap/internal/session/domain"
)

type Space struct {
	ID       string
	TenantID string
	Active   bool
}

type SessionRepository interface {
	ResolveSpace(ctx context.Context, code string) (Space, error)
	Create(ctx context.Context, s domain.Session) error
	Get(ctx context.Context, id string) (domain.Session, error)
	// Probe returns only status and expiry, the authoritative check that a
	// cache hit must not bypass.
	Probe(ctx context.Context, id string) (domain.Status, time.Time, error)
	Close(ctx context.Context, id string) (domain.Session, error)
}

// RoutingCache is the non-authoritative accelerator holding routing fields
// keyed by session id with a TTL equal to the session's remaining lifetime.
type RoutingCache interface {
	Put(ctx context.Context, r domain.Routing, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (domain.Routing, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

type MenuReader interface {
	Menu(ctx context.Context, tenantID string) ([]catalog.Category, error)
}
