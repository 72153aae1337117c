package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tabletap/tabletap/internal/session/domain"
)

const keyPrefix = "session:routing:"

// Cache stores session routing fields under a session-id-prefixed key. The
// entry is written once at open and deleted at close; expiry is enforced by
// the key TTL.
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func (c *Cache) Put(ctx context.Context, r domain.Routing, ttl time.Duration) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyPrefix+r.SessionID, payload, ttl).Err()
}

func (c *Cache) Get(ctx context.Context, sessionID string) (domain.Routing, bool, error) {
	payload, err := c.rdb.Get(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Routing{}, false, nil
	}
	if err != nil {
		return domain.Routing{}, false, err
	}
	var r domain.Routing
	if err := json.Unmarshal(payload, &r); err != nil {
		return domain.Routing{}, false, err
	}
	return r, true, nil
}

func (c *Cache) Delete(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, keyPrefix+sessionID).Err()
}
