package identity

import (
	"context"
	"errors"
	"time"

	"kudos-controlplane/pkg/config"
	"kudos-controlplane/pkg/rediskey"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{Name: "identity_cache_hits_total"})
	cacheMiss = promauto.NewCounter(prometheus.CounterOpts{Name: "identity_cache_miss_total"})
)

// Cache is a read-through cache of handle bindings.
type Cache interface {
	Get(ctx context.Context, handle string) (account string, ok bool, err error)
	Set(ctx context.Context, handle, account string) error
}

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

type CacheParams struct {
	fx.In
	Config *config.Config
	Redis  *redis.Client `optional:"true"`
}

// NewCache returns a redis backed cache, or nil when redis is disabled.
func NewCache(p CacheParams) Cache {
	if p.Redis == nil {
		return nil
	}
	return &redisCache{rdb: p.Redis, ttl: p.Config.Redis.CacheTTL}
}

func (c *redisCache) Get(ctx context.Context, handle string) (string, bool, error) {
	account, err := c.rdb.Get(ctx, rediskey.BuildIdentityHandleKey(handle)).Result()
	if errors.Is(err, redis.Nil) {
		cacheMiss.Inc()
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	cacheHits.Inc()
	return account, true, nil
}

func (c *redisCache) Set(ctx context.Context, handle, account string) error {
	return c.rdb.Set(ctx, rediskey.BuildIdentityHandleKey(handle), account, c.ttl).Err()
}
