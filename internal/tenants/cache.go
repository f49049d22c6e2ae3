package tenants

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ventia-app/ventia-backend/pkg/db/models"
	"github.com/ventia-app/ventia-backend/pkg/logger"
)

// Cache holds the external-identity → tenant mapping with a bounded TTL.
// It is an auxiliary store: failures degrade to direct database reads and
// stale entries are tolerated (subscription gating re-checks the profile).
type Cache interface {
	Get(ctx context.Context, externalID string) (*models.Tenant, bool)
	Set(ctx context.Context, externalID string, tenant *models.Tenant)
	Delete(ctx context.Context, externalID string)
}

// redisStore is the slice of the redis client the cache needs.
type redisStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	TenantKey(externalID string) string
}

type redisCache struct {
	store redisStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewRedisCache builds the shared cache over redis.
func NewRedisCache(store redisStore, ttl time.Duration, logg *logger.Logger) Cache {
	return &redisCache{store: store, ttl: ttl, logg: logg}
}

func (c *redisCache) Get(ctx context.Context, externalID string) (*models.Tenant, bool) {
	raw, err := c.store.Get(ctx, c.store.TenantKey(externalID))
	if err != nil {
		if err != goredis.Nil && c.logg != nil {
			c.logg.Warn(ctx, "tenant cache read failed: "+err.Error())
		}
		return nil, false
	}
	var tenant models.Tenant
	if err := json.Unmarshal([]byte(raw), &tenant); err != nil {
		if c.logg != nil {
			c.logg.Warn(ctx, "tenant cache entry corrupt, evicting")
		}
		c.Delete(ctx, externalID)
		return nil, false
	}
	return &tenant, true
}

func (c *redisCache) Set(ctx context.Context, externalID string, tenant *models.Tenant) {
	payload, err := json.Marshal(tenant)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, c.store.TenantKey(externalID), string(payload), c.ttl); err != nil && c.logg != nil {
		c.logg.Warn(ctx, "tenant cache write failed: "+err.Error())
	}
}

func (c *redisCache) Delete(ctx context.Context, externalID string) {
	if err := c.store.Del(ctx, c.store.TenantKey(externalID)); err != nil && c.logg != nil {
		c.logg.Warn(ctx, "tenant cache eviction failed: "+err.Error())
	}
}

type memoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache builds the in-process fallback used when redis is not
// configured. Entries are not shared across instances.
func NewMemoryCache(ttl time.Duration) Cache {
	return &memoryCache{store: gocache.New(ttl, 2*ttl)}
}

func (c *memoryCache) Get(_ context.Context, externalID string) (*models.Tenant, bool) {
	v, ok := c.store.Get(externalID)
	if !ok {
		return nil, false
	}
	tenant, ok := v.(*models.Tenant)
	return tenant, ok
}

func (c *memoryCache) Set(_ context.Context, externalID string, tenant *models.Tenant) {
	c.store.SetDefault(externalID, tenant)
}

func (c *memoryCache) Delete(_ context.Context, externalID string) {
	c.store.Delete(externalID)
}
