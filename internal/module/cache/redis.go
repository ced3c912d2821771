package cache

import (
	"context"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	id "cortex/pkg/domain"
)

// redisTTL is a backstop only; explicit invalidation is the consistency
// mechanism.
const redisTTL = time.Hour

// Redis is a shared entitlement cache for multi-instance deployments.
// Errors degrade to cache misses so the store stays authoritative.
type Redis struct {
	client *goredis.Client
	logger *slog.Logger
}

// NewRedis creates a Redis-backed entitlement cache.
func NewRedis(client *goredis.Client, logger *slog.Logger) *Redis {
	return &Redis{client: client, logger: logger}
}

func (c *Redis) Get(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID) (bool, bool) {
	val, err := c.client.Get(ctx, Key(tenantID, moduleID)).Result()
	if err != nil {
		if err != goredis.Nil && c.logger != nil {
			c.logger.WarnContext(ctx, "entitlement cache read failed", "error", err)
		}
		return false, false
	}
	return val == "1", true
}

func (c *Redis) Set(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID, enabled bool) {
	val := "0"
	if enabled {
		val = "1"
	}
	if err := c.client.Set(ctx, Key(tenantID, moduleID), val, redisTTL).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "entitlement cache write failed", "error", err)
	}
}

func (c *Redis) Invalidate(ctx context.Context, tenantID id.TenantID, moduleID id.ModuleID) {
	if err := c.client.Del(ctx, Key(tenantID, moduleID)).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "entitlement cache invalidation failed", "error", err)
	}
}
