package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// TenantConfigTTL is the time-to-live for cached tenant notifier configs.
	TenantConfigTTL = time.Hour

	tenantConfigKeyPrefix = "notifier_cfg"
)

// TenantNotifierConfig is the per-tenant, per-channel notification provider
// selection stored in Redis in front of the tenant configuration store.
// Provider names are resolved by the notification dispatcher ("mock" selects
// the built-in no-op provider).
type TenantNotifierConfig struct {
	TenantID string `json:"tenant_id"`
	Channel  string `json:"channel"`
	Provider string `json:"provider"`
	Sender   string `json:"sender"`
	Enabled  bool   `json:"enabled"`
}

// TenantConfigCache provides read/write operations for tenant notifier
// configuration entries. Key format: "notifier_cfg:{tenantID}:{channel}".
type TenantConfigCache struct {
	client *RedisClient
}

// NewTenantConfigCache creates a cache backed by the given RedisClient.
func NewTenantConfigCache(r *RedisClient) *TenantConfigCache {
	return &TenantConfigCache{client: r}
}

// Get retrieves the cached config for a tenant + channel.
// Returns redis.Nil error when the key does not exist or has expired.
func (c *TenantConfigCache) Get(ctx context.Context, tenantID, channel string) (*TenantNotifierConfig, error) {
	key := c.key(tenantID, channel)
	vals, err := c.client.Client().HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("tenant config get: %w", err)
	}
	if len(vals) == 0 {
		return nil, redis.Nil
	}

	enabled, err := strconv.ParseBool(vals["enabled"])
	if err != nil {
		return nil, fmt.Errorf("tenant config parse enabled: %w", err)
	}

	return &TenantNotifierConfig{
		TenantID: vals["tenant_id"],
		Channel:  vals["channel"],
		Provider: vals["provider"],
		Sender:   vals["sender"],
		Enabled:  enabled,
	}, nil
}

// Set writes a tenant notifier config as a Redis hash with a 1-hour TTL.
// Uses a pipeline to set all fields and the TTL atomically.
func (c *TenantConfigCache) Set(ctx context.Context, cfg *TenantNotifierConfig) error {
	key := c.key(cfg.TenantID, cfg.Channel)
	pipe := c.client.Client().Pipeline()
	pipe.HSet(ctx, key,
		"tenant_id", cfg.TenantID,
		"channel", cfg.Channel,
		"provider", cfg.Provider,
		"sender", cfg.Sender,
		"enabled", strconv.FormatBool(cfg.Enabled),
	)
	pipe.Expire(ctx, key, TenantConfigTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("tenant config set: %w", err)
	}
	return nil
}

// Delete removes a cached config, forcing the next lookup through to the store.
func (c *TenantConfigCache) Delete(ctx context.Context, tenantID, channel string) error {
	if err := c.client.Client().Del(ctx, c.key(tenantID, channel)).Err(); err != nil {
		return fmt.Errorf("tenant config delete: %w", err)
	}
	return nil
}

func (c *TenantConfigCache) key(tenantID, channel string) string {
	return fmt.Sprintf("%s:%s:%s", tenantConfigKeyPrefix, tenantID, channel)
}
