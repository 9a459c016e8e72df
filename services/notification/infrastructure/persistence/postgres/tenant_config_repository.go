// Package postgres stores tenant notification configuration with a Redis
// read-through cache in front of the table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ghuser/campusreserve/pkg/cache"
	"github.com/ghuser/campusreserve/pkg/database"
	"github.com/ghuser/campusreserve/pkg/logger"
	"github.com/ghuser/campusreserve/services/notification/domain/models"
	"github.com/ghuser/campusreserve/services/notification/domain/repositories"
)

// TenantConfigRepository implements repositories.TenantConfigRepository:
// PostgreSQL as the source of truth, TenantConfigCache for hot reads.
type TenantConfigRepository struct {
	db    *database.Database
	cache *cache.TenantConfigCache
	log   logger.Logger
}

var _ repositories.TenantConfigRepository = (*TenantConfigRepository)(nil)

func NewTenantConfigRepository(db *database.Database, c *cache.TenantConfigCache, log logger.Logger) *TenantConfigRepository {
	return &TenantConfigRepository{db: db, cache: c, log: log}
}

// Get serves from cache when possible, falling back to the table and
// repopulating the cache. A tenant without a row returns (nil, nil).
func (r *TenantConfigRepository) Get(ctx context.Context, tenantID string, channel models.Channel) (*models.ChannelConfig, error) {
	cached, err := r.cache.Get(ctx, tenantID, string(channel))
	if err == nil {
		return fromCacheConfig(cached), nil
	}
	if !errors.Is(err, redis.Nil) {
		// Cache trouble must not block delivery; fall through to the table.
		r.log.WarnContext(ctx, "tenant config cache read failed",
			"tenant_id", tenantID, "channel", channel, "error", err)
	}

	var cfg models.ChannelConfig
	err = r.db.DB().QueryRowContext(ctx, `
		SELECT tenant_id, channel, provider, sender, enabled
		FROM tenant_notification_configs
		WHERE tenant_id = $1 AND channel = $2`, tenantID, string(channel),
	).Scan(&cfg.TenantID, &cfg.Channel, &cfg.Provider, &cfg.Sender, &cfg.Enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query tenant notification config: %w", err)
	}

	if err := r.cache.Set(ctx, toCacheConfig(&cfg)); err != nil {
		r.log.WarnContext(ctx, "tenant config cache write failed",
			"tenant_id", tenantID, "channel", channel, "error", err)
	}
	return &cfg, nil
}

// Set upserts the table row and refreshes the cache entry.
func (r *TenantConfigRepository) Set(ctx context.Context, cfg *models.ChannelConfig) error {
	_, err := r.db.DB().ExecContext(ctx, `
		INSERT INTO tenant_notification_configs (tenant_id, channel, provider, sender, enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (tenant_id, channel) DO UPDATE SET
			provider = EXCLUDED.provider,
			sender = EXCLUDED.sender,
			enabled = EXCLUDED.enabled,
			updated_at = now()`,
		cfg.TenantID, string(cfg.Channel), cfg.Provider, cfg.Sender, cfg.Enabled,
	)
	if err != nil {
		return fmt.Errorf("upsert tenant notification config: %w", err)
	}
	if err := r.cache.Set(ctx, toCacheConfig(cfg)); err != nil {
		r.log.WarnContext(ctx, "tenant config cache refresh failed",
			"tenant_id", cfg.TenantID, "channel", cfg.Channel, "error", err)
	}
	return nil
}

func toCacheConfig(cfg *models.ChannelConfig) *cache.TenantNotifierConfig {
	return &cache.TenantNotifierConfig{
		TenantID: cfg.TenantID,
		Channel:  string(cfg.Channel),
		Provider: cfg.Provider,
		Sender:   cfg.Sender,
		Enabled:  cfg.Enabled,
	}
}

func fromCacheConfig(cfg *cache.TenantNotifierConfig) *models.ChannelConfig {
	return &models.ChannelConfig{
		TenantID: cfg.TenantID,
		Channel:  models.Channel(cfg.Channel),
		Provider: cfg.Provider,
		Sender:   cfg.Sender,
		Enabled:  cfg.Enabled,
	}
}
