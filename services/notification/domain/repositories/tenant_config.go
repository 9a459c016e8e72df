package repositories

import (
	"context"

	"github.com/ghuser/campusreserve/services/notification/domain/models"
)

// TenantConfigRepository stores per-tenant channel provider selections.
// Implementations cache reads; a missing config falls back to the tenant's
// defaults at the service layer.
type TenantConfigRepository interface {
	// Get returns the config for (tenantID, channel), or nil when the tenant
	// has not configured the channel.
	Get(ctx context.Context, tenantID string, channel models.Channel) (*models.ChannelConfig, error)

	Set(ctx context.Context, cfg *models.ChannelConfig) error
}
