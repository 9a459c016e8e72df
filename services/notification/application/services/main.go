package services

import (
	"time"

	"github.com/ghuser/campusreserve/pkg/app"
	"github.com/ghuser/campusreserve/pkg/cache"
	"github.com/ghuser/campusreserve/pkg/idempotency"
	"github.com/ghuser/campusreserve/services/notification/infrastructure/persistence/postgres"
	infraproviders "github.com/ghuser/campusreserve/services/notification/infrastructure/providers"
)

// Services is the application-layer service container for the notification context.
type Services struct {
	Notification *NotificationService
}

// New wires the dispatcher with infrastructure from the Application
// container: mock providers for every channel, cached tenant configuration,
// and delivery dedup keyed by event ID.
func New(a *app.Application) *Services {
	registry := infraproviders.NewRegistry().WithMocks(a.Logger)
	tenants := postgres.NewTenantConfigRepository(a.Db, cache.NewTenantConfigCache(a.Redis), a.Logger)
	idem := idempotency.NewStore(a.Redis, time.Duration(a.Cfg.IdempotencyTTLMinutes)*time.Minute)
	return &Services{
		Notification: NewNotificationService(a.EventBus, registry, tenants, idem, a.Logger),
	}
}
