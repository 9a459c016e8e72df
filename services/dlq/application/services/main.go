package services

import (
	"github.com/ghuser/campusreserve/pkg/app"
	"github.com/ghuser/campusreserve/services/dlq/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for the dead-letter context.
type Services struct {
	DLQ *DLQService
}

// New wires the dead-letter manager with infrastructure from the Application
// container. The returned DLQService doubles as the bus's DeadLetterSink.
func New(a *app.Application) *Services {
	repo := postgres.NewDLQRepository(a.Db)
	return &Services{
		DLQ: NewDLQService(repo, a.EventBus, a.Logger),
	}
}
