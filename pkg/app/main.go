package app

import (
	"github.com/gorilla/sessions"

	"github.com/ghuser/campusreserve/pkg/cache"
	"github.com/ghuser/campusreserve/pkg/config"
	"github.com/ghuser/campusreserve/pkg/database"
	"github.com/ghuser/campusreserve/pkg/events"
	"github.com/ghuser/campusreserve/pkg/logger"
	"github.com/ghuser/campusreserve/pkg/workflows"
)

// Application holds shared infrastructure dependencies for all bounded
// contexts. Pass it to each context's route registration call during server
// initialization.
//
// Logging: app.Logger is backed by a trace-aware handler â€” use slog's context methods
// and trace_id, span_id, and request_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "processing item", "item_id", id)
//	app.Logger.ErrorContext(ctx, "failed to save", "error", err)
//
// Use app.Logger.Info/Error (no context) only for startup and shutdown messages.
type Application struct {
	Cfg            *config.Config
	Db             *database.Database
	Logger         logger.Logger
	EventBus       *events.EventBus
	Redis          *cache.RedisClient
	TemporalClient *workflows.TemporalClient
	SessionStore   sessions.Store // Redis-backed session store; nil in worker process
}
