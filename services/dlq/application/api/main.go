package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/campusreserve/pkg/app"
	"github.com/ghuser/campusreserve/services/dlq/application/handlers"
	appsvcs "github.com/ghuser/campusreserve/services/dlq/application/services"
)

// DLQRoutes registers dead-letter triage endpoints on the provided chi router.
func DLQRoutes(r chi.Router, a *app.Application) {
	svcs := appsvcs.New(a)
	r.Group(func(r chi.Router) {
		r.Route("/dlq", func(r chi.Router) {
			r.Get("/", handlers.NewGetDLQHandler(svcs).Execute)
			r.Get("/stats", handlers.NewGetStatsHandler(svcs).Execute)
			r.Post("/{id}/resolve", handlers.NewPostResolveHandler(svcs).Execute)
			r.Post("/{id}/retry", handlers.NewPostRetryHandler(svcs).Execute)
		})
	})
}
