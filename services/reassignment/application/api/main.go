package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/campusreserve/pkg/app"
	"github.com/ghuser/campusreserve/services/reassignment/application/handlers"
	appsvcs "github.com/ghuser/campusreserve/services/reassignment/application/services"
)

// ReassignmentRoutes registers reassignment endpoints on the provided chi router.
func ReassignmentRoutes(r chi.Router, a *app.Application) {
	svcs := appsvcs.New(a)
	r.Group(func(r chi.Router) {
		r.Route("/reassignment", func(r chi.Router) {
			r.Post("/request", handlers.NewPostRequestHandler(svcs).Execute)
			r.Post("/respond", handlers.NewPostRespondHandler(svcs).Execute)
		})
	})
}
