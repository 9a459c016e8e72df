package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/campusreserve/pkg/app"
	"github.com/ghuser/campusreserve/services/notification/application/handlers"
	appsvcs "github.com/ghuser/campusreserve/services/notification/application/services"
)

// NotificationRoutes registers notification endpoints on the provided chi router.
func NotificationRoutes(r chi.Router, a *app.Application) {
	svcs := appsvcs.New(a)
	r.Group(func(r chi.Router) {
		r.Route("/notifications", func(r chi.Router) {
			r.Post("/send", handlers.NewPostSendHandler(svcs).Execute)
			r.Post("/batch", handlers.NewPostBatchHandler(svcs).Execute)
			r.Put("/tenants/{tenantID}/channels/{channel}", handlers.NewPutTenantConfigHandler(svcs).Execute)
		})
	})
}
