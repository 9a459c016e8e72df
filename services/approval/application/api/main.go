package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/campusreserve/pkg/app"
	"github.com/ghuser/campusreserve/services/approval/application/handlers"
	appsvcs "github.com/ghuser/campusreserve/services/approval/application/services"
	"github.com/ghuser/campusreserve/services/approval/application/workflows"
)

// ApprovalRoutes registers approval endpoints on the provided chi router.
func ApprovalRoutes(r chi.Router, a *app.Application) {
	scheduler := workflows.NewTemporalScheduler(a.TemporalClient, a.Cfg.TemporalTaskQueue, a.Logger)
	svcs := appsvcs.New(a, scheduler)
	r.Group(func(r chi.Router) {
		r.Route("/approvals", func(r chi.Router) {
			r.Get("/{reservationID}", handlers.NewGetApprovalHandler(svcs).Execute)
			r.Post("/{reservationID}/decision", handlers.NewPostDecisionHandler(svcs).Execute)
			r.Put("/flows/{flowID}", handlers.NewPutFlowHandler(svcs).Execute)
		})
	})
}
