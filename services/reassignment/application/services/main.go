package services

import (
	"github.com/ghuser/campusreserve/pkg/app"
	domainservices "github.com/ghuser/campusreserve/services/reassignment/domain/services"
	"github.com/ghuser/campusreserve/services/reassignment/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for the reassignment context.
type Services struct {
	Reassignment *ReassignmentService
}

// New wires the reassignment engine with infrastructure from the Application
// container. Scoring weights come from configuration, normalized at load.
func New(a *app.Application) *Services {
	repo := postgres.NewReassignmentRepository(a.Db, a.EventBus)
	directory := postgres.NewResourceDirectory(a.Db)
	scorer := domainservices.NewScorer(domainservices.Weights{
		Capacity:     a.Cfg.ScoreWeightCapacity,
		Features:     a.Cfg.ScoreWeightFeatures,
		Location:     a.Cfg.ScoreWeightLocation,
		Availability: a.Cfg.ScoreWeightAvailability,
	})
	return &Services{
		Reassignment: NewReassignmentService(repo, directory, scorer, a.EventBus, a.Logger),
	}
}
