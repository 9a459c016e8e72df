package services

import (
	"time"

	"github.com/ghuser/campusreserve/pkg/app"
	"github.com/ghuser/campusreserve/services/approval/domain/repositories"
	"github.com/ghuser/campusreserve/services/approval/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for the approval context.
type Services struct {
	Approval *ApprovalService
	Flows    repositories.FlowStore
}

// New wires the approval engine with infrastructure from the Application
// container. The TimerScheduler is injected by the caller because its
// Temporal-backed implementation lives next to the workflow code.
func New(a *app.Application, scheduler TimerScheduler) *Services {
	repo := postgres.NewApprovalRepository(a.Db, a.EventBus)
	flows := postgres.NewFlowRegistry(a.Db, time.Duration(a.Cfg.ApprovalStepTimeoutMinutes)*time.Minute)
	return &Services{
		Approval: NewApprovalService(repo, flows, a.EventBus, scheduler, a.Logger),
		Flows:    flows,
	}
}
