package workflows

import (
	"context"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/services/approval/application/services"
)

// Activities are the side-effecting halves of the timer workflow. Each one
// delegates to the approval engine, which re-reads the request and no-ops when
// the step already completed.
type Activities struct {
	svc *services.ApprovalService
}

func NewActivities(svc *services.ApprovalService) *Activities {
	return &Activities{svc: svc}
}

// SendApprovalReminder publishes the reminder event for a still-pending step.
func (a *Activities) SendApprovalReminder(ctx context.Context, approvalRequestID uuid.UUID, stepIndex int, reminderType string) error {
	return a.svc.OnReminderDue(ctx, approvalRequestID, stepIndex, reminderType)
}

// FireApprovalTimeout escalates or expires a step whose deadline elapsed.
func (a *Activities) FireApprovalTimeout(ctx context.Context, approvalRequestID uuid.UUID, stepIndex int) error {
	return a.svc.OnStepTimeout(ctx, approvalRequestID, stepIndex)
}
