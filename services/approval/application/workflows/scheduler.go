package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/ghuser/campusreserve/pkg/logger"
	pkgworkflows "github.com/ghuser/campusreserve/pkg/workflows"
	"github.com/ghuser/campusreserve/services/approval/application/services"
)

// TemporalScheduler drives one timer workflow per approval request. The
// workflow ID is derived from the request ID, so scheduling a new step
// terminates the previous step's timers instead of stacking them.
type TemporalScheduler struct {
	tc        *pkgworkflows.TemporalClient
	taskQueue string
	log       logger.Logger
}

var _ services.TimerScheduler = (*TemporalScheduler)(nil)

func NewTemporalScheduler(tc *pkgworkflows.TemporalClient, taskQueue string, log logger.Logger) *TemporalScheduler {
	return &TemporalScheduler{tc: tc, taskQueue: taskQueue, log: log}
}

func timerWorkflowID(approvalRequestID uuid.UUID) string {
	return fmt.Sprintf("approval-timers-%s", approvalRequestID)
}

// Schedule starts the timer workflow for the given step, replacing any run
// still in flight for this request.
func (s *TemporalScheduler) Schedule(ctx context.Context, approvalRequestID uuid.UUID, stepIndex int, timeoutAt time.Time) error {
	opts := client.StartWorkflowOptions{
		ID:                       timerWorkflowID(approvalRequestID),
		TaskQueue:                s.taskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_TERMINATE_EXISTING,
	}
	run, err := s.tc.Client.ExecuteWorkflow(ctx, opts, ApprovalTimers, TimerInput{
		ApprovalRequestID: approvalRequestID,
		StepIndex:         stepIndex,
		TimeoutAt:         timeoutAt,
	})
	if err != nil {
		return fmt.Errorf("start approval timer workflow: %w", err)
	}
	s.log.DebugContext(ctx, "approval timers scheduled",
		"approval_request_id", approvalRequestID,
		"step", stepIndex,
		"timeout_at", timeoutAt,
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)
	return nil
}

// Cancel stops the request's timer workflow. An already-finished or missing
// workflow is not an error.
func (s *TemporalScheduler) Cancel(ctx context.Context, approvalRequestID uuid.UUID) error {
	err := s.tc.Client.CancelWorkflow(ctx, timerWorkflowID(approvalRequestID), "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("cancel approval timer workflow: %w", err)
	}
	return nil
}
