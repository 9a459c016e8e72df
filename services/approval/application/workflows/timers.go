// Package workflows hosts the Temporal workflow that backs approval step
// timeouts and reminders. Durable timers survive process restarts, and
// cancellation from the approval engine pre-empts pending fires.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/google/uuid"
)

// Reminder fire points as fractions of the step's timeout window, in strictly
// increasing order: FIRST at 50%, SECOND at 80%, FINAL at 95%.
var reminderSchedule = []struct {
	Fraction float64
	Type     string
}{
	{0.50, "FIRST"},
	{0.80, "SECOND"},
	{0.95, "FINAL"},
}

// TimerInput parametrizes one step's timer workflow run.
type TimerInput struct {
	ApprovalRequestID uuid.UUID `json:"approval_request_id"`
	StepIndex         int       `json:"step_index"`
	TimeoutAt         time.Time `json:"timeout_at"`
}

// ApprovalTimers sleeps through the reminder schedule and finally fires the
// step timeout. Every activity re-reads the request status before acting, so
// a timer that outlives a decision or cancellation is a no-op. The approval
// engine cancels this workflow when the step completes.
func ApprovalTimers(ctx workflow.Context, in TimerInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("approval timers started",
		"approval_request_id", in.ApprovalRequestID, "step", in.StepIndex, "timeout_at", in.TimeoutAt)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	start := workflow.Now(ctx)
	window := in.TimeoutAt.Sub(start)

	if window > 0 {
		for _, r := range reminderSchedule {
			fireAt := start.Add(time.Duration(float64(window) * r.Fraction))
			if d := fireAt.Sub(workflow.Now(ctx)); d > 0 {
				if err := workflow.Sleep(ctx, d); err != nil {
					return err // cancelled
				}
			}
			// A failed reminder must not suppress later reminders or the timeout.
			if err := workflow.ExecuteActivity(ctx, "SendApprovalReminder",
				in.ApprovalRequestID, in.StepIndex, r.Type).Get(ctx, nil); err != nil {
				logger.Warn("reminder activity failed",
					"approval_request_id", in.ApprovalRequestID, "reminder", r.Type, "error", err)
			}
		}
	}

	if d := in.TimeoutAt.Sub(workflow.Now(ctx)); d > 0 {
		if err := workflow.Sleep(ctx, d); err != nil {
			return err
		}
	}

	return workflow.ExecuteActivity(ctx, "FireApprovalTimeout",
		in.ApprovalRequestID, in.StepIndex).Get(ctx, nil)
}
