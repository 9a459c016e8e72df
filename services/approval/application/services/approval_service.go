package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgevents "github.com/ghuser/campusreserve/pkg/events"
	"github.com/ghuser/campusreserve/pkg/logger"
	approvaldomain "github.com/ghuser/campusreserve/services/approval/domain"
	domainevents "github.com/ghuser/campusreserve/services/approval/domain/events"
	"github.com/ghuser/campusreserve/services/approval/domain/models"
	"github.com/ghuser/campusreserve/services/approval/domain/repositories"
)

// TimerScheduler manages the durable timeout/reminder timers backing one
// approval step. Implemented by the Temporal-backed scheduler in
// application/workflows.
type TimerScheduler interface {
	// Schedule starts (or restarts) the timer workflow for the given step.
	Schedule(ctx context.Context, approvalRequestID uuid.UUID, stepIndex int, timeoutAt time.Time) error
	// Cancel stops any outstanding timers for the request. A timer that fires
	// after cancellation is a no-op because activities re-check status.
	Cancel(ctx context.Context, approvalRequestID uuid.UUID) error
}

// ApprovalService is the approval flow engine: it consumes reservation events
// from the bus, drives the ApprovalRequest state machine, and publishes a
// domain event for every transition. All state writes are check-and-set; a
// stale transition is retried by the bus, an illegal one is logged and
// discarded as a no-op.
type ApprovalService struct {
	repo      repositories.ApprovalRepository
	flows     repositories.FlowRegistry
	bus       *pkgevents.EventBus
	scheduler TimerScheduler
	log       logger.Logger
}

// NewApprovalService wires the engine with its collaborators.
func NewApprovalService(
	repo repositories.ApprovalRepository,
	flows repositories.FlowRegistry,
	bus *pkgevents.EventBus,
	scheduler TimerScheduler,
	log logger.Logger,
) *ApprovalService {
	return &ApprovalService{repo: repo, flows: flows, bus: bus, scheduler: scheduler, log: log}
}

// HandleReservationSubmitted creates the ApprovalRequest for a newly
// submitted reservation and moves it into review. Duplicate submissions
// (at-least-once delivery) are absorbed: an already-open request makes this a
// no-op.
func (s *ApprovalService) HandleReservationSubmitted(ctx context.Context, env *pkgevents.Envelope) error {
	var evt domainevents.ReservationSubmittedEvent
	if err := env.DecodeData(&evt); err != nil {
		return err
	}

	flow, err := s.flows.Get(ctx, evt.FlowID)
	if err != nil {
		return fmt.Errorf("resolve flow %s: %w", evt.FlowID, err)
	}

	req, err := models.NewApprovalRequest(evt.ReservationID, evt.RequesterID, evt.ResourceID, evt.TenantID, flow)
	if err != nil {
		return fmt.Errorf("create approval request: %w", err)
	}
	now := time.Now().UTC()
	if err := req.BeginReview(flow, now); err != nil {
		return err
	}

	created, err := s.envelope(domainevents.TopicApprovalRequestCreated, req, domainevents.ApprovalRequestCreatedEvent{
		ApprovalRequestID: req.ID,
		ReservationID:     req.ReservationID,
		RequesterID:       req.RequesterID,
		TenantID:          req.TenantID,
		StepName:          s.currentStepName(flow, req),
		ApproverIDs:       req.ActiveApproverIDs,
		TimeoutAt:         *req.TimeoutAt,
	})
	if err != nil {
		return err
	}

	if err := s.repo.Create(ctx, req, created); err != nil {
		if errors.Is(err, approvaldomain.ErrApprovalAlreadyOpen) {
			s.log.InfoContext(ctx, "approval request already open, skipping duplicate submission",
				"reservation_id", evt.ReservationID)
			return nil
		}
		return fmt.Errorf("persist approval request: %w", err)
	}

	if err := s.scheduler.Schedule(ctx, req.ID, req.CurrentStepIndex, *req.TimeoutAt); err != nil {
		// State and created event are durable; the timer is retried by the bus.
		return fmt.Errorf("schedule approval timers: %w", err)
	}

	s.log.InfoContext(ctx, "approval request created",
		"approval_request_id", req.ID,
		"reservation_id", req.ReservationID,
		"flow_id", req.FlowID,
		"timeout_at", req.TimeoutAt,
	)
	return nil
}

// HandleDecision applies one approver's verdict to the open request for the
// reservation. Decisions against unknown or completed requests are discarded.
func (s *ApprovalService) HandleDecision(ctx context.Context, env *pkgevents.Envelope, decision models.Decision) error {
	var evt domainevents.ReservationDecisionEvent
	if err := env.DecodeData(&evt); err != nil {
		return err
	}

	req, err := s.repo.GetOpenByReservation(ctx, evt.ReservationID)
	if err != nil {
		if errors.Is(err, approvaldomain.ErrApprovalNotFound) {
			s.log.WarnContext(ctx, "decision for unknown or completed reservation, discarding",
				"reservation_id", evt.ReservationID, "decision", decision)
			return nil
		}
		return err
	}

	flow, err := s.flows.Get(ctx, req.FlowID)
	if err != nil {
		return fmt.Errorf("resolve flow %s: %w", req.FlowID, err)
	}

	now := time.Now().UTC()
	var outbox []pkgevents.BatchEntry
	var cancelTimers, reschedule bool

	switch decision {
	case models.DecisionApprove:
		stepComplete, final, err := req.RecordApproval(flow, evt.ApproverID, evt.Comment, now)
		if s.discardIllegal(ctx, err, req, evt.ApproverID) {
			return nil
		}
		if err != nil {
			return err
		}
		switch {
		case final:
			cancelTimers = true
			outbox, err = s.completionOutbox(req)
		case stepComplete:
			reschedule = true
			advanced, aerr := s.envelope(domainevents.TopicApprovalStepAdvanced, req, domainevents.ApprovalStepAdvancedEvent{
				ApprovalRequestID: req.ID,
				ReservationID:     req.ReservationID,
				StepIndex:         req.CurrentStepIndex,
				StepName:          s.currentStepName(flow, req),
				ApproverIDs:       req.ActiveApproverIDs,
				TimeoutAt:         *req.TimeoutAt,
			})
			err = aerr
			outbox = append(outbox, advanced)
		}
		if err != nil {
			return err
		}

	case models.DecisionReject:
		err := req.RecordRejection(flow, evt.ApproverID, evt.Comment, now)
		if s.discardIllegal(ctx, err, req, evt.ApproverID) {
			return nil
		}
		if err != nil {
			return err
		}
		cancelTimers = true
		outbox, err = s.completionOutbox(req)
		if err != nil {
			return err
		}
		// A rejection leaves the original conflict open: ask the reassignment
		// engine for alternatives.
		needed, err := s.envelope(domainevents.TopicReassignmentNeeded, req, domainevents.ReassignmentNeededEvent{
			ReservationID: req.ReservationID,
			ResourceID:    req.ResourceID,
			RequesterID:   req.RequesterID,
			TenantID:      req.TenantID,
			Reason:        "approval rejected",
		})
		if err != nil {
			return err
		}
		outbox = append(outbox, needed)

	default:
		return fmt.Errorf("%w: unknown decision %q", approvaldomain.ErrInvalidTransition, decision)
	}

	if err := s.repo.Update(ctx, req, outbox...); err != nil {
		return err
	}

	if cancelTimers {
		if err := s.scheduler.Cancel(ctx, req.ID); err != nil {
			s.log.WarnContext(ctx, "cancel approval timers failed", "approval_request_id", req.ID, "error", err)
		}
	}
	if reschedule {
		if err := s.scheduler.Cancel(ctx, req.ID); err != nil {
			s.log.WarnContext(ctx, "cancel approval timers failed", "approval_request_id", req.ID, "error", err)
		}
		if err := s.scheduler.Schedule(ctx, req.ID, req.CurrentStepIndex, *req.TimeoutAt); err != nil {
			return fmt.Errorf("schedule next step timers: %w", err)
		}
	}

	s.log.InfoContext(ctx, "decision applied",
		"approval_request_id", req.ID,
		"reservation_id", req.ReservationID,
		"decision", decision,
		"status", req.Status,
		"step", req.CurrentStepIndex,
	)
	return nil
}

// HandleReservationCancelled forces CANCELLED and invalidates outstanding timers.
func (s *ApprovalService) HandleReservationCancelled(ctx context.Context, env *pkgevents.Envelope) error {
	var evt domainevents.ReservationCancelledEvent
	if err := env.DecodeData(&evt); err != nil {
		return err
	}

	req, err := s.repo.GetOpenByReservation(ctx, evt.ReservationID)
	if err != nil {
		if errors.Is(err, approvaldomain.ErrApprovalNotFound) {
			return nil // nothing open to cancel
		}
		return err
	}

	if err := req.Cancel(time.Now().UTC()); err != nil {
		if errors.Is(err, approvaldomain.ErrInvalidTransition) {
			return nil
		}
		return err
	}

	outbox, err := s.completionOutbox(req)
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, req, outbox...); err != nil {
		return err
	}

	if err := s.scheduler.Cancel(ctx, req.ID); err != nil {
		s.log.WarnContext(ctx, "cancel approval timers failed", "approval_request_id", req.ID, "error", err)
	}
	s.log.InfoContext(ctx, "approval request cancelled",
		"approval_request_id", req.ID, "reservation_id", req.ReservationID)
	return nil
}

// OnStepTimeout is invoked by the timer workflow when a step deadline elapses.
// Escalation-enabled steps swap to the fallback approver set and stay in
// review; otherwise the request expires. Fires after a decision completed the
// request are no-ops.
func (s *ApprovalService) OnStepTimeout(ctx context.Context, approvalRequestID uuid.UUID, stepIndex int) error {
	req, err := s.repo.GetByID(ctx, approvalRequestID)
	if err != nil {
		return err
	}
	if req.Status != models.StatusInReview || req.CurrentStepIndex != stepIndex {
		return nil // decided, advanced, or cancelled while the timer was in flight
	}

	flow, err := s.flows.Get(ctx, req.FlowID)
	if err != nil {
		return err
	}
	step, err := flow.Step(stepIndex)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	escalate := len(step.EscalateTo) > 0 && !req.Escalated

	var outbox []pkgevents.BatchEntry
	if escalate {
		if err := req.Escalate(flow, now); err != nil {
			return err
		}
	} else {
		if err := req.Expire(now); err != nil {
			return err
		}
	}

	timeoutEnv, err := s.envelope(domainevents.TopicApprovalTimeout, req, domainevents.ApprovalTimeoutEvent{
		ApprovalRequestID: req.ID,
		ReservationID:     req.ReservationID,
		StepIndex:         stepIndex,
		Escalated:         escalate,
	})
	if err != nil {
		return err
	}
	outbox = append(outbox, timeoutEnv)

	if !escalate {
		completed, err := s.completionOutbox(req)
		if err != nil {
			return err
		}
		outbox = append(outbox, completed...)
	}

	if err := s.repo.Update(ctx, req, outbox...); err != nil {
		if errors.Is(err, approvaldomain.ErrStaleTransition) {
			// A decision won the race; the timeout is void.
			return nil
		}
		return err
	}

	if escalate {
		if err := s.scheduler.Schedule(ctx, req.ID, req.CurrentStepIndex, *req.TimeoutAt); err != nil {
			return fmt.Errorf("schedule escalated timers: %w", err)
		}
	}

	s.log.InfoContext(ctx, "approval step timed out",
		"approval_request_id", req.ID, "step", stepIndex, "escalated", escalate)
	return nil
}

// OnReminderDue publishes the reminder of the given type if the step is still
// awaiting decisions. Reminders after completion or cancellation are no-ops.
func (s *ApprovalService) OnReminderDue(ctx context.Context, approvalRequestID uuid.UUID, stepIndex int, reminderType string) error {
	req, err := s.repo.GetByID(ctx, approvalRequestID)
	if err != nil {
		return err
	}
	if req.Status != models.StatusInReview || req.CurrentStepIndex != stepIndex || req.TimeoutAt == nil {
		return nil
	}

	env, err := s.envelope(domainevents.TopicApprovalReminder, req, domainevents.ApprovalReminderEvent{
		ApprovalRequestID: req.ID,
		ReservationID:     req.ReservationID,
		TenantID:          req.TenantID,
		ReminderType:      reminderType,
		ApproverIDs:       req.ActiveApproverIDs,
		TimeoutAt:         *req.TimeoutAt,
	})
	if err != nil {
		return err
	}
	return s.bus.Publish(ctx, env.Topic, env.Envelope)
}

// Decide is the REST entry point for an approver verdict. It validates that
// an open request exists, then publishes the decision event so it flows
// through the same ordered pipeline as broker-originated decisions.
func (s *ApprovalService) Decide(ctx context.Context, reservationID, approverID uuid.UUID, decision models.Decision, comment string) error {
	if _, err := s.repo.GetOpenByReservation(ctx, reservationID); err != nil {
		return err
	}

	topic := domainevents.TopicReservationApproved
	if decision == models.DecisionReject {
		topic = domainevents.TopicReservationRejected
	}

	env, err := pkgevents.NewEnvelope(topic, domainevents.AggregateType, reservationID.String(),
		domainevents.ReservationDecisionEvent{
			ReservationID: reservationID,
			ApproverID:    approverID,
			Comment:       comment,
			DecidedAt:     time.Now().UTC(),
		})
	if err != nil {
		return err
	}
	return s.bus.Publish(ctx, topic, env.WithUser(approverID))
}

// GetByReservation returns the open approval request for a reservation.
func (s *ApprovalService) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*models.ApprovalRequest, error) {
	return s.repo.GetOpenByReservation(ctx, reservationID)
}

// discardIllegal logs and absorbs illegal-transition and unknown-approver
// errors: per the error taxonomy they are no-ops, not retries.
func (s *ApprovalService) discardIllegal(ctx context.Context, err error, req *models.ApprovalRequest, approverID uuid.UUID) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, approvaldomain.ErrInvalidTransition) || errors.Is(err, approvaldomain.ErrUnknownApprover) {
		s.log.WarnContext(ctx, "illegal decision discarded",
			"approval_request_id", req.ID,
			"approver_id", approverID,
			"status", req.Status,
			"error", err,
		)
		return true
	}
	return false
}

// completionOutbox builds the terminal-transition event.
func (s *ApprovalService) completionOutbox(req *models.ApprovalRequest) ([]pkgevents.BatchEntry, error) {
	completedAt := time.Now().UTC()
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}
	env, err := s.envelope(domainevents.TopicApprovalCompleted, req, domainevents.ApprovalCompletedEvent{
		ApprovalRequestID: req.ID,
		ReservationID:     req.ReservationID,
		RequesterID:       req.RequesterID,
		TenantID:          req.TenantID,
		Status:            string(req.Status),
		CompletedAt:       completedAt,
	})
	if err != nil {
		return nil, err
	}
	return []pkgevents.BatchEntry{env}, nil
}

func (s *ApprovalService) envelope(topic string, req *models.ApprovalRequest, data any) (pkgevents.BatchEntry, error) {
	env, err := pkgevents.NewEnvelope(topic, domainevents.AggregateType, req.ReservationID.String(), data)
	if err != nil {
		return pkgevents.BatchEntry{}, err
	}
	return pkgevents.BatchEntry{Topic: topic, Envelope: env}, nil
}

func (s *ApprovalService) currentStepName(flow *models.Flow, req *models.ApprovalRequest) string {
	step, err := flow.Step(req.CurrentStepIndex)
	if err != nil {
		return ""
	}
	return step.Name
}
