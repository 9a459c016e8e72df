package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgevents "github.com/ghuser/campusreserve/pkg/events"
	"github.com/ghuser/campusreserve/pkg/logger"
	"github.com/ghuser/campusreserve/services/dlq/domain/models"
	"github.com/ghuser/campusreserve/services/dlq/domain/repositories"
)

// DLQService captures poison messages off the bus and exposes the triage
// surface: list, stats, resolve, retry. Resolve closes a record without side
// effects; Retry is the only operation that republishes.
type DLQService struct {
	repo repositories.DLQRepository
	bus  *pkgevents.EventBus
	log  logger.Logger
}

var _ pkgevents.DeadLetterSink = (*DLQService)(nil)

func NewDLQService(repo repositories.DLQRepository, bus *pkgevents.EventBus, log logger.Logger) *DLQService {
	return &DLQService{repo: repo, bus: bus, log: log}
}

// Capture stores one quarantined message. Called by the bus after a handler
// exhausts its retries; redelivery of the same event updates the existing
// record instead of creating a duplicate.
func (s *DLQService) Capture(ctx context.Context, failed pkgevents.FailedEvent) error {
	cause := ""
	if failed.HandlerError != nil {
		cause = failed.HandlerError.Error()
	}
	record := &models.DLQEvent{
		ID:            uuid.New(),
		EventID:       failed.EventID,
		Topic:         failed.Topic,
		Service:       failed.Service,
		EventType:     failed.EventType,
		AggregateID:   failed.AggregateID,
		AggregateType: failed.AggregateType,
		Payload:       json.RawMessage(failed.Payload),
		Status:        models.StatusPending,
		Attempts:      failed.Attempts,
		LastError:     cause,
		FirstFailedAt: failed.FailedAt,
		LastAttemptAt: failed.FailedAt,
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("capture dead-letter event: %w", err)
	}
	s.log.WarnContext(ctx, "dead-letter event captured",
		"event_id", record.EventID,
		"topic", record.Topic,
		"event_type", record.EventType,
		"attempts", record.Attempts,
	)
	return nil
}

// List returns dead-letter records matching the filter.
func (s *DLQService) List(ctx context.Context, f repositories.Filter) ([]*models.DLQEvent, error) {
	return s.repo.List(ctx, f)
}

// Stats summarizes the store.
func (s *DLQService) Stats(ctx context.Context) (*repositories.Stats, error) {
	return s.repo.Stats(ctx)
}

// Resolve closes a record with an operator note. It never republishes the
// payload; use Retry for that.
func (s *DLQService) Resolve(ctx context.Context, id uuid.UUID, resolution string, resolvedBy uuid.UUID) (*models.DLQEvent, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := record.Status
	if err := record.MarkResolved(resolution, resolvedBy, time.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateState(ctx, record, expected); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "dead-letter event resolved",
		"dlq_id", record.ID, "event_id", record.EventID, "resolved_by", resolvedBy)
	return record, nil
}

// Retry republishes the original envelope to its topic. The record moves to
// RETRYING, then RESOLVED once the republish is durably queued, or FAILED if
// the payload cannot be republished. A handler that fails again captures a
// fresh record, keeping the audit trail intact.
func (s *DLQService) Retry(ctx context.Context, id uuid.UUID, requestedBy uuid.UUID) (*models.DLQEvent, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := record.Status
	now := time.Now()
	if err := record.MarkRetrying(now); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateState(ctx, record, expected); err != nil {
		return nil, err
	}

	if err := s.republish(ctx, record); err != nil {
		if ferr := record.MarkFailed(err.Error(), time.Now()); ferr == nil {
			if uerr := s.repo.UpdateState(ctx, record, models.StatusRetrying); uerr != nil {
				s.log.ErrorContext(ctx, "persist dead-letter failure state",
					"dlq_id", record.ID, "error", uerr)
			}
		}
		s.log.ErrorContext(ctx, "dead-letter republish failed",
			"dlq_id", record.ID, "event_id", record.EventID, "error", err)
		return record, nil
	}

	if err := record.MarkResolved("republished to "+record.Topic, requestedBy, time.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateState(ctx, record, models.StatusRetrying); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "dead-letter event republished",
		"dlq_id", record.ID, "event_id", record.EventID, "topic", record.Topic)
	return record, nil
}

func (s *DLQService) republish(ctx context.Context, record *models.DLQEvent) error {
	var env pkgevents.Envelope
	if err := json.Unmarshal(record.Payload, &env); err != nil {
		return fmt.Errorf("unmarshal quarantined payload: %w", err)
	}
	if err := s.bus.Publish(ctx, record.Topic, &env); err != nil {
		return err
	}
	return nil
}
