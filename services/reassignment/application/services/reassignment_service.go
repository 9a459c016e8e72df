package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgevents "github.com/ghuser/campusreserve/pkg/events"
	"github.com/ghuser/campusreserve/pkg/logger"
	reassigndomain "github.com/ghuser/campusreserve/services/reassignment/domain"
	domainevents "github.com/ghuser/campusreserve/services/reassignment/domain/events"
	"github.com/ghuser/campusreserve/services/reassignment/domain/models"
	"github.com/ghuser/campusreserve/services/reassignment/domain/repositories"
	domainservices "github.com/ghuser/campusreserve/services/reassignment/domain/services"
)

// maxCandidates bounds the directory query; maxAlternatives bounds what we
// propose to the requester.
const (
	maxCandidates   = 50
	maxAlternatives = 5
)

// ReassignmentService proposes and resolves alternative resources for
// reservations whose original resource cannot be honored.
type ReassignmentService struct {
	repo      repositories.ReassignmentRepository
	directory repositories.ResourceDirectory
	scorer    *domainservices.Scorer
	bus       *pkgevents.EventBus
	log       logger.Logger
}

func NewReassignmentService(
	repo repositories.ReassignmentRepository,
	directory repositories.ResourceDirectory,
	scorer *domainservices.Scorer,
	bus *pkgevents.EventBus,
	log logger.Logger,
) *ReassignmentService {
	return &ReassignmentService{repo: repo, directory: directory, scorer: scorer, bus: bus, log: log}
}

// HandleReassignmentNeeded consumes reservation.reassignment.needed and
// auto-creates a proposal. A proposal already open for the reservation makes
// redelivery a no-op.
func (s *ReassignmentService) HandleReassignmentNeeded(ctx context.Context, env *pkgevents.Envelope) error {
	var evt domainevents.ReassignmentNeededEvent
	if err := env.DecodeData(&evt); err != nil {
		return err
	}

	if _, err := s.repo.GetOpenByReservation(ctx, evt.ReservationID); err == nil {
		s.log.InfoContext(ctx, "reassignment already proposed, skipping duplicate",
			"reservation_id", evt.ReservationID)
		return nil
	} else if !errors.Is(err, reassigndomain.ErrReassignmentNotFound) {
		return err
	}

	_, err := s.Request(ctx, evt.ReservationID, evt.ResourceID, evt.RequesterID, evt.TenantID, evt.Reason)
	return err
}

// Request queries the resource directory, ranks candidates by similarity to
// the original resource, and persists the proposal with its created event.
func (s *ReassignmentService) Request(ctx context.Context, reservationID, originalResourceID, requesterID uuid.UUID, tenantID, reason string) (*models.ReassignmentRequest, error) {
	original, err := s.directory.Get(ctx, originalResourceID)
	if err != nil {
		return nil, fmt.Errorf("load original resource: %w", err)
	}

	candidates, err := s.directory.FindCandidates(ctx, tenantID, originalResourceID, maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("find candidate resources: %w", err)
	}

	alternatives := s.scorer.Rank(*original, candidates)
	if len(alternatives) > maxAlternatives {
		alternatives = alternatives[:maxAlternatives]
	}

	req := models.NewReassignmentRequest(reservationID, originalResourceID, requesterID, tenantID, reason, alternatives)
	// The created event is queued with the insert, so the requester is always
	// notified of a durable proposal.
	req.NotificationSent = true

	created, err := s.envelope(domainevents.TopicReassignmentCreated, req.ReservationID, domainevents.ReassignmentCreatedEvent{
		ReassignmentID:     req.ID,
		ReservationID:      req.ReservationID,
		OriginalResourceID: req.OriginalResourceID,
		RequesterID:        req.RequesterID,
		TenantID:           req.TenantID,
		Alternatives:       req.Alternatives,
		BestAlternative:    req.BestAlternative,
		CreatedAt:          req.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, req, created); err != nil {
		return nil, fmt.Errorf("persist reassignment request: %w", err)
	}

	s.log.InfoContext(ctx, "reassignment proposed",
		"reassignment_id", req.ID,
		"reservation_id", req.ReservationID,
		"alternatives", len(req.Alternatives),
		"best_alternative", req.BestAlternative,
	)
	return req, nil
}

// Respond records the requester's single response. Accepting swaps the
// reservation's resource (one reservation.resource.updated event); rejecting
// records the feedback and leaves the conflict open.
func (s *ReassignmentService) Respond(ctx context.Context, id uuid.UUID, accepted bool, newResourceID *uuid.UUID, feedback string) (*models.ReassignmentRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := req.Respond(accepted, newResourceID, feedback, now); err != nil {
		return nil, err
	}

	responded, err := s.envelope(domainevents.TopicReassignmentResponded, req.ReservationID, domainevents.ReassignmentRespondedEvent{
		ReassignmentID: req.ID,
		ReservationID:  req.ReservationID,
		RequesterID:    req.RequesterID,
		TenantID:       req.TenantID,
		Accepted:       accepted,
		NewResourceID:  req.NewResourceID,
		UserFeedback:   feedback,
		RespondedAt:    *req.RespondedAt,
	})
	if err != nil {
		return nil, err
	}
	outbox := []pkgevents.BatchEntry{responded}

	if accepted && req.NewResourceID != nil {
		updated, err := s.envelope(domainevents.TopicResourceUpdated, req.ReservationID, domainevents.ReservationResourceUpdatedEvent{
			ReservationID: req.ReservationID,
			OldResourceID: req.OriginalResourceID,
			NewResourceID: *req.NewResourceID,
			UpdatedAt:     now,
		})
		if err != nil {
			return nil, err
		}
		outbox = append(outbox, updated)
	}

	if err := s.repo.RecordResponse(ctx, req, outbox...); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "reassignment response recorded",
		"reassignment_id", req.ID,
		"reservation_id", req.ReservationID,
		"accepted", accepted,
		"new_resource_id", req.NewResourceID,
	)
	return req, nil
}

// GetByID returns the reassignment request.
func (s *ReassignmentService) GetByID(ctx context.Context, id uuid.UUID) (*models.ReassignmentRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ReassignmentService) envelope(topic string, reservationID uuid.UUID, data any) (pkgevents.BatchEntry, error) {
	env, err := pkgevents.NewEnvelope(topic, domainevents.AggregateType, reservationID.String(), data)
	if err != nil {
		return pkgevents.BatchEntry{}, err
	}
	return pkgevents.BatchEntry{Topic: topic, Envelope: env}, nil
}
