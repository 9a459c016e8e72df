package repositories

import (
	"context"

	"github.com/google/uuid"

	pkgevents "github.com/ghuser/campusreserve/pkg/events"
	"github.com/ghuser/campusreserve/services/reassignment/domain/models"
)

// ReassignmentRepository persists ReassignmentRequest aggregates. Mutations
// queue outbound events atomically with the state write.
type ReassignmentRepository interface {
	Create(ctx context.Context, r *models.ReassignmentRequest, outbox ...pkgevents.BatchEntry) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.ReassignmentRequest, error)

	// GetOpenByReservation returns the unanswered request for the reservation,
	// or ErrReassignmentNotFound.
	GetOpenByReservation(ctx context.Context, reservationID uuid.UUID) (*models.ReassignmentRequest, error)

	// RecordResponse persists the response guarded by responded_at IS NULL.
	// Returns ErrAlreadyResponded when another response won the race.
	RecordResponse(ctx context.Context, r *models.ReassignmentRequest, outbox ...pkgevents.BatchEntry) error
}

// ResourceDirectory reads the campus resource catalog consumed by scoring.
type ResourceDirectory interface {
	// Get returns the resource or ErrResourceNotFound.
	Get(ctx context.Context, id uuid.UUID) (*models.Resource, error)

	// FindCandidates lists tenant resources eligible as alternatives,
	// excluding the given resource. Unavailable resources are included so
	// proposals can explain why they were passed over.
	FindCandidates(ctx context.Context, tenantID string, exclude uuid.UUID, limit int) ([]models.Resource, error)
}
