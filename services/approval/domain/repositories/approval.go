package repositories

import (
	"context"

	"github.com/google/uuid"

	pkgevents "github.com/ghuser/campusreserve/pkg/events"
	"github.com/ghuser/campusreserve/services/approval/domain/models"
)

// ApprovalRepository is the persistence interface for the ApprovalRequest
// aggregate. The domain layer owns this interface; infrastructure implements it.
//
// Create and Update accept outbound events that must be queued atomically with
// the state write (outbox pattern): either both the new state and its events
// are durable, or neither is.
type ApprovalRepository interface {
	// Create persists a new request. Returns ErrApprovalAlreadyOpen when a
	// non-terminal request already exists for the same reservation.
	Create(ctx context.Context, a *models.ApprovalRequest, outbox ...pkgevents.BatchEntry) error

	// Update persists a transition using check-and-set on the aggregate
	// Version. Returns ErrStaleTransition when the stored version moved on.
	// The in-memory Version is bumped on success.
	Update(ctx context.Context, a *models.ApprovalRequest, outbox ...pkgevents.BatchEntry) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error)

	// GetOpenByReservation returns the single non-terminal request for the
	// reservation, or ErrApprovalNotFound.
	GetOpenByReservation(ctx context.Context, reservationID uuid.UUID) (*models.ApprovalRequest, error)

	// FindByStatus retrieves up to limit requests in the given status,
	// oldest first.
	FindByStatus(ctx context.Context, status models.Status, limit int) ([]*models.ApprovalRequest, error)
}

// FlowRegistry resolves approval flow definitions by ID.
type FlowRegistry interface {
	// Get returns the flow or ErrFlowNotFound.
	Get(ctx context.Context, flowID string) (*models.Flow, error)
}

// FlowStore is the administrative surface for managing flow definitions.
type FlowStore interface {
	FlowRegistry
	Save(ctx context.Context, flow *models.Flow) error
}
