package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/services/dlq/domain/models"
)

// Filter narrows List results. Zero values mean "any"; Start/End bound
// first_failed_at.
type Filter struct {
	Status    models.Status
	Topic     string
	Service   string
	EventType string
	Start     time.Time
	End       time.Time
	Limit     int
	Offset    int
}

// Stats summarizes the dead-letter store for dashboards and alerts.
type Stats struct {
	Total       int64            `json:"total"`
	Pending     int64            `json:"pending"`
	Retrying    int64            `json:"retrying"`
	Resolved    int64            `json:"resolved"`
	Failed      int64            `json:"failed"`
	ByTopic     map[string]int64 `json:"by_topic"`
	ByService   map[string]int64 `json:"by_service"`
	ByEventType map[string]int64 `json:"by_event_type"`
}

// DLQRepository persists dead-letter records.
type DLQRepository interface {
	// Upsert inserts a captured event, or bumps attempts/last_attempt_at when
	// the same (event_id, topic) pair was already captured, so redelivery
	// produces exactly one record.
	Upsert(ctx context.Context, e *models.DLQEvent) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.DLQEvent, error)

	// List returns records matching the filter, newest failures first.
	List(ctx context.Context, f Filter) ([]*models.DLQEvent, error)

	Stats(ctx context.Context) (*Stats, error)

	// UpdateState persists a state transition guarded by the status the
	// record was loaded at. Returns ErrInvalidStateChange when the stored
	// status moved on.
	UpdateState(ctx context.Context, e *models.DLQEvent, expected models.Status) error
}
