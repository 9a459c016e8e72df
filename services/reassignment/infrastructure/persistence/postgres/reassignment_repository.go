// Package postgres persists reassignment requests and reads the campus
// resource directory. Responses are guarded by responded_at IS NULL so a
// request is answered exactly once.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/pkg/database"
	pkgevents "github.com/ghuser/campusreserve/pkg/events"
	reassigndomain "github.com/ghuser/campusreserve/services/reassignment/domain"
	"github.com/ghuser/campusreserve/services/reassignment/domain/models"
	"github.com/ghuser/campusreserve/services/reassignment/domain/repositories"
)

const reassignmentColumns = `id, reservation_id, original_resource_id, requester_id, tenant_id, reason,
	alternatives, best_alternative, accepted, new_resource_id, user_feedback,
	notification_sent, responded_at, created_at`

// ReassignmentRepository implements repositories.ReassignmentRepository
// against PostgreSQL.
type ReassignmentRepository struct {
	db  *database.Database
	bus *pkgevents.EventBus
}

var _ repositories.ReassignmentRepository = (*ReassignmentRepository)(nil)

func NewReassignmentRepository(db *database.Database, bus *pkgevents.EventBus) *ReassignmentRepository {
	return &ReassignmentRepository{db: db, bus: bus}
}

func (r *ReassignmentRepository) Create(ctx context.Context, req *models.ReassignmentRequest, outbox ...pkgevents.BatchEntry) error {
	alternatives, err := json.Marshal(req.Alternatives)
	if err != nil {
		return fmt.Errorf("marshal alternatives: %w", err)
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reassignment_requests (`+reassignmentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			req.ID, req.ReservationID, req.OriginalResourceID, req.RequesterID, req.TenantID, req.Reason,
			alternatives, req.BestAlternative, req.Accepted, req.NewResourceID, req.UserFeedback,
			req.NotificationSent, req.RespondedAt, req.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert reassignment request: %w", err)
		}
		return r.publishOutbox(tx, outbox)
	})
}

func (r *ReassignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReassignmentRequest, error) {
	row := r.db.DB().QueryRowContext(ctx, `
		SELECT `+reassignmentColumns+`
		FROM reassignment_requests
		WHERE id = $1`, id)
	return scanReassignment(row)
}

func (r *ReassignmentRepository) GetOpenByReservation(ctx context.Context, reservationID uuid.UUID) (*models.ReassignmentRequest, error) {
	row := r.db.DB().QueryRowContext(ctx, `
		SELECT `+reassignmentColumns+`
		FROM reassignment_requests
		WHERE reservation_id = $1 AND responded_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`, reservationID)
	return scanReassignment(row)
}

// RecordResponse writes the response with a check-and-set on responded_at.
// Zero rows updated means the request was already answered.
func (r *ReassignmentRepository) RecordResponse(ctx context.Context, req *models.ReassignmentRequest, outbox ...pkgevents.BatchEntry) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE reassignment_requests SET
				accepted = $1,
				new_resource_id = $2,
				user_feedback = $3,
				responded_at = $4
			WHERE id = $5 AND responded_at IS NULL`,
			req.Accepted, req.NewResourceID, req.UserFeedback, req.RespondedAt,
			req.ID,
		)
		if err != nil {
			return fmt.Errorf("record reassignment response: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("record reassignment response: rows affected: %w", err)
		}
		if n == 0 {
			return reassigndomain.ErrAlreadyResponded
		}
		return r.publishOutbox(tx, outbox)
	})
}

func (r *ReassignmentRepository) publishOutbox(tx *sql.Tx, outbox []pkgevents.BatchEntry) error {
	for _, entry := range outbox {
		if err := r.bus.PublishTx(tx, entry.Topic, entry.Envelope); err != nil {
			return fmt.Errorf("queue outbox event %s: %w", entry.Topic, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReassignment(row rowScanner) (*models.ReassignmentRequest, error) {
	var (
		req          models.ReassignmentRequest
		alternatives []byte
		feedback     sql.NullString
	)
	err := row.Scan(
		&req.ID, &req.ReservationID, &req.OriginalResourceID, &req.RequesterID, &req.TenantID, &req.Reason,
		&alternatives, &req.BestAlternative, &req.Accepted, &req.NewResourceID, &feedback,
		&req.NotificationSent, &req.RespondedAt, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reassigndomain.ErrReassignmentNotFound
		}
		return nil, fmt.Errorf("scan reassignment request: %w", err)
	}
	if err := json.Unmarshal(alternatives, &req.Alternatives); err != nil {
		return nil, fmt.Errorf("unmarshal alternatives: %w", err)
	}
	req.UserFeedback = feedback.String
	return &req, nil
}
