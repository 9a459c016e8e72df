// Package postgres persists the ApprovalRequest aggregate. Every transition is
// a check-and-set on the version column, and outbound events are queued in the
// same transaction as the state write.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghuser/campusreserve/pkg/database"
	pkgevents "github.com/ghuser/campusreserve/pkg/events"
	approvaldomain "github.com/ghuser/campusreserve/services/approval/domain"
	"github.com/ghuser/campusreserve/services/approval/domain/models"
	"github.com/ghuser/campusreserve/services/approval/domain/repositories"
)

const approvalColumns = `id, reservation_id, requester_id, resource_id, tenant_id, flow_id,
	status, current_step_index, active_approver_ids, escalated, history,
	timeout_at, submitted_at, completed_at, version`

// ApprovalRepository implements repositories.ApprovalRepository against PostgreSQL.
type ApprovalRepository struct {
	db  *database.Database
	bus *pkgevents.EventBus
}

var _ repositories.ApprovalRepository = (*ApprovalRepository)(nil)

func NewApprovalRepository(db *database.Database, bus *pkgevents.EventBus) *ApprovalRepository {
	return &ApprovalRepository{db: db, bus: bus}
}

// Create inserts the request and queues the outbox events atomically. A
// partial unique index on reservation_id over non-terminal rows turns a
// duplicate open request into ErrApprovalAlreadyOpen.
func (r *ApprovalRepository) Create(ctx context.Context, a *models.ApprovalRequest, outbox ...pkgevents.BatchEntry) error {
	approvers, history, err := marshalAggregates(a)
	if err != nil {
		return err
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO approval_requests (`+approvalColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			a.ID, a.ReservationID, a.RequesterID, a.ResourceID, a.TenantID, a.FlowID,
			a.Status, a.CurrentStepIndex, approvers, a.Escalated, history,
			a.TimeoutAt, a.SubmittedAt, a.CompletedAt, a.Version,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return approvaldomain.ErrApprovalAlreadyOpen
			}
			return fmt.Errorf("insert approval request: %w", err)
		}
		return r.publishOutbox(tx, outbox)
	})
}

// Update persists a transition guarded by the version the aggregate was loaded
// at. Zero rows updated means another writer got there first.
func (r *ApprovalRepository) Update(ctx context.Context, a *models.ApprovalRequest, outbox ...pkgevents.BatchEntry) error {
	approvers, history, err := marshalAggregates(a)
	if err != nil {
		return err
	}
	err = r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE approval_requests SET
				status = $1,
				current_step_index = $2,
				active_approver_ids = $3,
				escalated = $4,
				history = $5,
				timeout_at = $6,
				completed_at = $7,
				version = version + 1
			WHERE id = $8 AND version = $9`,
			a.Status, a.CurrentStepIndex, approvers, a.Escalated, history,
			a.TimeoutAt, a.CompletedAt,
			a.ID, a.Version,
		)
		if err != nil {
			return fmt.Errorf("update approval request: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update approval request: rows affected: %w", err)
		}
		if n == 0 {
			return approvaldomain.ErrStaleTransition
		}
		return r.publishOutbox(tx, outbox)
	})
	if err != nil {
		return err
	}
	a.Version++
	return nil
}

func (r *ApprovalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error) {
	row := r.db.DB().QueryRowContext(ctx, `
		SELECT `+approvalColumns+`
		FROM approval_requests
		WHERE id = $1`, id)
	return scanApproval(row)
}

// GetOpenByReservation relies on the partial unique index: at most one
// non-terminal request exists per reservation.
func (r *ApprovalRepository) GetOpenByReservation(ctx context.Context, reservationID uuid.UUID) (*models.ApprovalRequest, error) {
	row := r.db.DB().QueryRowContext(ctx, `
		SELECT `+approvalColumns+`
		FROM approval_requests
		WHERE reservation_id = $1 AND status IN ('PENDING', 'IN_REVIEW')`, reservationID)
	return scanApproval(row)
}

func (r *ApprovalRepository) FindByStatus(ctx context.Context, status models.Status, limit int) ([]*models.ApprovalRequest, error) {
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT `+approvalColumns+`
		FROM approval_requests
		WHERE status = $1
		ORDER BY submitted_at ASC
		LIMIT $2`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("query approval requests by status: %w", err)
	}
	defer rows.Close()

	var out []*models.ApprovalRequest
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approval requests: %w", err)
	}
	return out, nil
}

func (r *ApprovalRepository) publishOutbox(tx *sql.Tx, outbox []pkgevents.BatchEntry) error {
	for _, entry := range outbox {
		if err := r.bus.PublishTx(tx, entry.Topic, entry.Envelope); err != nil {
			return fmt.Errorf("queue outbox event %s: %w", entry.Topic, err)
		}
	}
	return nil
}

func marshalAggregates(a *models.ApprovalRequest) (approvers, history []byte, err error) {
	approvers, err = json.Marshal(a.ActiveApproverIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal active approvers: %w", err)
	}
	if a.History == nil {
		history = []byte("[]")
	} else if history, err = json.Marshal(a.History); err != nil {
		return nil, nil, fmt.Errorf("marshal history: %w", err)
	}
	return approvers, history, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApproval(row rowScanner) (*models.ApprovalRequest, error) {
	var (
		a         models.ApprovalRequest
		approvers []byte
		history   []byte
	)
	err := row.Scan(
		&a.ID, &a.ReservationID, &a.RequesterID, &a.ResourceID, &a.TenantID, &a.FlowID,
		&a.Status, &a.CurrentStepIndex, &approvers, &a.Escalated, &history,
		&a.TimeoutAt, &a.SubmittedAt, &a.CompletedAt, &a.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, approvaldomain.ErrApprovalNotFound
		}
		return nil, fmt.Errorf("scan approval request: %w", err)
	}
	if err := json.Unmarshal(approvers, &a.ActiveApproverIDs); err != nil {
		return nil, fmt.Errorf("unmarshal active approvers: %w", err)
	}
	if err := json.Unmarshal(history, &a.History); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	return &a, nil
}
