// Package postgres persists dead-letter records. Records are append-only
// state machines: triage mutates status, nothing is ever deleted.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/pkg/database"
	dlqdomain "github.com/ghuser/campusreserve/services/dlq/domain"
	"github.com/ghuser/campusreserve/services/dlq/domain/models"
	"github.com/ghuser/campusreserve/services/dlq/domain/repositories"
)

const dlqColumns = `id, event_id, topic, service, event_type, aggregate_id, aggregate_type,
	payload, status, attempts, last_error, first_failed_at, last_attempt_at,
	resolution, resolved_by, resolved_at`

// DLQRepository implements repositories.DLQRepository against PostgreSQL.
type DLQRepository struct {
	db *database.Database
}

var _ repositories.DLQRepository = (*DLQRepository)(nil)

func NewDLQRepository(db *database.Database) *DLQRepository {
	return &DLQRepository{db: db}
}

// Upsert relies on the unique index over (event_id, topic): redelivered
// captures bump attempts and the last attempt timestamp on the existing row.
// Attempts are cumulative across capture cycles: a first capture records the
// full retry budget, and each later republish-and-fail cycle adds its own
// budget on top.
func (r *DLQRepository) Upsert(ctx context.Context, e *models.DLQEvent) error {
	_, err := r.db.DB().ExecContext(ctx, `
		INSERT INTO dlq_events (`+dlqColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (event_id, topic) DO UPDATE SET
			attempts = dlq_events.attempts + EXCLUDED.attempts,
			last_error = EXCLUDED.last_error,
			last_attempt_at = EXCLUDED.last_attempt_at`,
		e.ID, e.EventID, e.Topic, e.Service, e.EventType, e.AggregateID, e.AggregateType,
		[]byte(e.Payload), e.Status, e.Attempts, e.LastError, e.FirstFailedAt, e.LastAttemptAt,
		e.Resolution, e.ResolvedBy, e.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert dlq event: %w", err)
	}
	return nil
}

func (r *DLQRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DLQEvent, error) {
	row := r.db.DB().QueryRowContext(ctx, `
		SELECT `+dlqColumns+`
		FROM dlq_events
		WHERE id = $1`, id)
	return scanDLQEvent(row)
}

func (r *DLQRepository) List(ctx context.Context, f repositories.Filter) ([]*models.DLQEvent, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT `+dlqColumns+`
		FROM dlq_events
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR topic = $2)
		  AND ($3 = '' OR service = $3)
		  AND ($4 = '' OR event_type = $4)
		  AND ($5::timestamptz IS NULL OR first_failed_at >= $5)
		  AND ($6::timestamptz IS NULL OR first_failed_at <= $6)
		ORDER BY first_failed_at DESC
		LIMIT $7 OFFSET $8`,
		string(f.Status), f.Topic, f.Service, f.EventType,
		nullableTime(f.Start), nullableTime(f.End), limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("query dlq events: %w", err)
	}
	defer rows.Close()

	var out []*models.DLQEvent
	for rows.Next() {
		e, err := scanDLQEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dlq events: %w", err)
	}
	return out, nil
}

func (r *DLQRepository) Stats(ctx context.Context) (*repositories.Stats, error) {
	stats := &repositories.Stats{
		ByTopic:     make(map[string]int64),
		ByService:   make(map[string]int64),
		ByEventType: make(map[string]int64),
	}

	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT status, count(*) FROM dlq_events GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query dlq status stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan dlq status stats: %w", err)
		}
		switch models.Status(status) {
		case models.StatusPending:
			stats.Pending = n
		case models.StatusRetrying:
			stats.Retrying = n
		case models.StatusResolved:
			stats.Resolved = n
		case models.StatusFailed:
			stats.Failed = n
		}
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dlq status stats: %w", err)
	}

	for column, dest := range map[string]map[string]int64{
		"topic":      stats.ByTopic,
		"service":    stats.ByService,
		"event_type": stats.ByEventType,
	} {
		if err := r.groupCounts(ctx, column, dest); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// groupCounts fills dest with the top 50 counts grouped by the given column.
// column is one of a fixed set of identifiers, never user input.
func (r *DLQRepository) groupCounts(ctx context.Context, column string, dest map[string]int64) error {
	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT `+column+`, count(*) FROM dlq_events GROUP BY `+column+` ORDER BY count(*) DESC LIMIT 50`)
	if err != nil {
		return fmt.Errorf("query dlq %s stats: %w", column, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan dlq %s stats: %w", column, err)
		}
		dest[key] = n
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate dlq %s stats: %w", column, err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// UpdateState persists a transition guarded by the status the record was
// loaded at.
func (r *DLQRepository) UpdateState(ctx context.Context, e *models.DLQEvent, expected models.Status) error {
	res, err := r.db.DB().ExecContext(ctx, `
		UPDATE dlq_events SET
			status = $1,
			attempts = $2,
			last_error = $3,
			last_attempt_at = $4,
			resolution = $5,
			resolved_by = $6,
			resolved_at = $7
		WHERE id = $8 AND status = $9`,
		e.Status, e.Attempts, e.LastError, e.LastAttemptAt,
		e.Resolution, e.ResolvedBy, e.ResolvedAt,
		e.ID, expected,
	)
	if err != nil {
		return fmt.Errorf("update dlq event state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update dlq event state: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s is no longer %s", dlqdomain.ErrInvalidStateChange, e.ID, expected)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDLQEvent(row rowScanner) (*models.DLQEvent, error) {
	var (
		e       models.DLQEvent
		payload []byte
	)
	err := row.Scan(
		&e.ID, &e.EventID, &e.Topic, &e.Service, &e.EventType, &e.AggregateID, &e.AggregateType,
		&payload, &e.Status, &e.Attempts, &e.LastError, &e.FirstFailedAt, &e.LastAttemptAt,
		&e.Resolution, &e.ResolvedBy, &e.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dlqdomain.ErrDLQEventNotFound
		}
		return nil, fmt.Errorf("scan dlq event: %w", err)
	}
	e.Payload = payload
	return &e, nil
}
