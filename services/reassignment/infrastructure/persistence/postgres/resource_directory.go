package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/pkg/database"
	reassigndomain "github.com/ghuser/campusreserve/services/reassignment/domain"
	"github.com/ghuser/campusreserve/services/reassignment/domain/models"
	"github.com/ghuser/campusreserve/services/reassignment/domain/repositories"
)

const resourceColumns = `id, tenant_id, name, building, campus, capacity, features,
	available, unavailability_reason`

// ResourceDirectory reads the resources table. Rows are written by the campus
// administration tooling; this context only consumes them.
type ResourceDirectory struct {
	db *database.Database
}

var _ repositories.ResourceDirectory = (*ResourceDirectory)(nil)

func NewResourceDirectory(db *database.Database) *ResourceDirectory {
	return &ResourceDirectory{db: db}
}

func (d *ResourceDirectory) Get(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	row := d.db.DB().QueryRowContext(ctx, `
		SELECT `+resourceColumns+`
		FROM resources
		WHERE id = $1`, id)
	return scanResource(row)
}

// FindCandidates lists the tenant's resources excluding the original, in
// deterministic id order so equal scores always rank the same way.
// Unavailable resources are included.
func (d *ResourceDirectory) FindCandidates(ctx context.Context, tenantID string, exclude uuid.UUID, limit int) ([]models.Resource, error) {
	rows, err := d.db.DB().QueryContext(ctx, `
		SELECT `+resourceColumns+`
		FROM resources
		WHERE tenant_id = $1 AND id <> $2
		ORDER BY id ASC
		LIMIT $3`, tenantID, exclude, limit)
	if err != nil {
		return nil, fmt.Errorf("query candidate resources: %w", err)
	}
	defer rows.Close()

	var out []models.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate resources: %w", err)
	}
	return out, nil
}

func scanResource(row rowScanner) (*models.Resource, error) {
	var (
		res      models.Resource
		features []byte
		reason   sql.NullString
	)
	err := row.Scan(
		&res.ID, &res.TenantID, &res.Name, &res.Building, &res.Campus, &res.Capacity, &features,
		&res.Available, &reason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reassigndomain.ErrResourceNotFound
		}
		return nil, fmt.Errorf("scan resource: %w", err)
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &res.Features); err != nil {
			return nil, fmt.Errorf("unmarshal resource features: %w", err)
		}
	}
	res.UnavailabilityReason = reason.String
	return &res, nil
}
