package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/pkg/database"
	approvaldomain "github.com/ghuser/campusreserve/services/approval/domain"
	"github.com/ghuser/campusreserve/services/approval/domain/models"
	"github.com/ghuser/campusreserve/services/approval/domain/repositories"
)

// flowStep is the jsonb shape of one step in the approval_flows table.
type flowStep struct {
	Name              string      `json:"name"`
	ApproverIDs       []uuid.UUID `json:"approver_ids"`
	RequiredApprovals int         `json:"required_approvals"`
	TimeoutMinutes    int         `json:"timeout_minutes"`
	EscalateTo        []uuid.UUID `json:"escalate_to,omitempty"`
}

// FlowRegistry resolves approval flow definitions from the approval_flows
// table. Flows are administrative data shared by the api and worker processes.
type FlowRegistry struct {
	db *database.Database
	// defaultTimeout fills in steps stored without an explicit timeout.
	defaultTimeout time.Duration
}

var _ repositories.FlowRegistry = (*FlowRegistry)(nil)

func NewFlowRegistry(db *database.Database, defaultTimeout time.Duration) *FlowRegistry {
	return &FlowRegistry{db: db, defaultTimeout: defaultTimeout}
}

// Get loads the flow or returns ErrFlowNotFound.
func (r *FlowRegistry) Get(ctx context.Context, flowID string) (*models.Flow, error) {
	var (
		flow  models.Flow
		steps []byte
	)
	err := r.db.DB().QueryRowContext(ctx,
		`SELECT id, name, steps FROM approval_flows WHERE id = $1`, flowID,
	).Scan(&flow.ID, &flow.Name, &steps)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", approvaldomain.ErrFlowNotFound, flowID)
		}
		return nil, fmt.Errorf("query approval flow: %w", err)
	}

	var raw []flowStep
	if err := json.Unmarshal(steps, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal flow steps: %w", err)
	}
	flow.Steps = make([]models.Step, len(raw))
	for i, s := range raw {
		timeout := time.Duration(s.TimeoutMinutes) * time.Minute
		if timeout <= 0 {
			timeout = r.defaultTimeout
		}
		flow.Steps[i] = models.Step{
			Name:              s.Name,
			ApproverIDs:       s.ApproverIDs,
			RequiredApprovals: s.RequiredApprovals,
			Timeout:           timeout,
			EscalateTo:        s.EscalateTo,
		}
	}
	return &flow, nil
}

// Save validates and upserts a flow definition. Steps without an explicit
// timeout get the configured default.
func (r *FlowRegistry) Save(ctx context.Context, flow *models.Flow) error {
	for i := range flow.Steps {
		if flow.Steps[i].Timeout <= 0 {
			flow.Steps[i].Timeout = r.defaultTimeout
		}
	}
	if err := flow.Validate(); err != nil {
		return fmt.Errorf("save approval flow: %w", err)
	}
	raw := make([]flowStep, len(flow.Steps))
	for i, s := range flow.Steps {
		raw[i] = flowStep{
			Name:              s.Name,
			ApproverIDs:       s.ApproverIDs,
			RequiredApprovals: s.RequiredApprovals,
			TimeoutMinutes:    int(s.Timeout / time.Minute),
			EscalateTo:        s.EscalateTo,
		}
	}
	steps, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal flow steps: %w", err)
	}
	_, err = r.db.DB().ExecContext(ctx, `
		INSERT INTO approval_flows (id, name, steps, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, steps = EXCLUDED.steps, updated_at = now()`,
		flow.ID, flow.Name, steps,
	)
	if err != nil {
		return fmt.Errorf("upsert approval flow: %w", err)
	}
	return nil
}
