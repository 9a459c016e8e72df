package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Step is one approval level in a flow. RequiredApprovals <= 0 means every
// listed approver must approve before the step completes.
type Step struct {
	Name              string
	ApproverIDs       []uuid.UUID
	RequiredApprovals int
	Timeout           time.Duration
	// EscalateTo, when non-empty, enables timeout auto-escalation: instead of
	// expiring, the request swaps to this fallback approver set and stays in
	// review for another timeout window.
	EscalateTo []uuid.UUID
}

// Required returns the effective number of approvals needed for the step.
func (s Step) Required() int {
	if s.RequiredApprovals <= 0 || s.RequiredApprovals > len(s.ApproverIDs) {
		return len(s.ApproverIDs)
	}
	return s.RequiredApprovals
}

// Flow is an ordered multi-level approval definition referenced by
// ApprovalRequest.FlowID.
type Flow struct {
	ID    string
	Name  string
	Steps []Step
}

// Validate checks structural constraints on the flow definition.
func (f *Flow) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("flow id must be set")
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("flow %s must have at least one step", f.ID)
	}
	for i, step := range f.Steps {
		if step.Name == "" {
			return fmt.Errorf("flow %s: step %d must have a name", f.ID, i)
		}
		if len(step.ApproverIDs) == 0 {
			return fmt.Errorf("flow %s: step %q must have at least one approver", f.ID, step.Name)
		}
		if step.Timeout <= 0 {
			return fmt.Errorf("flow %s: step %q must have a positive timeout", f.ID, step.Name)
		}
	}
	return nil
}

// Step returns the step at index i.
func (f *Flow) Step(i int) (Step, error) {
	if i < 0 || i >= len(f.Steps) {
		return Step{}, fmt.Errorf("flow %s has no step %d", f.ID, i)
	}
	return f.Steps[i], nil
}

// IsLastStep reports whether i is the final step index.
func (f *Flow) IsLastStep(i int) bool {
	return i == len(f.Steps)-1
}
