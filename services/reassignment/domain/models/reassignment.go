package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	reassigndomain "github.com/ghuser/campusreserve/services/reassignment/domain"
)

// ScoreBreakdown exposes the per-dimension sub-scores behind a similarity
// score, each normalized to [0,1].
type ScoreBreakdown struct {
	Capacity     float64 `json:"capacity"`
	Features     float64 `json:"features"`
	Location     float64 `json:"location"`
	Availability float64 `json:"availability"`
}

// Alternative is one proposed replacement resource, ranked by similarity to
// the original. Unavailable candidates are kept in the list with a reason so
// the requester sees why they were passed over.
type Alternative struct {
	ResourceID           uuid.UUID      `json:"resource_id"`
	ResourceName         string         `json:"resource_name"`
	SimilarityScore      float64        `json:"similarity_score"`
	Breakdown            ScoreBreakdown `json:"breakdown"`
	IsAvailable          bool           `json:"is_available"`
	UnavailabilityReason string         `json:"unavailability_reason,omitempty"`
}

// ReassignmentRequest proposes alternatives for a reservation whose original
// resource cannot be honored. It accepts exactly one response.
type ReassignmentRequest struct {
	ID                 uuid.UUID
	ReservationID      uuid.UUID
	OriginalResourceID uuid.UUID
	RequesterID        uuid.UUID
	TenantID           string
	Reason             string

	// Alternatives are sorted by similarity score descending.
	Alternatives []Alternative
	// BestAlternative is the top-scoring available alternative, nil when every
	// candidate is unavailable.
	BestAlternative *uuid.UUID

	Accepted         *bool
	NewResourceID    *uuid.UUID
	UserFeedback     string
	NotificationSent bool
	RespondedAt      *time.Time
	CreatedAt        time.Time
}

// NewReassignmentRequest builds a request over the ranked alternatives,
// deriving BestAlternative from the first available entry.
func NewReassignmentRequest(reservationID, originalResourceID, requesterID uuid.UUID, tenantID, reason string, alternatives []Alternative) *ReassignmentRequest {
	r := &ReassignmentRequest{
		ID:                 uuid.New(),
		ReservationID:      reservationID,
		OriginalResourceID: originalResourceID,
		RequesterID:        requesterID,
		TenantID:           tenantID,
		Reason:             reason,
		Alternatives:       alternatives,
		CreatedAt:          time.Now().UTC(),
	}
	for _, alt := range alternatives {
		if alt.IsAvailable {
			id := alt.ResourceID
			r.BestAlternative = &id
			break
		}
	}
	return r
}

// Respond records the requester's single response. Accepting without naming a
// resource falls back to BestAlternative; the named resource must be one of
// the proposed alternatives. Rejection keeps the conflict open and records
// the feedback for follow-up.
func (r *ReassignmentRequest) Respond(accepted bool, newResourceID *uuid.UUID, feedback string, now time.Time) error {
	if r.RespondedAt != nil {
		return reassigndomain.ErrAlreadyResponded
	}

	if accepted {
		if newResourceID == nil {
			if r.BestAlternative == nil {
				return fmt.Errorf("%w: no available alternative to accept", reassigndomain.ErrUnknownAlternative)
			}
			newResourceID = r.BestAlternative
		}
		if !r.hasAlternative(*newResourceID) {
			return reassigndomain.ErrUnknownAlternative
		}
		r.NewResourceID = newResourceID
	}

	r.Accepted = &accepted
	r.UserFeedback = feedback
	responded := now.UTC()
	r.RespondedAt = &responded
	return nil
}

func (r *ReassignmentRequest) hasAlternative(resourceID uuid.UUID) bool {
	for _, alt := range r.Alternatives {
		if alt.ResourceID == resourceID {
			return true
		}
	}
	return false
}
