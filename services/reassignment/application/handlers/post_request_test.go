package handlers

import (
	"testing"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/services/reassignment/domain/models"
)

func TestToReassignmentResponseMapsBestAlternative(t *testing.T) {
	req := models.NewReassignmentRequest(uuid.New(), uuid.New(), uuid.New(), "tenant-a", "projector broken",
		[]models.Alternative{
			{ResourceID: uuid.New(), SimilarityScore: 0.3, IsAvailable: false, UnavailabilityReason: "booked"},
			{ResourceID: uuid.New(), SimilarityScore: 0.8, IsAvailable: true},
		})

	resp := toReassignmentResponse(req)

	if resp.ID != req.ID || resp.ReservationID != req.ReservationID {
		t.Errorf("identity fields = %s/%s, want %s/%s", resp.ID, resp.ReservationID, req.ID, req.ReservationID)
	}
	if resp.BestAlternative == nil {
		t.Fatal("best alternative not mapped")
	}
	if *resp.BestAlternative != req.Alternatives[1].ResourceID {
		t.Errorf("best alternative = %s, want %s", resp.BestAlternative, req.Alternatives[1].ResourceID)
	}
	if len(resp.Alternatives) != 2 {
		t.Fatalf("alternatives = %d, want 2", len(resp.Alternatives))
	}
	if resp.Accepted != nil || resp.RespondedAt != nil {
		t.Error("fresh request must not carry a response")
	}
}
