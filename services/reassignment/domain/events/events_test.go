package events

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/services/reassignment/domain/models"
)

func TestReassignmentCreatedEventCarriesBestAlternativeID(t *testing.T) {
	alternatives := []models.Alternative{
		{ResourceID: uuid.New(), SimilarityScore: 0.4, IsAvailable: false, UnavailabilityReason: "maintenance"},
		{ResourceID: uuid.New(), SimilarityScore: 0.9, IsAvailable: true},
	}
	req := models.NewReassignmentRequest(uuid.New(), uuid.New(), uuid.New(), "tenant-a", "room closed", alternatives)

	evt := ReassignmentCreatedEvent{
		ReassignmentID:     req.ID,
		ReservationID:      req.ReservationID,
		OriginalResourceID: req.OriginalResourceID,
		RequesterID:        req.RequesterID,
		TenantID:           req.TenantID,
		Alternatives:       req.Alternatives,
		BestAlternative:    req.BestAlternative,
		CreatedAt:          req.CreatedAt,
	}

	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	var decoded ReassignmentCreatedEvent
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if decoded.BestAlternative == nil {
		t.Fatal("best alternative missing from payload")
	}
	if *decoded.BestAlternative != alternatives[1].ResourceID {
		t.Errorf("best alternative = %s, want %s", decoded.BestAlternative, alternatives[1].ResourceID)
	}
	if len(decoded.Alternatives) != 2 {
		t.Fatalf("alternatives = %d, want 2", len(decoded.Alternatives))
	}
}

func TestReassignmentCreatedEventOmitsBestAlternativeWhenNoneAvailable(t *testing.T) {
	req := models.NewReassignmentRequest(uuid.New(), uuid.New(), uuid.New(), "tenant-a", "room closed",
		[]models.Alternative{{ResourceID: uuid.New(), IsAvailable: false, UnavailabilityReason: "booked"}})

	raw, err := json.Marshal(ReassignmentCreatedEvent{
		ReassignmentID:  req.ID,
		ReservationID:   req.ReservationID,
		Alternatives:    req.Alternatives,
		BestAlternative: req.BestAlternative,
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if _, ok := fields["best_alternative"]; ok {
		t.Error("best_alternative should be omitted when no candidate is available")
	}
}
