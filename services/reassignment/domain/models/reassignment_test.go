package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	reassigndomain "github.com/ghuser/campusreserve/services/reassignment/domain"
)

func proposal(t *testing.T) *ReassignmentRequest {
	t.Helper()
	alternatives := []Alternative{
		{ResourceID: uuid.New(), ResourceName: "lab-102", SimilarityScore: 0.9, IsAvailable: false, UnavailabilityReason: "maintenance"},
		{ResourceID: uuid.New(), ResourceName: "lab-201", SimilarityScore: 0.7, IsAvailable: true},
		{ResourceID: uuid.New(), ResourceName: "lib-3", SimilarityScore: 0.4, IsAvailable: true},
	}
	return NewReassignmentRequest(uuid.New(), uuid.New(), uuid.New(), "campus-a", "resource unavailable", alternatives)
}

func TestBestAlternativeIsTopAvailable(t *testing.T) {
	req := proposal(t)
	if req.BestAlternative == nil {
		t.Fatal("best alternative not set")
	}
	// index 0 is unavailable, so best is index 1
	if *req.BestAlternative != req.Alternatives[1].ResourceID {
		t.Errorf("best = %s, want %s", req.BestAlternative, req.Alternatives[1].ResourceID)
	}
}

func TestBestAlternativeNilWhenNoneAvailable(t *testing.T) {
	req := NewReassignmentRequest(uuid.New(), uuid.New(), uuid.New(), "campus-a", "", []Alternative{
		{ResourceID: uuid.New(), IsAvailable: false, UnavailabilityReason: "maintenance"},
	})
	if req.BestAlternative != nil {
		t.Errorf("best = %s, want nil", req.BestAlternative)
	}
}

func TestRespondAcceptDefaultsToBestAlternative(t *testing.T) {
	req := proposal(t)
	if err := req.Respond(true, nil, "", time.Now()); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if req.NewResourceID == nil || *req.NewResourceID != *req.BestAlternative {
		t.Errorf("new resource = %v, want best alternative %s", req.NewResourceID, req.BestAlternative)
	}
	if req.Accepted == nil || !*req.Accepted {
		t.Error("accepted flag not recorded")
	}
	if req.RespondedAt == nil {
		t.Error("responded timestamp not set")
	}
}

func TestRespondAcceptNamedAlternative(t *testing.T) {
	req := proposal(t)
	pick := req.Alternatives[2].ResourceID
	if err := req.Respond(true, &pick, "prefer the library", time.Now()); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if req.NewResourceID == nil || *req.NewResourceID != pick {
		t.Errorf("new resource = %v, want %s", req.NewResourceID, pick)
	}
}

func TestRespondRejectsUnknownAlternative(t *testing.T) {
	req := proposal(t)
	bogus := uuid.New()
	if err := req.Respond(true, &bogus, "", time.Now()); !errors.Is(err, reassigndomain.ErrUnknownAlternative) {
		t.Errorf("err = %v, want ErrUnknownAlternative", err)
	}
	if req.RespondedAt != nil {
		t.Error("failed response must not mark the request answered")
	}
}

func TestRespondRejectLeavesConflictOpen(t *testing.T) {
	req := proposal(t)
	if err := req.Respond(false, nil, "none of these fit", time.Now()); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if req.Accepted == nil || *req.Accepted {
		t.Error("rejection not recorded")
	}
	if req.NewResourceID != nil {
		t.Errorf("rejection must not set a new resource, got %s", req.NewResourceID)
	}
	if req.UserFeedback != "none of these fit" {
		t.Errorf("feedback = %q", req.UserFeedback)
	}
}

func TestSecondResponseConflicts(t *testing.T) {
	req := proposal(t)
	if err := req.Respond(true, nil, "", time.Now()); err != nil {
		t.Fatalf("first response: %v", err)
	}
	if err := req.Respond(false, nil, "changed my mind", time.Now()); !errors.Is(err, reassigndomain.ErrAlreadyResponded) {
		t.Errorf("second response: err = %v, want ErrAlreadyResponded", err)
	}
	// the first response stands
	if req.Accepted == nil || !*req.Accepted {
		t.Error("original response was overwritten")
	}
}
