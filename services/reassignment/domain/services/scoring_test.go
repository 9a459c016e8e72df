package services

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/services/reassignment/domain/models"
)

var testWeights = Weights{Capacity: 0.30, Features: 0.30, Location: 0.20, Availability: 0.20}

func room(name string, capacity int, building, campus string, available bool, features ...string) models.Resource {
	return models.Resource{
		ID:        uuid.New(),
		TenantID:  "campus-a",
		Name:      name,
		Building:  building,
		Campus:    campus,
		Capacity:  capacity,
		Features:  features,
		Available: available,
	}
}

func TestScoreIdenticalResource(t *testing.T) {
	scorer := NewScorer(testWeights)
	original := room("lab-101", 30, "science", "north", true, "projector", "whiteboard")
	twin := room("lab-102", 30, "science", "north", true, "projector", "whiteboard")

	alt := scorer.Score(original, twin)
	if math.Abs(alt.SimilarityScore-1.0) > 1e-9 {
		t.Errorf("score = %v, want 1.0 (breakdown %+v)", alt.SimilarityScore, alt.Breakdown)
	}
}

func TestScoreBreakdownDimensions(t *testing.T) {
	scorer := NewScorer(testWeights)
	original := room("lab-101", 30, "science", "north", true, "projector", "whiteboard")

	tests := []struct {
		name      string
		candidate models.Resource
		check     func(t *testing.T, alt models.Alternative)
	}{
		{
			name:      "double capacity halves capacity score",
			candidate: room("aud-1", 60, "science", "north", true, "projector", "whiteboard"),
			check: func(t *testing.T, alt models.Alternative) {
				if math.Abs(alt.Breakdown.Capacity-0.5) > 1e-9 {
					t.Errorf("capacity = %v, want 0.5", alt.Breakdown.Capacity)
				}
			},
		},
		{
			name:      "half capacity also halves capacity score",
			candidate: room("sem-2", 15, "science", "north", true, "projector", "whiteboard"),
			check: func(t *testing.T, alt models.Alternative) {
				if math.Abs(alt.Breakdown.Capacity-0.5) > 1e-9 {
					t.Errorf("capacity = %v, want 0.5", alt.Breakdown.Capacity)
				}
			},
		},
		{
			name:      "feature overlap is jaccard",
			candidate: room("lab-201", 30, "science", "north", true, "projector", "fume-hood"),
			check: func(t *testing.T, alt models.Alternative) {
				// intersection 1 (projector), union 3
				if math.Abs(alt.Breakdown.Features-1.0/3.0) > 1e-9 {
					t.Errorf("features = %v, want 1/3", alt.Breakdown.Features)
				}
			},
		},
		{
			name:      "same campus different building",
			candidate: room("lib-3", 30, "library", "north", true, "projector", "whiteboard"),
			check: func(t *testing.T, alt models.Alternative) {
				if alt.Breakdown.Location != 0.5 {
					t.Errorf("location = %v, want 0.5", alt.Breakdown.Location)
				}
			},
		},
		{
			name:      "other campus scores zero location",
			candidate: room("ann-1", 30, "annex", "south", true, "projector", "whiteboard"),
			check: func(t *testing.T, alt models.Alternative) {
				if alt.Breakdown.Location != 0 {
					t.Errorf("location = %v, want 0", alt.Breakdown.Location)
				}
			},
		},
		{
			name:      "unavailable candidate keeps reason",
			candidate: room("lab-103", 30, "science", "north", false, "projector", "whiteboard"),
			check: func(t *testing.T, alt models.Alternative) {
				if alt.Breakdown.Availability != 0 {
					t.Errorf("availability = %v, want 0", alt.Breakdown.Availability)
				}
				if alt.IsAvailable {
					t.Error("IsAvailable should be false")
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, scorer.Score(original, tt.candidate))
		})
	}
}

func TestRankSortsDescendingAndIsDeterministic(t *testing.T) {
	scorer := NewScorer(testWeights)
	original := room("lab-101", 30, "science", "north", true, "projector")

	strong := room("lab-102", 30, "science", "north", true, "projector")
	medium := room("lib-3", 30, "library", "north", true, "projector")
	weak := room("ann-1", 10, "annex", "south", false)
	candidates := []models.Resource{weak, medium, strong}

	first := scorer.Rank(original, candidates)
	if len(first) != 3 {
		t.Fatalf("alternatives = %d, want 3", len(first))
	}
	if first[0].ResourceID != strong.ID || first[1].ResourceID != medium.ID || first[2].ResourceID != weak.ID {
		t.Fatalf("unexpected order: %v", []string{first[0].ResourceName, first[1].ResourceName, first[2].ResourceName})
	}
	for i := 1; i < len(first); i++ {
		if first[i].SimilarityScore > first[i-1].SimilarityScore {
			t.Fatalf("not sorted descending at %d", i)
		}
	}

	// Same inputs in a different order produce the same ranking.
	second := scorer.Rank(original, []models.Resource{strong, weak, medium})
	for i := range first {
		if first[i].ResourceID != second[i].ResourceID {
			t.Fatalf("ranking not deterministic at %d", i)
		}
	}
}

func TestRankBreaksTiesByResourceID(t *testing.T) {
	scorer := NewScorer(testWeights)
	original := room("lab-101", 30, "science", "north", true)

	a := room("twin-a", 30, "science", "north", true)
	b := room("twin-b", 30, "science", "north", true)
	ranked := scorer.Rank(original, []models.Resource{b, a})

	if ranked[0].ResourceID.String() > ranked[1].ResourceID.String() {
		t.Error("equal scores should order by resource ID ascending")
	}
}

func TestRankExcludesOriginal(t *testing.T) {
	scorer := NewScorer(testWeights)
	original := room("lab-101", 30, "science", "north", true)
	other := room("lab-102", 30, "science", "north", true)

	ranked := scorer.Rank(original, []models.Resource{original, other})
	if len(ranked) != 1 || ranked[0].ResourceID != other.ID {
		t.Fatalf("original resource must not rank among its own alternatives: %+v", ranked)
	}
}
