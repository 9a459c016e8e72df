// Package services holds the reassignment context's dependency-free domain
// logic: the similarity scorer that ranks alternative resources.
package services

import (
	"sort"

	"github.com/ghuser/campusreserve/services/reassignment/domain/models"
)

// Weights are the configurable contributions of each sub-score to the
// similarity score. They are expected to sum to 1 (configuration loading
// normalizes them).
type Weights struct {
	Capacity     float64
	Features     float64
	Location     float64
	Availability float64
}

// Scorer computes similarity scores between a reservation's original resource
// and candidate replacements. Scoring is pure and deterministic: the same
// inputs always produce the same ranking.
type Scorer struct {
	weights Weights
}

func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes the weighted similarity of candidate to original.
func (s *Scorer) Score(original, candidate models.Resource) models.Alternative {
	breakdown := models.ScoreBreakdown{
		Capacity:     capacityScore(original.Capacity, candidate.Capacity),
		Features:     featureScore(original.Features, candidate.Features),
		Location:     locationScore(original, candidate),
		Availability: availabilityScore(candidate),
	}
	score := s.weights.Capacity*breakdown.Capacity +
		s.weights.Features*breakdown.Features +
		s.weights.Location*breakdown.Location +
		s.weights.Availability*breakdown.Availability

	return models.Alternative{
		ResourceID:           candidate.ID,
		ResourceName:         candidate.Name,
		SimilarityScore:      score,
		Breakdown:            breakdown,
		IsAvailable:          candidate.Available,
		UnavailabilityReason: candidate.UnavailabilityReason,
	}
}

// Rank scores every candidate and sorts by similarity descending. Ties break
// on resource ID ascending so the ranking is stable across runs.
func (s *Scorer) Rank(original models.Resource, candidates []models.Resource) []models.Alternative {
	alternatives := make([]models.Alternative, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == original.ID {
			continue
		}
		alternatives = append(alternatives, s.Score(original, c))
	}
	sort.Slice(alternatives, func(i, j int) bool {
		if alternatives[i].SimilarityScore != alternatives[j].SimilarityScore {
			return alternatives[i].SimilarityScore > alternatives[j].SimilarityScore
		}
		return alternatives[i].ResourceID.String() < alternatives[j].ResourceID.String()
	})
	return alternatives
}

// capacityScore is the clamped capacity ratio: identical capacities score 1,
// a candidate half or double the original's size scores 0.5.
func capacityScore(original, candidate int) float64 {
	if original <= 0 || candidate <= 0 {
		return 0
	}
	if candidate >= original {
		return float64(original) / float64(candidate)
	}
	return float64(candidate) / float64(original)
}

// featureScore is the Jaccard overlap of the two feature sets. Two resources
// with no features at all are considered fully similar.
func featureScore(original, candidate []string) float64 {
	if len(original) == 0 && len(candidate) == 0 {
		return 1
	}
	set := make(map[string]struct{}, len(original))
	for _, f := range original {
		set[f] = struct{}{}
	}
	intersection := 0
	candidateSet := make(map[string]struct{}, len(candidate))
	for _, f := range candidate {
		if _, dup := candidateSet[f]; dup {
			continue
		}
		candidateSet[f] = struct{}{}
		if _, ok := set[f]; ok {
			intersection++
		}
	}
	union := len(set) + len(candidateSet) - intersection
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}

// locationScore rewards proximity: same building 1.0, same campus 0.5,
// elsewhere 0.
func locationScore(original, candidate models.Resource) float64 {
	switch {
	case original.Building != "" && original.Building == candidate.Building:
		return 1
	case original.Campus != "" && original.Campus == candidate.Campus:
		return 0.5
	default:
		return 0
	}
}

func availabilityScore(candidate models.Resource) float64 {
	if candidate.Available {
		return 1
	}
	return 0
}
