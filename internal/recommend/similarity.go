package recommend

import (
	"fmt"
	"math"

	"github.com/dinhhieu2003/toeic-recommender/internal/model"
)

// Interaction weights for profile construction. A completed item says more
// about the learner's taste than a mere attempt.
const (
	weightCompleted = 1.0
	weightAttempted = 0.5
)

// SimilarityScorer computes the affinity between a learner and each
// candidate item: it aggregates the feature vectors of items the learner
// interacted with into a profile vector and ranks candidates by cosine
// similarity against it.
type SimilarityScorer struct{}

// NewSimilarityScorer returns the default content-based scorer.
func NewSimilarityScorer() *SimilarityScorer {
	return &SimilarityScorer{}
}

// Score maps every scoreable catalog item to a similarity score in [0,1].
// Items in excluded are skipped as candidates but still contribute to the
// learner profile. An empty map (and nil error) means the learner has no
// scorable interactions and the caller should fall back to cold start.
//
// Returns ErrInvalidFeatureDimension when a feature vector's length
// disagrees with the profile's; that is an upstream data-contract
// violation and must not be papered over.
func (s *SimilarityScorer) Score(history *model.History, catalog []model.Item, excluded map[string]struct{}) (map[string]float64, error) {
	if len(catalog) == 0 {
		return map[string]float64{}, nil
	}

	profile, err := buildProfile(history, catalog)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		// No scorable interactions: signal cold start, not failure.
		return map[string]float64{}, nil
	}

	scores := make(map[string]float64, len(catalog))
	for _, item := range catalog {
		if _, skip := excluded[item.ID]; skip {
			continue
		}
		if len(item.Features) == 0 {
			continue
		}
		if len(item.Features) != len(profile) {
			return nil, fmt.Errorf("%w: item %s has %d features, profile has %d",
				ErrInvalidFeatureDimension, item.ID, len(item.Features), len(profile))
		}
		scores[item.ID] = cosineUnit(profile, item.Features)
	}
	return scores, nil
}

// buildProfile aggregates interaction feature vectors into a single
// weighted-average profile. Feature snapshots carried on the interaction
// take precedence; the catalog is the fallback for interactions recorded
// before snapshots existed. Returns nil when nothing is scorable.
func buildProfile(history *model.History, catalog []model.Item) ([]float64, error) {
	if history == nil || len(history.Interactions) == 0 {
		return nil, nil
	}

	byID := make(map[string]*model.Item, len(catalog))
	for i := range catalog {
		byID[catalog[i].ID] = &catalog[i]
	}

	var profile []float64
	var totalWeight float64

	for _, in := range history.Interactions {
		features := in.Features
		if len(features) == 0 {
			if item, ok := byID[in.ItemID]; ok {
				features = item.Features
			}
		}
		if len(features) == 0 {
			continue // nothing known about this item
		}

		w := weightAttempted
		if in.Type == model.InteractionCompleted {
			w = weightCompleted
		}
		if in.Score > 0 {
			w *= in.Score
		}
		if w == 0 {
			continue
		}

		if profile == nil {
			profile = make([]float64, len(features))
		} else if len(features) != len(profile) {
			return nil, fmt.Errorf("%w: interaction with item %s has %d features, expected %d",
				ErrInvalidFeatureDimension, in.ItemID, len(features), len(profile))
		}
		for i, f := range features {
			profile[i] += w * f
		}
		totalWeight += w
	}

	if profile == nil || totalWeight == 0 {
		return nil, nil
	}
	for i := range profile {
		profile[i] /= totalWeight
	}
	if isZeroVector(profile) {
		return nil, nil
	}
	return profile, nil
}

// cosineUnit computes cosine similarity mapped from [-1,1] onto [0,1] so
// it shares a scale with the cold-start path. A zero candidate vector
// scores 0.
func cosineUnit(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}

func isZeroVector(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
