package recommend

import "github.com/dinhhieu2003/toeic-recommender/internal/model"

// difficultyScale normalizes the gap between an item's difficulty bucket
// and the bucket derived from the learner's goal score.
const difficultyScale = 10.0

// ColdStartScorer ranks items for learners whose history is too sparse for
// similarity scoring to be trustworthy. It blends global popularity with a
// match against the learner's stated attributes; items with no signal at
// all still receive the floor score so the whole catalog stays coverable.
type ColdStartScorer struct {
	popularityWeight float64
	attributeWeight  float64
	targetMargin     int
}

// NewColdStartScorer builds a scorer from validated config weights.
func NewColdStartScorer(cfg Config) *ColdStartScorer {
	return &ColdStartScorer{
		popularityWeight: cfg.PopularityWeight,
		attributeWeight:  cfg.AttributeWeight,
		targetMargin:     cfg.TargetMargin,
	}
}

// Score maps every non-excluded catalog item to a cold-start score in
// [0,1]. The ordering is fully determined by the inputs; ties are left for
// the orchestrator's stable ID tie-break.
func (s *ColdStartScorer) Score(history *model.History, catalog []model.Item, excluded map[string]struct{}) map[string]float64 {
	scores := make(map[string]float64, len(catalog))
	if len(catalog) == 0 {
		return scores
	}

	maxAttempts := 0
	for _, item := range catalog {
		if item.Attempts > maxAttempts {
			maxAttempts = item.Attempts
		}
	}

	targetBucket := 0
	if history != nil && history.Target > 0 {
		targetBucket = (history.Target + s.targetMargin) / 100
	} else if history != nil && history.Level > 0 {
		targetBucket = history.Level
	}

	for _, item := range catalog {
		if _, skip := excluded[item.ID]; skip {
			continue
		}

		popularity := 0.0
		if maxAttempts > 0 {
			popularity = float64(item.Attempts) / float64(maxAttempts)
		}

		if targetBucket == 0 {
			// No learner attributes: popularity is the only signal.
			scores[item.ID] = popularity
			continue
		}

		gap := float64(item.Difficulty - targetBucket)
		if gap < 0 {
			gap = -gap
		}
		match := 1 - gap/difficultyScale
		if match < 0 {
			match = 0
		}

		total := s.popularityWeight + s.attributeWeight
		scores[item.ID] = (s.popularityWeight*popularity + s.attributeWeight*match) / total
	}
	return scores
}
