package recommend

import (
	"errors"
	"testing"

	"github.com/dinhhieu2003/toeic-recommender/internal/model"
)

func TestSimilarityScoreRanksByProfileAffinity(t *testing.T) {
	history := &model.History{
		LearnerID: "l1",
		Interactions: []model.Interaction{
			{ItemID: "h1", Type: model.InteractionCompleted, Features: []float64{1, 0}},
			{ItemID: "h2", Type: model.InteractionCompleted, Features: []float64{1, 0}},
		},
	}
	catalog := []model.Item{
		{ID: "listening", Features: []float64{1, 0}},
		{ID: "reading", Features: []float64{0, 1}},
	}

	scores, err := NewSimilarityScorer().Score(history, catalog, nil)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(scores))
	}
	if scores["listening"] <= scores["reading"] {
		t.Errorf("expected listening (%f) to outscore reading (%f)", scores["listening"], scores["reading"])
	}
}

func TestSimilarityScoreExcludesCompletedCandidates(t *testing.T) {
	history := &model.History{
		Interactions: []model.Interaction{
			{ItemID: "t1", Type: model.InteractionCompleted, Features: []float64{1, 1}},
		},
	}
	catalog := []model.Item{
		{ID: "t1", Features: []float64{1, 1}},
		{ID: "t2", Features: []float64{1, 0}},
	}
	excluded := map[string]struct{}{"t1": {}}

	scores, err := NewSimilarityScorer().Score(history, catalog, excluded)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if _, ok := scores["t1"]; ok {
		t.Error("excluded item t1 should not be scored")
	}
	if _, ok := scores["t2"]; !ok {
		t.Error("t2 should be scored via the profile built from the excluded item")
	}
}

func TestSimilarityScoreEmptyForUnscorableHistory(t *testing.T) {
	catalog := []model.Item{{ID: "t1", Features: []float64{1, 0}}}

	cases := []struct {
		name    string
		history *model.History
	}{
		{"nil history", nil},
		{"no interactions", &model.History{LearnerID: "l1"}},
		{"interactions without features", &model.History{
			Interactions: []model.Interaction{
				{ItemID: "gone", Type: model.InteractionCompleted},
			},
		}},
		{"zero profile vector", &model.History{
			Interactions: []model.Interaction{
				{ItemID: "z", Type: model.InteractionCompleted, Features: []float64{0, 0}},
			},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scores, err := NewSimilarityScorer().Score(tc.history, catalog, nil)
			if err != nil {
				t.Fatalf("Score failed: %v", err)
			}
			if len(scores) != 0 {
				t.Errorf("expected empty map, got %d entries", len(scores))
			}
		})
	}
}

func TestSimilarityScoreDimensionMismatch(t *testing.T) {
	history := &model.History{
		Interactions: []model.Interaction{
			{ItemID: "h1", Type: model.InteractionCompleted, Features: []float64{1, 0}},
		},
	}
	catalog := []model.Item{
		{ID: "bad", Features: []float64{1, 0, 0}},
	}

	_, err := NewSimilarityScorer().Score(history, catalog, nil)
	if !errors.Is(err, ErrInvalidFeatureDimension) {
		t.Fatalf("expected ErrInvalidFeatureDimension, got %v", err)
	}
}

func TestBuildProfileFallsBackToCatalogFeatures(t *testing.T) {
	// Older interaction records carry no feature snapshot; the catalog
	// fills the gap when the item is still listed.
	history := &model.History{
		Interactions: []model.Interaction{
			{ItemID: "t1", Type: model.InteractionCompleted},
		},
	}
	catalog := []model.Item{
		{ID: "t1", Features: []float64{0, 2}},
		{ID: "t2", Features: []float64{0, 1}},
	}

	profile, err := buildProfile(history, catalog)
	if err != nil {
		t.Fatalf("buildProfile failed: %v", err)
	}
	if profile == nil {
		t.Fatal("expected a profile from catalog features")
	}
	if profile[0] != 0 || profile[1] != 2 {
		t.Errorf("unexpected profile: %v", profile)
	}
}

func TestBuildProfileWeighsCompletionsOverAttempts(t *testing.T) {
	history := &model.History{
		Interactions: []model.Interaction{
			{ItemID: "a", Type: model.InteractionCompleted, Features: []float64{1, 0}},
			{ItemID: "b", Type: model.InteractionAttempted, Features: []float64{0, 1}},
		},
	}

	profile, err := buildProfile(history, nil)
	if err != nil {
		t.Fatalf("buildProfile failed: %v", err)
	}
	if profile[0] <= profile[1] {
		t.Errorf("completed dimension should dominate, got %v", profile)
	}
}
