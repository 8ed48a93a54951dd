package recommend

import (
	"testing"

	"github.com/dinhhieu2003/toeic-recommender/internal/model"
)

func coldStartScorer() *ColdStartScorer {
	return NewColdStartScorer(DefaultConfig())
}

func TestColdStartRanksByPopularityWithoutAttributes(t *testing.T) {
	history := &model.History{LearnerID: "new"}
	catalog := []model.Item{
		{ID: "mid", Attempts: 50},
		{ID: "hot", Attempts: 90},
		{ID: "cold", Attempts: 10},
	}

	scores := coldStartScorer().Score(history, catalog, nil)
	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	if !(scores["hot"] > scores["mid"] && scores["mid"] > scores["cold"]) {
		t.Errorf("expected hot > mid > cold, got %v", scores)
	}
}

func TestColdStartCoversEveryItem(t *testing.T) {
	// Items with no popularity or attribute signal still get a score;
	// nothing in the catalog may be unscoreable.
	history := &model.History{Target: 600}
	catalog := []model.Item{
		{ID: "a", Attempts: 100, Difficulty: 6},
		{ID: "b"}, // no signal at all
		{ID: "c", Difficulty: 2},
	}

	scores := coldStartScorer().Score(history, catalog, nil)
	for _, item := range catalog {
		if _, ok := scores[item.ID]; !ok {
			t.Errorf("item %s has no cold-start score", item.ID)
		}
	}
}

func TestColdStartAttributeMatchPrefersTargetDifficulty(t *testing.T) {
	history := &model.History{Target: 550} // bucket (550+50)/100 = 6
	catalog := []model.Item{
		{ID: "match", Difficulty: 6},
		{ID: "far", Difficulty: 1},
	}

	scores := coldStartScorer().Score(history, catalog, nil)
	if scores["match"] <= scores["far"] {
		t.Errorf("expected difficulty match to win, got %v", scores)
	}
}

func TestColdStartSkipsExcluded(t *testing.T) {
	history := &model.History{}
	catalog := []model.Item{
		{ID: "done", Attempts: 90},
		{ID: "fresh", Attempts: 10},
	}
	excluded := map[string]struct{}{"done": {}}

	scores := coldStartScorer().Score(history, catalog, excluded)
	if _, ok := scores["done"]; ok {
		t.Error("excluded item should not be scored")
	}
	if _, ok := scores["fresh"]; !ok {
		t.Error("non-excluded item missing from scores")
	}
}

func TestColdStartDeterministic(t *testing.T) {
	history := &model.History{Target: 700}
	catalog := []model.Item{
		{ID: "a", Attempts: 30, Difficulty: 7},
		{ID: "b", Attempts: 60, Difficulty: 5},
	}

	first := coldStartScorer().Score(history, catalog, nil)
	second := coldStartScorer().Score(history, catalog, nil)
	for id, s := range first {
		if second[id] != s {
			t.Errorf("score for %s changed between calls: %f vs %f", id, s, second[id])
		}
	}
}
