package model

// InteractionType classifies how a learner engaged with an item.
type InteractionType string

const (
	InteractionAttempted InteractionType = "attempted"
	InteractionCompleted InteractionType = "completed"
)

// Interaction is one record of a learner engaging with a catalog item.
// Features carries a snapshot of the item's feature vector as it was at
// interaction time, so a learner profile can still be built when the item
// has since left the catalog.
type Interaction struct {
	ItemID    string          `json:"item_id"`
	Type      InteractionType `json:"type"`
	Score     float64         `json:"score,omitempty"` // normalized outcome in [0,1], 0 when unknown
	Timestamp int64           `json:"timestamp"`
	Features  []float64       `json:"features,omitempty"`
}

// History is the per-request snapshot of a learner's interaction history
// plus the coarse attributes the learner stated up front. It is fetched
// once per request and never mutated or persisted by the core.
type History struct {
	LearnerID    string        `json:"learner_id"`
	Target       int           `json:"target,omitempty"` // stated goal score (10-990)
	Level        int           `json:"level,omitempty"`  // stated proficiency bucket
	Interactions []Interaction `json:"interactions"`
}

// CompletedSet returns the IDs of items the learner has completed.
func (h *History) CompletedSet() map[string]struct{} {
	set := make(map[string]struct{})
	if h == nil {
		return set
	}
	for _, in := range h.Interactions {
		if in.Type == InteractionCompleted {
			set[in.ItemID] = struct{}{}
		}
	}
	return set
}

// InteractionCount returns the number of recorded interactions.
func (h *History) InteractionCount() int {
	if h == nil {
		return 0
	}
	return len(h.Interactions)
}
