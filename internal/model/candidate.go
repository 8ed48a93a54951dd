package model

// Provenance marks which scoring path produced a candidate score.
type Provenance string

const (
	ProvenanceSimilarity Provenance = "similarity"
	ProvenanceColdStart  Provenance = "cold-start"
	ProvenanceBlended    Provenance = "blended"
)

// Candidate is a transient (item, score) pair produced by a scoring path
// and consumed only by the orchestrator's ranking step.
type Candidate struct {
	ItemID     string
	Score      float64
	Provenance Provenance
}

// Recommendation is one ranked entry of the final output.
type Recommendation struct {
	ItemID     string     `json:"item_id"`
	Name       string     `json:"name"`
	Type       ItemType   `json:"type"`
	Score      float64    `json:"score"`
	Provenance Provenance `json:"provenance"`
}

// RecommendationList is the only output artifact of the core: an ordered,
// deduplicated, bounded list of recommendations (most-recommended first).
// It is built fresh per request and has no lifecycle beyond the response.
type RecommendationList struct {
	LearnerID string           `json:"learner_id"`
	Items     []Recommendation `json:"items"`
}
