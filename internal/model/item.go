package model

// ItemType distinguishes the two kinds of recommendable content.
type ItemType string

const (
	ItemTypeTest    ItemType = "test"
	ItemTypeLecture ItemType = "lecture"
	// ItemTypeAny selects the whole catalog regardless of kind.
	ItemTypeAny ItemType = ""
)

// Valid reports whether t is a known item type or the unfiltered sentinel.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeTest, ItemTypeLecture, ItemTypeAny:
		return true
	}
	return false
}

// Item is one recommendable entry in the catalog (a practice test or a
// lecture). The backend owns it; the core receives an immutable snapshot
// per request and never mutates it.
type Item struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       ItemType  `json:"type"`
	Topics     []string  `json:"topics,omitempty"`
	Difficulty int       `json:"difficulty"`          // TOEIC difficulty bucket (roughly target/100)
	Attempts   int       `json:"total_user_attempts"` // global popularity signal, used by cold start
	Features   []float64 `json:"features,omitempty"`  // feature vector, used by similarity scoring
}
