package recommend

import "fmt"

// Config carries every tunable of the recommendation core. It is passed in
// explicitly at construction, not read from ambient globals, and validated
// before use.
type Config struct {
	// ColdStartThreshold is the minimum interaction count for the
	// similarity path to be trusted. Below it the cold-start policy is
	// used exclusively.
	ColdStartThreshold int `yaml:"cold_start_threshold"`

	// BlendWeight is the similarity share when an item is scored by both
	// paths: final = w*similarity + (1-w)*coldstart. 1.0 means the
	// similarity path alone decides (cold start only fills empty slots).
	BlendWeight float64 `yaml:"blend_weight"`

	// PopularityWeight and AttributeWeight split the cold-start score
	// between global popularity and learner-attribute match.
	PopularityWeight float64 `yaml:"popularity_weight"`
	AttributeWeight  float64 `yaml:"attribute_weight"`

	// TargetMargin is added to the learner's stated goal score when
	// deriving the difficulty a recommendation should aim at.
	TargetMargin int `yaml:"target_margin"`

	// MaxCount caps the size of any recommendation list.
	MaxCount int `yaml:"max_count"`
}

// DefaultConfig returns the tuning used in production. Popularity leads
// the cold-start blend because new learners have no attribute history to
// match against yet.
func DefaultConfig() Config {
	return Config{
		ColdStartThreshold: 5,
		BlendWeight:        1.0,
		PopularityWeight:   0.7,
		AttributeWeight:    0.3,
		TargetMargin:       50,
		MaxCount:           20,
	}
}

// Validate checks the configuration for values that would make scoring
// meaningless.
func (c Config) Validate() error {
	if c.ColdStartThreshold < 0 {
		return fmt.Errorf("cold_start_threshold must be >= 0, got %d", c.ColdStartThreshold)
	}
	if c.BlendWeight < 0 || c.BlendWeight > 1 {
		return fmt.Errorf("blend_weight must be in [0,1], got %g", c.BlendWeight)
	}
	if c.PopularityWeight < 0 || c.AttributeWeight < 0 {
		return fmt.Errorf("cold-start weights must be >= 0, got popularity=%g attribute=%g",
			c.PopularityWeight, c.AttributeWeight)
	}
	if c.PopularityWeight+c.AttributeWeight == 0 {
		return fmt.Errorf("cold-start weights must not both be zero")
	}
	if c.MaxCount <= 0 {
		return fmt.Errorf("max_count must be > 0, got %d", c.MaxCount)
	}
	return nil
}
