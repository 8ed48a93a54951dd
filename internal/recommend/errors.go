package recommend

import "errors"

var (
	// ErrInsufficientCatalog is returned when the catalog snapshot is
	// empty: there is nothing to recommend. Distinct from a learner with
	// zero history, which is a valid cold-start case.
	ErrInsufficientCatalog = errors.New("insufficient catalog: no items available")

	// ErrInvalidFeatureDimension signals a data-contract violation from
	// the upstream catalog: an item's feature vector does not match the
	// learner profile's dimensionality. It is surfaced, never coerced by
	// padding or truncating, since that would corrupt rankings silently.
	ErrInvalidFeatureDimension = errors.New("invalid feature dimension")
)
