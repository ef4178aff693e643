package model

import "github.com/rotisserie/eris"

// Sentinel errors for the coverage pipeline. Callers match them with eris.Is
// after any number of Wrap layers.
var (
	// ErrValidation marks malformed construction input: bad geometry, an
	// inverted bounding box, a non-positive granularity, a missing CSV column.
	ErrValidation = eris.New("validation failed")

	// ErrInvalidArgument marks a request that exceeds available cardinality,
	// e.g. selecting more agents than exist.
	ErrInvalidArgument = eris.New("invalid argument")

	// ErrUnsupportedMetric marks an unknown coverage metric identifier.
	ErrUnsupportedMetric = eris.New("unsupported metric")
)
