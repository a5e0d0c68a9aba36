// Package simulator holds the entity hierarchy of an energy cell (cells,
// buildings and agents) and the drivers stepping it through time.
package simulator

import "errors"

// ErrInvalid is returned when an entity is constructed with parameters
// outside their domain.
var ErrInvalid = errors.New("invalid simulation entity")
