package storage

import "errors"

// ErrInvalidInput is returned when a record fails validation before it is
// stored, such as a trade with an unknown direction.
var ErrInvalidInput = errors.New("invalid input")
