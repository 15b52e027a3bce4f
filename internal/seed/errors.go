package seed

import "errors"

// ErrInvalidConfig is returned when a seed configuration cannot be generated.
var ErrInvalidConfig = errors.New("invalid seed config")
