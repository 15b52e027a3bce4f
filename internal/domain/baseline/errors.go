package baseline

import (
	"fmt"

	"github.com/okian/driftwatch/internal/adapters/repository"
)

// ErrNotCalibrated is returned when a caller requires a baseline the team does
// not have yet.
var ErrNotCalibrated = fmt.Errorf("baseline not calibrated: %w", repository.ErrNotFound)
