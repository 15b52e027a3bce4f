package service

import (
	"fmt"

	"github.com/okian/driftwatch/internal/adapters/repository"
)

// ErrScopeNotFound is returned when an id is neither a team nor an organization
// with teams.
var ErrScopeNotFound = fmt.Errorf("scope not found: %w", repository.ErrNotFound)
