package repository

import "github.com/okian/driftwatch/internal/domain/model"

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithTeams registers teams up front.
func WithTeams(teams ...model.Team) Option {
	return func(s *MemStore) {
		for _, t := range teams {
			s.teams[t.ID] = t
		}
	}
}
