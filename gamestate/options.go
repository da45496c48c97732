package gamestate

import (
	"github.com/rs/zerolog"
)

type Option func(*EntityManager)

// WithLogger sets the logger of the manager. The manager adds its name to every entry.
func WithLogger(logger *zerolog.Logger) Option {
	return func(m *EntityManager) {
		m.logger = logger
	}
}

// WithName names the manager in logs and snapshots. Defaults to the manager's ID.
func WithName(name string) Option {
	return func(m *EntityManager) {
		m.name = name
	}
}

// WithInitialCapacity pre-allocates room for n slots in every column.
func WithInitialCapacity(n int) Option {
	return func(m *EntityManager) {
		if n > 0 {
			m.capacity = n
		}
	}
}
