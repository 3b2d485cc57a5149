// Package store persists rate-limit state in two independent on-device
// backends: a bbolt key-value file (primary) and a SQLite table keyed by
// device fingerprint (secondary). The limiter mirrors every mutation to
// both so that clearing one does not silently reset quotas.
package store

import (
	"context"

	"github.com/huetone-ai/huetone/pkg/models"
)

// Store persists one device's rate-limit state.
type Store interface {
	// Load returns the stored state, or nil when none exists.
	Load(ctx context.Context) (*models.RateLimitState, error)
	// Save overwrites the stored state.
	Save(ctx context.Context, state *models.RateLimitState) error
	// Clear removes the stored state.
	Clear(ctx context.Context) error
	// Close releases underlying resources.
	Close() error
}
