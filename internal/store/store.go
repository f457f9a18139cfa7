// Package store provides keyed persistence for game sessions. The core only
// sees the Store interface; implementations cover a process-local map and a
// Redis-backed variant with the same semantics.
package store

import (
	"context"
	"errors"

	"github.com/seegalab/seega-server/internal/seega"
)

// ErrNotFound is returned when no session exists for a game id.
var ErrNotFound = errors.New("game not found")

// Store persists sessions keyed by game identifier. Implementations must be
// safe for concurrent use; per-game mutation ordering is enforced above the
// store by the service's keyed locks.
type Store interface {
	Save(ctx context.Context, g *seega.Game) error
	Get(ctx context.Context, gameID string) (*seega.Game, error)
	Delete(ctx context.Context, gameID string) error
	Count(ctx context.Context) (int, error)
}
