package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/seegalab/seega-server/internal/seega"
)

// memstore keeps sessions in a process-local map. State is lost on restart.
type memstore struct {
	mu    sync.RWMutex
	games map[string][]byte
}

// NewMemoryStore returns a Store for single-process deployments and tests.
// Sessions are stored in their JSON form so Get always hands out an
// independent copy, same as the Redis variant.
func NewMemoryStore() Store {
	return &memstore{games: make(map[string][]byte)}
}

func (m *memstore) Save(ctx context.Context, g *seega.Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.games[g.ID] = raw
	m.mu.Unlock()
	return nil
}

func (m *memstore) Get(ctx context.Context, gameID string) (*seega.Game, error) {
	m.mu.RLock()
	raw, ok := m.games[gameID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var g seega.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (m *memstore) Delete(ctx context.Context, gameID string) error {
	m.mu.Lock()
	delete(m.games, gameID)
	m.mu.Unlock()
	return nil
}

func (m *memstore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games), nil
}
