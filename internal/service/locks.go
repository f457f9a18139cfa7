package service

import "sync"

// gameLocks serializes all mutation of a single game: every
// read-modify-write cycle holds the game's mutex across legality check,
// mutation, persist and notification enqueue.
type gameLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newGameLocks() *gameLocks {
	return &gameLocks{locks: make(map[string]*sync.Mutex)}
}

// get returns the mutex for a game id, creating it on first use.
func (l *gameLocks) get(gameID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[gameID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[gameID] = m
	}
	return m
}

// drop forgets a deleted game's mutex. A caller still holding it keeps a
// valid lock; later actions on the id miss in the store anyway.
func (l *gameLocks) drop(gameID string) {
	l.mu.Lock()
	delete(l.locks, gameID)
	l.mu.Unlock()
}
