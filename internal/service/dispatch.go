package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/seegalab/seega-server/internal/obslog"
)

// queueSize bounds pending push frames per game. A full queue drops the
// frame instead of blocking the action; clients resync from GET state.
const queueSize = 256

// eventQueues gives every game one ordered delivery queue drained by a
// single goroutine, so frames leave in enqueue order even when a socket
// write is slow.
type eventQueues struct {
	mu     sync.Mutex
	queues map[string]chan outbound
}

func newEventQueues() *eventQueues {
	return &eventQueues{queues: make(map[string]chan outbound)}
}

// get returns the game's queue, starting its drainer on first use.
func (q *eventQueues) get(gameID string, deliver func(outbound)) chan<- outbound {
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.queues[gameID]
	if !ok {
		ch = make(chan outbound, queueSize)
		q.queues[gameID] = ch
		go func() {
			for f := range ch {
				deliver(f)
			}
		}()
	}
	return ch
}

// drop closes a deleted game's queue and ends its drainer. Callers must
// hold the game lock so no enqueue races the close.
func (q *eventQueues) drop(gameID string) {
	q.mu.Lock()
	ch, ok := q.queues[gameID]
	delete(q.queues, gameID)
	q.mu.Unlock()
	if ok {
		close(ch)
	}
}

// dispatch enqueues frames on the game's delivery queue. Callers hold the
// game lock, and one drainer per game sends in enqueue order, so frames of
// consecutive actions cannot overtake each other.
func (s *Service) dispatch(gameID string, frames []outbound) {
	if len(frames) == 0 {
		return
	}
	ch := s.queues.get(gameID, func(f outbound) { s.deliver(gameID, f) })
	for _, f := range frames {
		select {
		case ch <- f:
		default:
			obslog.L().Warn("push_queue_full",
				zap.String("game_id", gameID),
				zap.String("event", f.Event.Type))
		}
	}
}

func (s *Service) deliver(gameID string, f outbound) {
	ctx := context.Background()
	if f.Target != "" {
		s.hub.SendToPlayer(ctx, gameID, f.Target, f.Event)
		return
	}
	s.hub.Broadcast(ctx, gameID, f.Event, f.Exclude)
}
