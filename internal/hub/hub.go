// Package hub tracks live player connections per game and fans events out to
// them. Delivery is best-effort: a failed send disconnects that entry and is
// never reported back to the action that produced the event.
package hub

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seegalab/seega-server/internal/obslog"
	"github.com/seegalab/seega-server/pkg/seegadto"
)

// Conn is one live push channel to a player.
type Conn interface {
	// Send writes one event frame; an error marks the connection dead.
	Send(ctx context.Context, ev *seegadto.Event) error
	// Close tears the channel down with a reason string.
	Close(reason string) error
}

const sendTimeout = 5 * time.Second

// Hub is the process-wide registry: game id → (player token → connection).
// Safe for concurrent connect/disconnect/broadcast.
type Hub struct {
	mu    sync.RWMutex
	games map[string]map[string]Conn
}

func New() *Hub {
	return &Hub{games: make(map[string]map[string]Conn)}
}

// Connect registers a connection. Idempotent per (game, token): a newer
// connection for an already-registered token replaces the old one, which is
// closed so its read loop unwinds.
func (h *Hub) Connect(gameID, token string, conn Conn) {
	h.mu.Lock()
	conns, ok := h.games[gameID]
	if !ok {
		conns = make(map[string]Conn)
		h.games[gameID] = conns
	}
	prev := conns[token]
	conns[token] = conn
	h.mu.Unlock()

	if prev != nil && prev != conn {
		_ = prev.Close("replaced by newer connection")
	}
}

// Disconnect removes an entry and garbage-collects the per-game map when the
// last connection is gone. Removing an unknown entry is a no-op.
func (h *Hub) Disconnect(gameID, token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.games[gameID]
	if !ok {
		return
	}
	delete(conns, token)
	if len(conns) == 0 {
		delete(h.games, gameID)
	}
}

// DisconnectConn removes the entry only while conn is still the registered
// connection for the token, so a late-unwinding read loop cannot evict the
// socket that replaced it.
func (h *Hub) DisconnectConn(gameID, token string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.games[gameID]
	if !ok || conns[token] != conn {
		return
	}
	delete(conns, token)
	if len(conns) == 0 {
		delete(h.games, gameID)
	}
}

// DropGame disconnects every connection of a deleted game.
func (h *Hub) DropGame(gameID string) {
	h.mu.Lock()
	conns := h.games[gameID]
	delete(h.games, gameID)
	h.mu.Unlock()
	for _, c := range conns {
		_ = c.Close("game deleted")
	}
}

// ConnectedCount reports how many players hold a live connection to a game.
func (h *Hub) ConnectedCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

// SendToPlayer delivers one event to a single seat if connected. A delivery
// failure disconnects that entry; there is no retry.
func (h *Hub) SendToPlayer(ctx context.Context, gameID, token string, ev *seegadto.Event) {
	h.mu.RLock()
	conn := h.games[gameID][token]
	h.mu.RUnlock()
	if conn == nil {
		return
	}

	sctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := conn.Send(sctx, ev); err != nil {
		obslog.L().Warn("push_send_failed",
			zap.String("game_id", gameID),
			zap.String("event", ev.Type),
			zap.Error(err),
		)
		h.DisconnectConn(gameID, token, conn)
	}
}

// Broadcast delivers an event to every connection of the game except the
// excluded token (typically the acting player, who already got the result
// synchronously). Failed entries are disconnected after the scan, and only
// while still registered, so a reconnect during the scan survives.
func (h *Hub) Broadcast(ctx context.Context, gameID string, ev *seegadto.Event, excludeToken string) {
	h.mu.RLock()
	targets := make(map[string]Conn, len(h.games[gameID]))
	for token, conn := range h.games[gameID] {
		if excludeToken != "" && token == excludeToken {
			continue
		}
		targets[token] = conn
	}
	h.mu.RUnlock()

	type failure struct {
		token string
		conn  Conn
	}
	var failed []failure
	for token, conn := range targets {
		sctx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := conn.Send(sctx, ev)
		cancel()
		if err != nil {
			failed = append(failed, failure{token: token, conn: conn})
		}
	}
	for _, f := range failed {
		obslog.L().Warn("push_broadcast_failed", zap.String("game_id", gameID), zap.String("event", ev.Type))
		h.DisconnectConn(gameID, f.token, f.conn)
	}
}
