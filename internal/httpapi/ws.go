package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/seegalab/seega-server/internal/obslog"
	"github.com/seegalab/seega-server/internal/seega"
	"github.com/seegalab/seega-server/pkg/seegadto"
)

const wsSendTimeout = 5 * time.Second

// originHosts reduces configured full origins ("http://example.com") to the
// host patterns the websocket handshake compares Origin headers against.
// Values that do not parse as URLs pass through unchanged.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}

// wsConn adapts a websocket to the hub's Conn interface.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Send(ctx context.Context, ev *seegadto.Event) error {
	return wsjson.Write(ctx, c.conn, ev)
}

func (c *wsConn) Close(reason string) error {
	return c.conn.Close(websocket.StatusNormalClosure, reason)
}

// handleConnect upgrades to a websocket and registers the player for pushes.
// Closing the socket never mutates the game; only an explicit leave does.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, seegadto.ErrorResponse{
			Error: s.msgs.RenderOr("auth.missing_token", nil),
			Code:  string(seegadto.CodeUnauthorized),
		})
		return
	}

	g, seat, err := s.svc.GameForToken(r.Context(), gameID, token)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// The handshake matches origin patterns against the Origin header's
	// host, not the full URL, so the configured origins are reduced to
	// their host part.
	opts := &websocket.AcceptOptions{OriginPatterns: originHosts(s.cfg.AllowedOrigins)}
	if len(s.cfg.AllowedOrigins) == 0 {
		opts = &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.String("game_id", gameID), zap.Error(err))
		return
	}

	wc := &wsConn{conn: conn}
	s.hub.Connect(gameID, token, wc)
	defer s.hub.DisconnectConn(gameID, token, wc)
	defer func() { _ = wc.Close("bye") }()

	obslog.L().Info("ws_connect",
		zap.String("game_id", gameID),
		zap.Int("player", seat))

	hello := seegadto.NewEvent(seegadto.EventConnected)
	hello.Message = s.msgs.RenderOr("game.connected", nil)
	hello.Player = seat
	helloCtx, cancel := context.WithTimeout(context.Background(), wsSendTimeout)
	err = wc.Send(helloCtx, hello)
	cancel()
	if err != nil {
		return
	}

	// When the second socket arrives on a running game, nudge both sides
	// shortly after so neither misses the start.
	if g.Status == seega.StatusPlaying && s.hub.ConnectedCount(gameID) >= 2 {
		phase, current := string(g.Phase), g.CurrentPlayer
		time.AfterFunc(100*time.Millisecond, func() {
			s.hub.Broadcast(context.Background(), gameID, seegadto.GameStartedEvent(phase, current), "")
		})
	}

	done := make(chan struct{})
	defer close(done)
	go s.keepalive(done, gameID, wc)

	s.readLoop(gameID, seat, wc)
}

// keepalive pushes an application-level ping on an interval so idle
// intermediaries keep the socket open. A failed send ends the loop; the
// read loop notices the dead socket on its own.
func (s *Server) keepalive(done <-chan struct{}, gameID string, wc *wsConn) {
	t := time.NewTicker(s.cfg.WSPingInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), wsSendTimeout)
			err := wc.Send(ctx, seegadto.NewEvent(seegadto.EventPing))
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// readLoop consumes client frames until the socket dies. The only inbound
// frame with meaning is a ping, answered with a pong; pushes all travel the
// other way. Frames that fail to decode are ignored, not fatal.
func (s *Server) readLoop(gameID string, seat int, wc *wsConn) {
	for {
		_, data, err := wc.conn.Read(context.Background())
		if err != nil {
			obslog.L().Debug("ws_closed",
				zap.String("game_id", gameID),
				zap.Int("player", seat),
				zap.Error(err))
			return
		}
		var msg seegadto.Event
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == seegadto.EventPing {
			ctx, cancel := context.WithTimeout(context.Background(), wsSendTimeout)
			err := wc.Send(ctx, seegadto.NewEvent(seegadto.EventPong))
			cancel()
			if err != nil {
				return
			}
		}
	}
}
