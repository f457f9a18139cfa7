// Package service orchestrates game sessions: it owns the store, the push
// hub and the per-game locks, and is the only layer that mutates games.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seegalab/seega-server/internal/hub"
	"github.com/seegalab/seega-server/internal/msgcat"
	"github.com/seegalab/seega-server/internal/obslog"
	"github.com/seegalab/seega-server/internal/seega"
	"github.com/seegalab/seega-server/internal/store"
	"github.com/seegalab/seega-server/pkg/seegadto"
)

// gameStartedDelay gives the second player time to open their websocket
// before the start frame is pushed.
const gameStartedDelay = 800 * time.Millisecond

type Service struct {
	store    store.Store
	hub      *hub.Hub
	msgs     *msgcat.Catalog
	maxGames int
	locks    *gameLocks
	queues   *eventQueues

	// startDelay is overridable in tests.
	startDelay time.Duration
}

func New(st store.Store, h *hub.Hub, msgs *msgcat.Catalog, maxGames int) *Service {
	return &Service{
		store:      st,
		hub:        h,
		msgs:       msgs,
		maxGames:   maxGames,
		locks:      newGameLocks(),
		queues:     newEventQueues(),
		startDelay: gameStartedDelay,
	}
}

// outbound is one queued push frame. Target empty means broadcast to every
// connection of the game except Exclude.
type outbound struct {
	Target  string
	Exclude string
	Event   *seegadto.Event
}

func newGameID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// randomOrdinal draws the starting player using crypto/rand.
func randomOrdinal() int {
	if n, _ := rand.Int(rand.Reader, big.NewInt(2)); n != nil && n.Int64() == 0 {
		return 2
	}
	return 1
}

func (s *Service) errNotFound() error {
	return seegadto.NewError(seegadto.CodeNotFound, s.msgs.RenderOr("game.not_found", nil))
}

func (s *Service) errUnauthorized() error {
	return seegadto.NewError(seegadto.CodeUnauthorized, s.msgs.RenderOr("auth.invalid_token", nil))
}

func (s *Service) errIllegal(key string, data any) error {
	return seegadto.NewError(seegadto.CodeIllegalAction, s.msgs.RenderOr(key, data))
}

func (s *Service) loadGame(ctx context.Context, gameID string) (*seega.Game, error) {
	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, s.errNotFound()
		}
		return nil, err
	}
	return g, nil
}

// seatFor resolves a token to its ordinal or fails with an auth error.
func (s *Service) seatFor(g *seega.Game, token string) (int, error) {
	n := g.SeatByToken(token)
	if n == 0 {
		return 0, s.errUnauthorized()
	}
	return n, nil
}

func (s *Service) victoryMessage(v *seega.Victory) string {
	return s.msgs.RenderOr(v.ReasonKey, map[string]any{"Winner": v.Winner, "Loser": v.Loser})
}

func finish(g *seega.Game, v *seega.Victory) {
	g.GameOver = true
	g.Winner = v.Winner
	g.Status = seega.StatusFinished
	g.ChainCapturePiece = nil
}

// CreateGame opens a WAITING session and seats the creator as player 1.
func (s *Service) CreateGame(ctx context.Context) (*seegadto.JoinInfo, error) {
	if s.maxGames > 0 {
		n, err := s.store.Count(ctx)
		if err != nil {
			return nil, err
		}
		if n >= s.maxGames {
			return nil, s.errIllegal("game.at_capacity", nil)
		}
	}

	g := seega.NewGame(newGameID(), newToken())
	if err := s.store.Save(ctx, g); err != nil {
		return nil, err
	}
	obslog.L().Info("game_create", zap.String("game_id", g.ID))
	return &seegadto.JoinInfo{
		GameID:       g.ID,
		PlayerToken:  g.Player1.Token,
		PlayerNumber: 1,
		Status:       string(g.Status),
	}, nil
}

// JoinGame seats the caller as player 2 and starts the match. Re-joining
// with a known token is idempotent, and a full game still hands out the
// second seat's token to a tokenless caller so a dropped client can recover.
func (s *Service) JoinGame(ctx context.Context, gameID, existingToken string) (*seegadto.JoinInfo, error) {
	mu := s.locks.get(gameID)
	mu.Lock()
	defer mu.Unlock()

	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if existingToken != "" {
		if n := g.SeatByToken(existingToken); n != 0 {
			return &seegadto.JoinInfo{
				GameID:       g.ID,
				PlayerToken:  existingToken,
				PlayerNumber: n,
				Status:       string(g.Status),
			}, nil
		}
	}

	if g.Status != seega.StatusWaiting {
		if g.Player2 != nil && existingToken == "" {
			return &seegadto.JoinInfo{
				GameID:       g.ID,
				PlayerToken:  g.Player2.Token,
				PlayerNumber: 2,
				Status:       string(g.Status),
			}, nil
		}
		return nil, s.errIllegal("join.full", nil)
	}

	token := newToken()
	g.Player2 = &seega.PlayerSeat{PlayerNumber: 2, Token: token, Connected: true}
	g.Status = seega.StatusPlaying
	g.CurrentPlayer = randomOrdinal()
	g.PlacementRemaining = seega.TurnBudget
	g.UpdatedAt = time.Now()

	if err := s.store.Save(ctx, g); err != nil {
		return nil, err
	}
	obslog.L().Info("game_join",
		zap.String("game_id", g.ID),
		zap.Int("starting_player", g.CurrentPlayer))

	joined := seegadto.NewEvent(seegadto.EventOpponentJoined)
	joined.Message = s.msgs.RenderOr("game.opponent_joined", nil)
	s.dispatch(gameID, []outbound{{Exclude: token, Event: joined}})

	// The start frame is delayed so both sockets are usually up; clients
	// that miss it resync from GET state.
	s.scheduleGameStarted(gameID)

	return &seegadto.JoinInfo{
		GameID:       g.ID,
		PlayerToken:  token,
		PlayerNumber: 2,
		Status:       string(g.Status),
	}, nil
}

func (s *Service) scheduleGameStarted(gameID string) {
	time.AfterFunc(s.startDelay, func() {
		g, err := s.store.Get(context.Background(), gameID)
		if err != nil || g.Status != seega.StatusPlaying {
			return
		}
		ev := seegadto.GameStartedEvent(string(g.Phase), g.CurrentPlayer)
		s.hub.Broadcast(context.Background(), gameID, ev, "")
	})
}

// ReconnectGame re-validates a stored token without touching game state.
func (s *Service) ReconnectGame(ctx context.Context, gameID, token string) (*seegadto.JoinInfo, error) {
	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	n, err := s.seatFor(g, token)
	if err != nil {
		return nil, err
	}
	return &seegadto.JoinInfo{
		GameID:       g.ID,
		PlayerToken:  token,
		PlayerNumber: n,
		Status:       string(g.Status),
	}, nil
}

// GetGameState returns the caller's view of the game.
func (s *Service) GetGameState(ctx context.Context, gameID, token string) (*seegadto.StateView, error) {
	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	n, err := s.seatFor(g, token)
	if err != nil {
		return nil, err
	}
	return stateView(g, n), nil
}

// GameForToken loads a game and resolves the caller's seat. Read-only
// helper for the websocket and board image endpoints.
func (s *Service) GameForToken(ctx context.Context, gameID, token string) (*seega.Game, int, error) {
	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, 0, err
	}
	n, err := s.seatFor(g, token)
	if err != nil {
		return nil, 0, err
	}
	return g, n, nil
}

// PlacePiece drops one piece during the placement phase.
func (s *Service) PlacePiece(ctx context.Context, gameID, token string, x, y int) (*seegadto.ActionResponse, error) {
	mu := s.locks.get(gameID)
	mu.Lock()
	defer mu.Unlock()

	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	seat, err := s.seatFor(g, token)
	if err != nil {
		return nil, err
	}

	if ok, reason := seega.CanPlace(g, x, y, seat); !ok {
		return nil, s.errIllegal(reason, nil)
	}

	phaseChanged := seega.Place(g, x, y, seat)
	g.UpdatedAt = time.Now()

	result := &seega.MoveResult{
		Success:      true,
		PhaseChanged: phaseChanged,
		Message:      s.msgs.RenderOr("place.ok", nil),
	}

	// Inert while the phase is still placement; catches an opening player
	// who is already blocked the instant the phase flips.
	v := seega.CheckVictory(g)
	if v != nil {
		finish(g, v)
		result.GameOver = true
		result.Winner = v.Winner
	}

	if err := s.store.Save(ctx, g); err != nil {
		return nil, err
	}

	frames := []outbound{{Exclude: token, Event: seegadto.PlacedEvent(x, y, seat)}}
	if phaseChanged {
		phase := seegadto.NewEvent(seegadto.EventPhaseChanged)
		phase.Phase = string(g.Phase)
		phase.CurrentPlayer = g.CurrentPlayer
		frames = append(frames, outbound{Event: phase})
	}
	switch {
	case v != nil:
		frames = append(frames, outbound{Event: seegadto.GameOverEvent(v.Winner, s.victoryMessage(v))})
	case !phaseChanged && g.CurrentPlayer != seat:
		if opp := g.Seat(g.CurrentPlayer); opp != nil {
			frames = append(frames, outbound{Target: opp.Token, Event: seegadto.NewEvent(seegadto.EventYourTurn)})
		}
	}
	s.dispatch(gameID, frames)

	return &seegadto.ActionResponse{State: stateView(g, seat), Result: resultView(result)}, nil
}

// MovePiece performs one movement-phase step, applies captures and either
// grants a chain extra turn or hands the turn over, then checks victory.
func (s *Service) MovePiece(ctx context.Context, gameID, token string, fromX, fromY, toX, toY int) (*seegadto.ActionResponse, error) {
	mu := s.locks.get(gameID)
	mu.Lock()
	defer mu.Unlock()

	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	seat, err := s.seatFor(g, token)
	if err != nil {
		return nil, err
	}

	if ok, reason := seega.CanMove(g, fromX, fromY, toX, toY, seat); !ok {
		var data any
		if reason == seega.ReasonChainLock && g.ChainCapturePiece != nil {
			data = map[string]any{"X": g.ChainCapturePiece.X, "Y": g.ChainCapturePiece.Y}
		}
		return nil, s.errIllegal(reason, data)
	}

	seega.Move(g, fromX, fromY, toX, toY)

	captures := seega.CheckCaptures(g, toX, toY, seat)
	extraTurn := false
	if len(captures) > 0 {
		seega.ApplyCaptures(g, captures)
		if seega.HasCaptureChain(g, toX, toY, seat) {
			extraTurn = true
			g.ChainCapturePiece = &seega.Coord{X: toX, Y: toY}
		}
	}
	if !extraTurn {
		g.ChainCapturePiece = nil
		g.SwitchTurn()
	}
	g.UpdatedAt = time.Now()

	msgKey := "move.ok"
	if extraTurn {
		msgKey = "move.chain_available"
	}
	result := &seega.MoveResult{
		Success:   true,
		Captures:  captures,
		ExtraTurn: extraTurn,
		Message:   s.msgs.RenderOr(msgKey, nil),
	}

	v := seega.CheckVictory(g)
	if v != nil {
		finish(g, v)
		result.GameOver = true
		result.Winner = v.Winner
	}

	if err := s.store.Save(ctx, g); err != nil {
		return nil, err
	}

	from := seegadto.Coord{X: fromX, Y: fromY}
	to := seegadto.Coord{X: toX, Y: toY}
	frames := []outbound{{Exclude: token, Event: seegadto.MovedEvent(from, to, coordViews(captures), extraTurn)}}
	switch {
	case v != nil:
		frames = append(frames, outbound{Event: seegadto.GameOverEvent(v.Winner, s.victoryMessage(v))})
	case !extraTurn:
		if next := g.Seat(g.CurrentPlayer); next != nil {
			frames = append(frames, outbound{Target: next.Token, Event: seegadto.NewEvent(seegadto.EventYourTurn)})
		}
	}
	s.dispatch(gameID, frames)

	return &seegadto.ActionResponse{State: stateView(g, seat), Result: resultView(result)}, nil
}

// GetValidActions enumerates the caller's legal actions, or explains why
// they cannot act right now.
func (s *Service) GetValidActions(ctx context.Context, gameID, token string) (*seegadto.ValidActions, error) {
	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	seat, err := s.seatFor(g, token)
	if err != nil {
		return nil, err
	}

	if g.GameOver {
		return &seegadto.ValidActions{Reason: s.msgs.RenderOr("game.over", nil)}, nil
	}
	if g.Status != seega.StatusPlaying || g.CurrentPlayer != seat {
		return &seegadto.ValidActions{Reason: s.msgs.RenderOr("turn.not_yours", nil)}, nil
	}

	va := &seegadto.ValidActions{CanAct: true, Phase: string(g.Phase)}
	if g.Phase == seega.PhasePlacement {
		va.ValidPlacements = coordViews(seega.ValidPlacements(g))
		va.Remaining = g.PlacementRemaining
		return va, nil
	}

	va.ValidMoves = make(map[string][]seegadto.Coord)
	for from, tos := range seega.AllValidMoves(g, seat) {
		va.ValidMoves[moveKey(from)] = coordViews(tos)
	}
	if g.ChainCapturePiece != nil {
		va.ChainCapture = &seegadto.Coord{X: g.ChainCapturePiece.X, Y: g.ChainCapturePiece.Y}
	}
	return va, nil
}

// LeaveGame vacates the caller's seat. The last player out deletes the
// session; otherwise the remaining player wins by abandonment.
func (s *Service) LeaveGame(ctx context.Context, gameID, token string) (*seegadto.LeaveResponse, error) {
	mu := s.locks.get(gameID)
	mu.Lock()
	defer mu.Unlock()

	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	seat, err := s.seatFor(g, token)
	if err != nil {
		return nil, err
	}

	if seat == 1 {
		g.Player1 = nil
	} else {
		g.Player2 = nil
	}

	if g.Player1 == nil && g.Player2 == nil {
		if err := s.store.Delete(ctx, gameID); err != nil {
			return nil, err
		}
		s.hub.DropGame(gameID)
		s.queues.drop(gameID)
		s.locks.drop(gameID)
		obslog.L().Info("game_delete", zap.String("game_id", gameID))
		return &seegadto.LeaveResponse{Message: s.msgs.RenderOr("leave.deleted", nil), GameDeleted: true}, nil
	}

	remaining := seega.Opponent(seat)
	if !g.GameOver {
		g.GameOver = true
		g.Winner = remaining
		g.Status = seega.StatusFinished
		g.ChainCapturePiece = nil
	}
	g.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, g); err != nil {
		return nil, err
	}
	obslog.L().Info("game_leave",
		zap.String("game_id", gameID),
		zap.Int("player", seat))

	if rem := g.Seat(remaining); rem != nil {
		left := seegadto.NewEvent(seegadto.EventOpponentLeft)
		left.Message = s.msgs.RenderOr("victory.abandonment", nil)
		frames := []outbound{{Target: rem.Token, Event: left}}
		if g.Winner == remaining {
			over := seegadto.GameOverEvent(remaining, s.msgs.RenderOr("victory.abandonment", nil))
			frames = append(frames, outbound{Target: rem.Token, Event: over})
		}
		s.dispatch(gameID, frames)
	}

	return &seegadto.LeaveResponse{Message: s.msgs.RenderOr("leave.left", nil)}, nil
}

// RematchGame records a rematch request; when both seats have asked the
// session resets in place with a fresh coin toss for the opening turn.
func (s *Service) RematchGame(ctx context.Context, gameID, token string) (*seegadto.RematchResponse, error) {
	mu := s.locks.get(gameID)
	mu.Lock()
	defer mu.Unlock()

	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	seat, err := s.seatFor(g, token)
	if err != nil {
		return nil, err
	}

	if !g.GameOver {
		return nil, seegadto.NewError(seegadto.CodeNotFinished, s.msgs.RenderOr("rematch.not_finished", nil))
	}

	if g.RematchRequests == nil {
		g.RematchRequests = map[int]bool{}
	}
	g.RematchRequests[seat] = true

	if g.RematchRequests[1] && g.RematchRequests[2] {
		g.Reset()
		g.CurrentPlayer = randomOrdinal()
		if err := s.store.Save(ctx, g); err != nil {
			return nil, err
		}
		obslog.L().Info("game_rematch",
			zap.String("game_id", gameID),
			zap.Int("starting_player", g.CurrentPlayer))
		s.dispatch(gameID, []outbound{{Event: seegadto.RematchStartedEvent(string(g.Phase), g.CurrentPlayer)}})
		return &seegadto.RematchResponse{
			Message:        s.msgs.RenderOr("rematch.started", nil),
			RematchStarted: true,
			CurrentPlayer:  g.CurrentPlayer,
		}, nil
	}

	g.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, g); err != nil {
		return nil, err
	}
	if opp := g.Seat(seega.Opponent(seat)); opp != nil {
		want := seegadto.NewEvent(seegadto.EventRematchRequested)
		want.Message = s.msgs.RenderOr("game.rematch_requested", nil)
		s.dispatch(gameID, []outbound{{Target: opp.Token, Event: want}})
	}
	return &seegadto.RematchResponse{Message: s.msgs.RenderOr("rematch.waiting", nil)}, nil
}
