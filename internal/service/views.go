package service

import (
	"fmt"

	"github.com/seegalab/seega-server/internal/seega"
	"github.com/seegalab/seega-server/pkg/seegadto"
)

// stateView projects a game onto one player's perspective.
func stateView(g *seega.Game, playerNumber int) *seegadto.StateView {
	v := &seegadto.StateView{
		GameID:             g.ID,
		Board:              g.Board.Snapshot(),
		Phase:              string(g.Phase),
		Status:             string(g.Status),
		CurrentPlayer:      g.CurrentPlayer,
		YourPlayerNumber:   playerNumber,
		IsYourTurn:         g.CurrentPlayer == playerNumber && !g.GameOver,
		PiecesCount:        map[int]int{1: g.PiecesCount[1], 2: g.PiecesCount[2]},
		PlacementRemaining: g.PlacementRemaining,
		Winner:             g.Winner,
		GameOver:           g.GameOver,
	}
	if g.ChainCapturePiece != nil {
		v.ChainCapturePiece = &seegadto.Coord{X: g.ChainCapturePiece.X, Y: g.ChainCapturePiece.Y}
	}
	return v
}

func resultView(r *seega.MoveResult) *seegadto.MoveResultView {
	v := &seegadto.MoveResultView{
		Success:      r.Success,
		Message:      r.Message,
		ExtraTurn:    r.ExtraTurn,
		PhaseChanged: r.PhaseChanged,
		GameOver:     r.GameOver,
		Winner:       r.Winner,
	}
	for _, c := range r.Captures {
		v.Captures = append(v.Captures, seegadto.Coord{X: c.X, Y: c.Y})
	}
	return v
}

// moveKey is the map key format used by the valid-actions payload.
func moveKey(c seega.Coord) string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

func coordViews(cs []seega.Coord) []seegadto.Coord {
	out := make([]seegadto.Coord, 0, len(cs))
	for _, c := range cs {
		out = append(out, seegadto.Coord{X: c.X, Y: c.Y})
	}
	return out
}
