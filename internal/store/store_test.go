package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/seegalab/seega-server/internal/seega"
)

func testGame(id string) *seega.Game {
	g := seega.NewGame(id, "tok-1")
	g.Player2 = &seega.PlayerSeat{PlayerNumber: 2, Token: "tok-2", Connected: true}
	g.Status = seega.StatusPlaying
	g.Phase = seega.PhaseMovement
	g.Board.Set(1, 1, seega.CellPlayer1)
	g.Board.Set(3, 3, seega.CellPlayer2)
	g.PiecesCount[1] = 1
	g.PiecesCount[2] = 1
	g.ChainCapturePiece = &seega.Coord{X: 1, Y: 1}
	return g
}

func runStoreSuite(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("Get(missing) = %v, want ErrNotFound", err)
	}

	g := testGame("G-1")
	if err := s.Save(ctx, g); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "G-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Board.Cells != g.Board.Cells {
		t.Fatalf("board lost in round-trip")
	}
	if got.Phase != g.Phase || got.CurrentPlayer != g.CurrentPlayer {
		t.Fatalf("phase/turn lost: %+v", got)
	}
	if got.ChainCapturePiece == nil || *got.ChainCapturePiece != *g.ChainCapturePiece {
		t.Fatalf("chain pointer lost: %+v", got.ChainCapturePiece)
	}

	// Mutating the returned copy must not leak into the stored session.
	got.Board.Set(0, 0, seega.CellPlayer2)
	again, err := s.Get(ctx, "G-1")
	if err != nil {
		t.Fatalf("Get#2: %v", err)
	}
	if again.Board.Get(0, 0) != seega.CellEmpty {
		t.Fatalf("store handed out a shared session instance")
	}

	if n, err := s.Count(ctx); err != nil || n != 1 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	if err := s.Delete(ctx, "G-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "G-1"); err != ErrNotFound {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	s, err := NewRedisStore(fmt.Sprintf("redis://%s/0", mr.Addr()), time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	runStoreSuite(t, s)
}

func TestRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("http://localhost:6379", time.Hour); err == nil {
		t.Fatalf("expected scheme error")
	}
	if _, err := NewRedisStore("", time.Hour); err == nil {
		t.Fatalf("expected error on empty URL")
	}
}
