package hub

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/seegalab/seega-server/pkg/seegadto"
)

type fakeConn struct {
	mu     sync.Mutex
	events []string
	fail   bool
	closed bool
}

func (f *fakeConn) Send(ctx context.Context, ev *seegadto.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("socket gone")
	}
	f.events = append(f.events, ev.Type)
	return nil
}

func (f *fakeConn) Close(reason string) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func TestBroadcastExcludesActor(t *testing.T) {
	h := New()
	ctx := context.Background()
	actor, opponent := &fakeConn{}, &fakeConn{}
	h.Connect("G1", "tok-a", actor)
	h.Connect("G1", "tok-b", opponent)

	h.Broadcast(ctx, "G1", seegadto.PlacedEvent(1, 2, 1), "tok-a")

	if got := actor.types(); len(got) != 0 {
		t.Fatalf("actor received excluded broadcast: %v", got)
	}
	if got := opponent.types(); len(got) != 1 || got[0] != seegadto.EventOpponentPlaced {
		t.Fatalf("opponent events = %v", got)
	}
}

func TestBroadcastDisconnectsFailedConnections(t *testing.T) {
	h := New()
	ctx := context.Background()
	dead := &fakeConn{fail: true}
	alive := &fakeConn{}
	h.Connect("G1", "tok-a", dead)
	h.Connect("G1", "tok-b", alive)

	h.Broadcast(ctx, "G1", seegadto.NewEvent(seegadto.EventYourTurn), "")

	if h.ConnectedCount("G1") != 1 {
		t.Fatalf("failed connection not removed: count=%d", h.ConnectedCount("G1"))
	}
	if got := alive.types(); len(got) != 1 {
		t.Fatalf("healthy connection must still receive: %v", got)
	}

	// Second broadcast reaches only the survivor and must not panic.
	h.Broadcast(ctx, "G1", seegadto.NewEvent(seegadto.EventYourTurn), "")
	if got := alive.types(); len(got) != 2 {
		t.Fatalf("survivor events = %v", got)
	}
}

func TestSendToPlayerFailureDisconnects(t *testing.T) {
	h := New()
	ctx := context.Background()
	dead := &fakeConn{fail: true}
	h.Connect("G1", "tok-a", dead)

	h.SendToPlayer(ctx, "G1", "tok-a", seegadto.NewEvent(seegadto.EventYourTurn))
	if h.ConnectedCount("G1") != 0 {
		t.Fatalf("dead connection still registered")
	}
	// Unknown targets are a no-op.
	h.SendToPlayer(ctx, "G1", "tok-zzz", seegadto.NewEvent(seegadto.EventYourTurn))
}

func TestConnectReplacesPreviousConnection(t *testing.T) {
	h := New()
	ctx := context.Background()
	old, replacement := &fakeConn{}, &fakeConn{}
	h.Connect("G1", "tok-a", old)
	h.Connect("G1", "tok-a", replacement)

	if h.ConnectedCount("G1") != 1 {
		t.Fatalf("replacement must not add a second entry")
	}
	old.mu.Lock()
	closed := old.closed
	old.mu.Unlock()
	if !closed {
		t.Fatalf("replaced connection must be closed")
	}

	h.SendToPlayer(ctx, "G1", "tok-a", seegadto.NewEvent(seegadto.EventYourTurn))
	if got := replacement.types(); len(got) != 1 {
		t.Fatalf("replacement did not receive: %v", got)
	}
	if got := old.types(); len(got) != 0 {
		t.Fatalf("stale connection received: %v", got)
	}
}

func TestDisconnectGarbageCollectsGame(t *testing.T) {
	h := New()
	h.Connect("G1", "tok-a", &fakeConn{})
	h.Disconnect("G1", "tok-a")
	if h.ConnectedCount("G1") != 0 {
		t.Fatalf("entry not removed")
	}
	h.mu.RLock()
	_, exists := h.games["G1"]
	h.mu.RUnlock()
	if exists {
		t.Fatalf("empty per-game map not collected")
	}
	// Disconnecting again is a no-op.
	h.Disconnect("G1", "tok-a")
}

func TestDisconnectConnSparesReplacement(t *testing.T) {
	h := New()
	old, replacement := &fakeConn{}, &fakeConn{}
	h.Connect("G1", "tok-a", old)
	h.Connect("G1", "tok-a", replacement)

	// The replaced socket's read loop unwinds late; it must not evict the
	// connection that replaced it.
	h.DisconnectConn("G1", "tok-a", old)
	if h.ConnectedCount("G1") != 1 {
		t.Fatalf("replacement evicted by stale disconnect")
	}

	h.DisconnectConn("G1", "tok-a", replacement)
	if h.ConnectedCount("G1") != 0 {
		t.Fatalf("matching disconnect did not remove entry")
	}
}

// swapConn is a stale socket whose failing send overlaps a reconnect that
// re-registers the same token.
type swapConn struct {
	h           *Hub
	gameID      string
	token       string
	replacement Conn
}

func (c *swapConn) Send(ctx context.Context, ev *seegadto.Event) error {
	c.h.Connect(c.gameID, c.token, c.replacement)
	return errors.New("stale socket")
}

func (c *swapConn) Close(reason string) error { return nil }

func TestFailedSendSparesReplacement(t *testing.T) {
	ctx := context.Background()

	h := New()
	fresh := &fakeConn{}
	h.Connect("G1", "tok-a", &swapConn{h: h, gameID: "G1", token: "tok-a", replacement: fresh})

	h.SendToPlayer(ctx, "G1", "tok-a", seegadto.NewEvent(seegadto.EventYourTurn))
	if h.ConnectedCount("G1") != 1 {
		t.Fatalf("replacement evicted after failed targeted send")
	}

	h2 := New()
	fresh2 := &fakeConn{}
	h2.Connect("G1", "tok-a", &swapConn{h: h2, gameID: "G1", token: "tok-a", replacement: fresh2})
	h2.Connect("G1", "tok-b", &fakeConn{})

	h2.Broadcast(ctx, "G1", seegadto.NewEvent(seegadto.EventYourTurn), "")
	if h2.ConnectedCount("G1") != 2 {
		t.Fatalf("replacement evicted after failed broadcast send")
	}
	h2.SendToPlayer(ctx, "G1", "tok-a", seegadto.NewEvent(seegadto.EventYourTurn))
	if got := fresh2.types(); len(got) != 1 {
		t.Fatalf("replacement unreachable after broadcast: %v", got)
	}
}

func TestDropGameClosesAll(t *testing.T) {
	h := New()
	a, b := &fakeConn{}, &fakeConn{}
	h.Connect("G1", "tok-a", a)
	h.Connect("G1", "tok-b", b)
	h.DropGame("G1")
	if h.ConnectedCount("G1") != 0 {
		t.Fatalf("connections survive DropGame")
	}
	if !a.closed || !b.closed {
		t.Fatalf("connections not closed on DropGame")
	}
}
