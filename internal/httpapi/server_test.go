package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/seegalab/seega-server/internal/config"
	"github.com/seegalab/seega-server/internal/hub"
	"github.com/seegalab/seega-server/internal/msgcat"
	"github.com/seegalab/seega-server/internal/service"
	"github.com/seegalab/seega-server/internal/store"
	"github.com/seegalab/seega-server/pkg/seegadto"
)

func newTestServer(t *testing.T) *httptest.Server {
	return newTestServerWithConfig(t, &config.AppConfig{WSPingInterval: time.Minute})
}

func newTestServerWithConfig(t *testing.T, cfg *config.AppConfig) *httptest.Server {
	t.Helper()
	msgs, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	h := hub.New()
	svc := service.New(store.NewMemoryStore(), h, msgs, 0)
	srv := httptest.NewServer(New(svc, h, msgs, cfg).Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func TestGameLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	var created seegadto.JoinInfo
	if resp := doJSON(t, http.MethodPost, srv.URL+"/api/games", "", nil, &created); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	if created.GameID == "" || created.PlayerToken == "" {
		t.Fatalf("incomplete create response: %+v", created)
	}

	var joined seegadto.JoinInfo
	if resp := doJSON(t, http.MethodPost, srv.URL+"/api/games/"+created.GameID+"/join", "", nil, &joined); resp.StatusCode != http.StatusOK {
		t.Fatalf("join status = %d", resp.StatusCode)
	}
	if joined.PlayerNumber != 2 {
		t.Fatalf("join seat = %d", joined.PlayerNumber)
	}

	var state seegadto.StateView
	if resp := doJSON(t, http.MethodGet, srv.URL+"/api/games/"+created.GameID, created.PlayerToken, nil, &state); resp.StatusCode != http.StatusOK {
		t.Fatalf("state status = %d", resp.StatusCode)
	}
	if state.Status != "playing" || state.Phase != "placement" {
		t.Fatalf("unexpected state: %+v", state)
	}

	actorToken := created.PlayerToken
	if state.CurrentPlayer == 2 {
		actorToken = joined.PlayerToken
	}

	var action seegadto.ActionResponse
	if resp := doJSON(t, http.MethodPost, srv.URL+"/api/games/"+created.GameID+"/place",
		actorToken, seegadto.PlaceRequest{X: 0, Y: 0}, &action); resp.StatusCode != http.StatusOK {
		t.Fatalf("place status = %d", resp.StatusCode)
	}
	if !action.Result.Success || action.State.PlacementRemaining != 1 {
		t.Fatalf("unexpected place response: %+v", action)
	}
}

func TestAuthAndErrorStatuses(t *testing.T) {
	srv := newTestServer(t)

	var created seegadto.JoinInfo
	doJSON(t, http.MethodPost, srv.URL+"/api/games", "", nil, &created)

	// no Authorization header
	var errResp seegadto.ErrorResponse
	if resp := doJSON(t, http.MethodGet, srv.URL+"/api/games/"+created.GameID, "", nil, &errResp); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", resp.StatusCode)
	}

	// malformed header
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/games/"+created.GameID, nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("malformed header status = %d", resp.StatusCode)
	}

	// wrong token
	if resp := doJSON(t, http.MethodGet, srv.URL+"/api/games/"+created.GameID, "deadbeef", nil, &errResp); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("bad token status = %d", resp.StatusCode)
	}
	if errResp.Code != string(seegadto.CodeUnauthorized) {
		t.Fatalf("bad token code = %q", errResp.Code)
	}

	// unknown game
	if resp := doJSON(t, http.MethodGet, srv.URL+"/api/games/NOPE", "deadbeef", nil, &errResp); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown game status = %d", resp.StatusCode)
	}

	// illegal action: placing on the refuge
	doJSON(t, http.MethodPost, srv.URL+"/api/games/"+created.GameID+"/join", "", nil, nil)
	var state seegadto.StateView
	doJSON(t, http.MethodGet, srv.URL+"/api/games/"+created.GameID, created.PlayerToken, nil, &state)
	if state.YourPlayerNumber == state.CurrentPlayer {
		if resp := doJSON(t, http.MethodPost, srv.URL+"/api/games/"+created.GameID+"/place",
			created.PlayerToken, seegadto.PlaceRequest{X: 2, Y: 2}, &errResp); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("refuge place status = %d", resp.StatusCode)
		}
		if errResp.Code != string(seegadto.CodeIllegalAction) {
			t.Fatalf("refuge place code = %q", errResp.Code)
		}
	}
}

func TestBoardImageEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var created seegadto.JoinInfo
	doJSON(t, http.MethodPost, srv.URL+"/api/games", "", nil, &created)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/games/"+created.GameID+"/board.png", nil)
	req.Header.Set("Authorization", "Bearer "+created.PlayerToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("board.png status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
}

func wsURL(httpURL, gameID, token string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/api/games/" + gameID + "/connect?token=" + token
}

func readEvent(ctx context.Context, t *testing.T, c *websocket.Conn, wantType string) *seegadto.Event {
	t.Helper()
	for {
		var ev seegadto.Event
		if err := wsjson.Read(ctx, c, &ev); err != nil {
			t.Fatalf("read waiting for %q: %v", wantType, err)
		}
		// pings and late start frames may interleave with the wanted event
		if ev.Type == wantType {
			return &ev
		}
	}
}

func TestWebsocketConnectAndPing(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var created seegadto.JoinInfo
	doJSON(t, http.MethodPost, srv.URL+"/api/games", "", nil, &created)

	c, _, err := websocket.Dial(ctx, wsURL(srv.URL, created.GameID, created.PlayerToken), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close(websocket.StatusNormalClosure, "done")

	hello := readEvent(ctx, t, c, seegadto.EventConnected)
	if hello.Player != 1 {
		t.Fatalf("connected frame seat = %d", hello.Player)
	}

	if err := wsjson.Write(ctx, c, seegadto.NewEvent(seegadto.EventPing)); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	readEvent(ctx, t, c, seegadto.EventPong)
}

func TestWebsocketReceivesOpponentActions(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var created, joined seegadto.JoinInfo
	doJSON(t, http.MethodPost, srv.URL+"/api/games", "", nil, &created)
	doJSON(t, http.MethodPost, srv.URL+"/api/games/"+created.GameID+"/join", "", nil, &joined)

	var state seegadto.StateView
	doJSON(t, http.MethodGet, srv.URL+"/api/games/"+created.GameID, created.PlayerToken, nil, &state)
	actorToken, watcherToken := created.PlayerToken, joined.PlayerToken
	if state.CurrentPlayer == 2 {
		actorToken, watcherToken = watcherToken, actorToken
	}

	c, _, err := websocket.Dial(ctx, wsURL(srv.URL, created.GameID, watcherToken), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close(websocket.StatusNormalClosure, "done")
	readEvent(ctx, t, c, seegadto.EventConnected)

	doJSON(t, http.MethodPost, srv.URL+"/api/games/"+created.GameID+"/place",
		actorToken, seegadto.PlaceRequest{X: 1, Y: 0}, nil)

	placed := readEvent(ctx, t, c, seegadto.EventOpponentPlaced)
	if placed.X == nil || *placed.X != 1 || placed.Y == nil || *placed.Y != 0 {
		t.Fatalf("placed frame coords = %+v", placed)
	}
}

func TestWebsocketHonorsConfiguredOrigins(t *testing.T) {
	srv := newTestServerWithConfig(t, &config.AppConfig{
		WSPingInterval: time.Minute,
		AllowedOrigins: []string{"http://example.com"},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var created seegadto.JoinInfo
	doJSON(t, http.MethodPost, srv.URL+"/api/games", "", nil, &created)

	c, _, err := websocket.Dial(ctx, wsURL(srv.URL, created.GameID, created.PlayerToken), &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"http://example.com"}},
	})
	if err != nil {
		t.Fatalf("dial from allowed origin: %v", err)
	}
	defer c.Close(websocket.StatusNormalClosure, "done")
	readEvent(ctx, t, c, seegadto.EventConnected)

	c2, _, err := websocket.Dial(ctx, wsURL(srv.URL, created.GameID, created.PlayerToken), &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"http://evil.test"}},
	})
	if err == nil {
		c2.Close(websocket.StatusNormalClosure, "done")
		t.Fatal("dial from unlisted origin must fail")
	}
}

func TestWebsocketSurvivesMalformedFrames(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var created seegadto.JoinInfo
	doJSON(t, http.MethodPost, srv.URL+"/api/games", "", nil, &created)

	c, _, err := websocket.Dial(ctx, wsURL(srv.URL, created.GameID, created.PlayerToken), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close(websocket.StatusNormalClosure, "done")
	readEvent(ctx, t, c, seegadto.EventConnected)

	if err := c.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write junk frame: %v", err)
	}
	if err := wsjson.Write(ctx, c, seegadto.NewEvent(seegadto.EventPing)); err != nil {
		t.Fatalf("write ping after junk: %v", err)
	}
	readEvent(ctx, t, c, seegadto.EventPong)
}

func TestWebsocketRejectsMissingToken(t *testing.T) {
	srv := newTestServer(t)
	var created seegadto.JoinInfo
	doJSON(t, http.MethodPost, srv.URL+"/api/games", "", nil, &created)

	resp, err := http.Get(srv.URL + "/api/games/" + created.GameID + "/connect")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
