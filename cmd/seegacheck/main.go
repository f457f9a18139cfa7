// seegacheck probes a running match server: a health check by default, and
// a full create/join/place/leave round trip with SEEGA_SMOKE=1. Exits
// non-zero on failure so it slots into container health checks.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/seegalab/seega-server/internal/apiclient"
)

func main() {
	baseURL := os.Getenv("SEEGA_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := apiclient.New(baseURL, apiclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		log.Fatalf("health check failed: %v", err)
	}
	log.Printf("health ok: %s", baseURL)

	if os.Getenv("SEEGA_SMOKE") != "1" {
		return
	}

	created, err := client.CreateGame(ctx)
	if err != nil {
		log.Fatalf("create failed: %v", err)
	}
	log.Printf("created game %s as player %d", created.GameID, created.PlayerNumber)

	joined, err := client.JoinGame(ctx, created.GameID, "")
	if err != nil {
		log.Fatalf("join failed: %v", err)
	}

	state, err := client.GetState(ctx, created.GameID, created.PlayerToken)
	if err != nil {
		log.Fatalf("state failed: %v", err)
	}
	actorToken := created.PlayerToken
	if state.CurrentPlayer == 2 {
		actorToken = joined.PlayerToken
	}

	placed, err := client.PlacePiece(ctx, created.GameID, actorToken, 0, 0)
	if err != nil {
		log.Fatalf("place failed: %v", err)
	}
	log.Printf("placed ok, remaining=%d", placed.State.PlacementRemaining)

	for _, token := range []string{created.PlayerToken, joined.PlayerToken} {
		if _, err := client.LeaveGame(ctx, created.GameID, token); err != nil {
			log.Fatalf("leave failed: %v", err)
		}
	}
	log.Printf("smoke ok: game %s cleaned up", created.GameID)
}
