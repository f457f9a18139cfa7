package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedCatalogRenders(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("move.chain_lock", map[string]any{"X": 2, "Y": 3})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "You must continue moving the piece at (2, 3)" {
		t.Fatalf("unexpected render: %q", got)
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestRenderOrFallsBackToKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.RenderOr("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("fallback = %q", got)
	}
	if got := c.RenderOr("turn.not_yours", nil); got != "It is not your turn" {
		t.Fatalf("render = %q", got)
	}
}

func TestOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	override := []byte("turn:\n  not_yours: \"Wait for your opponent\"\n")
	if err := os.WriteFile(filepath.Join(dir, "override.yaml"), override, 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.RenderOr("turn.not_yours", nil); got != "Wait for your opponent" {
		t.Fatalf("override not applied: %q", got)
	}
	// Untouched keys keep embedded defaults.
	if got := c.RenderOr("place.refuge", nil); got != "You cannot place a piece on the central refuge" {
		t.Fatalf("default lost: %q", got)
	}
}
