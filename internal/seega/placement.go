package seega

// Catalog keys for placement rejections.
const (
	ReasonWrongPhasePlacement = "place.wrong_phase"
	ReasonNotYourTurn         = "turn.not_yours"
	ReasonBudgetSpent         = "place.budget_spent"
	ReasonOutOfBounds         = "place.out_of_bounds"
	ReasonCellOccupied        = "place.occupied"
	ReasonRefuge              = "place.refuge"
)

// CanPlace checks phase-one legality for dropping a piece at (x, y).
// On rejection the returned string is a message-catalog key.
func CanPlace(g *Game, x, y, player int) (bool, string) {
	if g.Phase != PhasePlacement {
		return false, ReasonWrongPhasePlacement
	}
	if g.CurrentPlayer != player {
		return false, ReasonNotYourTurn
	}
	if g.PlacementRemaining <= 0 {
		return false, ReasonBudgetSpent
	}
	if !g.Board.IsValidPosition(x, y) {
		return false, ReasonOutOfBounds
	}
	if !g.Board.IsEmpty(x, y) {
		return false, ReasonCellOccupied
	}
	if g.Board.IsRefuge(x, y) {
		return false, ReasonRefuge
	}
	return true, ""
}

// Place drops the piece and updates counters. Callers must have validated
// with CanPlace. Returns true when this placement ended phase one.
func Place(g *Game, x, y, player int) bool {
	g.Board.Set(x, y, player)
	g.PiecesCount[player]++
	g.TotalPiecesPlaced++
	g.PlacementRemaining--

	if g.PlacementRemaining == 0 {
		g.SwitchTurn()
	}

	// The turn has already switched by now, so the opening player
	// moves first in phase two.
	if g.TotalPiecesPlaced >= TotalPieces {
		g.Phase = PhaseMovement
		g.ChainCapturePiece = nil
		return true
	}
	return false
}

// ValidPlacements lists every empty non-refuge cell; empty outside phase one.
func ValidPlacements(g *Game) []Coord {
	if g.Phase != PhasePlacement {
		return nil
	}
	var out []Coord
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			if g.Board.IsEmpty(x, y) && !g.Board.IsRefuge(x, y) {
				out = append(out, Coord{X: x, Y: y})
			}
		}
	}
	return out
}
