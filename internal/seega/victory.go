package seega

// Catalog keys for victory reasons. Rendered with {{.Winner}}/{{.Loser}}.
const (
	ReasonAttrition         = "victory.attrition"
	ReasonBlockedMorePieces = "victory.blocked_more_pieces"
	ReasonBlockedTieBreak   = "victory.blocked_tie"
	ReasonOpponentAbandon   = "victory.abandonment"
)

// Victory is a detected terminal condition.
type Victory struct {
	Winner    int
	Loser     int
	ReasonKey string
}

// CheckVictory evaluates terminal conditions; nil when the game goes on.
// Only meaningful during the movement phase.
//
// Order: attrition first (either side under two pieces loses), then
// stalemate — when the player to move has zero entries in AllValidMoves the
// game ends: the side with more pieces wins (which can be the blocked side),
// and on equal counts the non-blocked player wins by explicit tie-break.
func CheckVictory(g *Game) *Victory {
	if g.Phase != PhaseMovement {
		return nil
	}

	p1 := g.PiecesCount[1]
	p2 := g.PiecesCount[2]

	if p1 < 2 {
		return &Victory{Winner: 2, Loser: 1, ReasonKey: ReasonAttrition}
	}
	if p2 < 2 {
		return &Victory{Winner: 1, Loser: 2, ReasonKey: ReasonAttrition}
	}

	if len(AllValidMoves(g, g.CurrentPlayer)) == 0 {
		// The side with more pieces wins, even if that is the blocked
		// player. Loser always names the blocked side for messaging.
		blocked := g.CurrentPlayer
		switch {
		case p1 > p2:
			return &Victory{Winner: 1, Loser: blocked, ReasonKey: ReasonBlockedMorePieces}
		case p2 > p1:
			return &Victory{Winner: 2, Loser: blocked, ReasonKey: ReasonBlockedMorePieces}
		default:
			return &Victory{Winner: Opponent(blocked), Loser: blocked, ReasonKey: ReasonBlockedTieBreak}
		}
	}
	return nil
}

// IsStalemate reports whether player has no legal destinations at all.
func IsStalemate(g *Game, player int) bool {
	if g.Phase != PhaseMovement {
		return false
	}
	return len(AllValidMoves(g, player)) == 0
}
