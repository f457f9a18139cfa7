package seega

// Catalog keys for movement rejections.
const (
	ReasonWrongPhaseMovement = "move.wrong_phase"
	ReasonBadOrigin          = "move.bad_origin"
	ReasonBadDestination     = "move.bad_destination"
	ReasonNotYourPiece       = "move.not_your_piece"
	ReasonDestOccupied       = "move.destination_occupied"
	ReasonNotOrthogonal      = "move.not_orthogonal"
	ReasonChainLock          = "move.chain_lock"
)

var moveDirections = [4]Coord{{X: 0, Y: 1}, {X: 0, Y: -1}, {X: 1, Y: 0}, {X: -1, Y: 0}}

// CanMove checks phase-two legality for a single orthogonal step. On
// rejection the returned string is a message-catalog key; ReasonChainLock
// means the pending chain pointer pins a different piece.
func CanMove(g *Game, fromX, fromY, toX, toY, player int) (bool, string) {
	if g.Phase != PhaseMovement {
		return false, ReasonWrongPhaseMovement
	}
	if g.CurrentPlayer != player {
		return false, ReasonNotYourTurn
	}
	if !g.Board.IsValidPosition(fromX, fromY) {
		return false, ReasonBadOrigin
	}
	if !g.Board.IsValidPosition(toX, toY) {
		return false, ReasonBadDestination
	}
	if g.Board.Get(fromX, fromY) != player {
		return false, ReasonNotYourPiece
	}
	if !g.Board.IsEmpty(toX, toY) {
		return false, ReasonDestOccupied
	}

	dx := abs(toX - fromX)
	dy := abs(toY - fromY)
	if !((dx == 1 && dy == 0) || (dx == 0 && dy == 1)) {
		return false, ReasonNotOrthogonal
	}

	if cp := g.ChainCapturePiece; cp != nil && (fromX != cp.X || fromY != cp.Y) {
		return false, ReasonChainLock
	}
	return true, ""
}

// Move relocates the piece unconditionally; legality is the caller's job.
// Counts are untouched — captures are handled separately.
func Move(g *Game, fromX, fromY, toX, toY int) {
	player := g.Board.Get(fromX, fromY)
	g.Board.Set(fromX, fromY, CellEmpty)
	g.Board.Set(toX, toY, player)
}

// ValidMovesForPiece lists the empty orthogonal neighbors of an occupied
// cell; nil outside phase two or for an empty cell.
func ValidMovesForPiece(g *Game, x, y int) []Coord {
	if g.Phase != PhaseMovement {
		return nil
	}
	if g.Board.Get(x, y) == CellEmpty {
		return nil
	}
	var out []Coord
	for _, d := range moveDirections {
		nx, ny := x+d.X, y+d.Y
		if g.Board.IsValidPosition(nx, ny) && g.Board.IsEmpty(nx, ny) {
			out = append(out, Coord{X: nx, Y: ny})
		}
	}
	return out
}

// AllValidMoves maps each movable origin of player to its destinations.
// A pending chain pointer restricts the result to that one piece; when the
// pinned piece has nowhere to go the map is empty, which victory detection
// reads as a stalemate for the pinned player.
func AllValidMoves(g *Game, player int) map[Coord][]Coord {
	if g.Phase != PhaseMovement {
		return map[Coord][]Coord{}
	}

	if cp := g.ChainCapturePiece; cp != nil {
		moves := ValidMovesForPiece(g, cp.X, cp.Y)
		if len(moves) == 0 {
			return map[Coord][]Coord{}
		}
		return map[Coord][]Coord{{X: cp.X, Y: cp.Y}: moves}
	}

	all := make(map[Coord][]Coord)
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			if g.Board.Get(x, y) != player {
				continue
			}
			if moves := ValidMovesForPiece(g, x, y); len(moves) > 0 {
				all[Coord{X: x, Y: y}] = moves
			}
		}
	}
	return all
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
