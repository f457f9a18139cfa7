package seega

// Direction scan order for custody checks: +x, −x, +y, −y.
var captureDirections = [4]Coord{{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1}}

// CheckCaptures finds every enemy piece taken into custody by the piece that
// just landed at (x, y): for each direction, an adjacent enemy with a
// supporting own piece directly beyond it is captured. Pieces on the refuge
// are immune. All four directions are judged against the same post-move
// board; intermediate captures do not cascade.
func CheckCaptures(g *Game, x, y, player int) []Coord {
	opponent := Opponent(player)
	var captured []Coord

	for _, d := range captureDirections {
		enemyX, enemyY := x+d.X, y+d.Y
		supportX, supportY := x+2*d.X, y+2*d.Y

		if !g.Board.IsValidPosition(enemyX, enemyY) {
			continue
		}
		if !g.Board.IsValidPosition(supportX, supportY) {
			continue
		}
		if g.Board.Get(enemyX, enemyY) != opponent {
			continue
		}
		if g.Board.IsRefuge(enemyX, enemyY) {
			continue
		}
		if g.Board.Get(supportX, supportY) == player {
			captured = append(captured, Coord{X: enemyX, Y: enemyY})
		}
	}
	return captured
}

// ApplyCaptures removes captured pieces and decrements their owner's count.
func ApplyCaptures(g *Game, captures []Coord) {
	for _, c := range captures {
		owner := g.Board.Get(c.X, c.Y)
		g.Board.Set(c.X, c.Y, CellEmpty)
		g.PiecesCount[owner]--
	}
}

// HasCaptureChain reports whether the piece at (x, y) could capture again by
// stepping to any empty orthogonal neighbor. Each candidate step is applied
// speculatively and always reverted before returning.
func HasCaptureChain(g *Game, x, y, player int) bool {
	for _, d := range moveDirections {
		nx, ny := x+d.X, y+d.Y
		if !g.Board.IsValidPosition(nx, ny) || !g.Board.IsEmpty(nx, ny) {
			continue
		}

		g.Board.Set(x, y, CellEmpty)
		g.Board.Set(nx, ny, player)
		captures := CheckCaptures(g, nx, ny, player)
		g.Board.Set(nx, ny, CellEmpty)
		g.Board.Set(x, y, player)

		if len(captures) > 0 {
			return true
		}
	}
	return false
}
