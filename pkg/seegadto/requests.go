package seegadto

// Coord addresses a board cell; (x, y) = (column, row), zero-indexed.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type PlaceRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type MoveRequest struct {
	FromX int `json:"fromX"`
	FromY int `json:"fromY"`
	ToX   int `json:"toX"`
	ToY   int `json:"toY"`
}
