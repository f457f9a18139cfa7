package seega

import "time"

// Cell states.
const (
	CellEmpty   = 0
	CellPlayer1 = 1
	CellPlayer2 = 2
)

const (
	BoardSize = 5
	RefugeX   = 2
	RefugeY   = 2

	// TotalPieces is the cumulative placement count that ends phase one.
	TotalPieces = 24
	// TurnBudget is how many pieces a player drops per placement turn.
	TurnBudget = 2
)

// Phase of the game.
type Phase string

const (
	PhasePlacement Phase = "placement"
	PhaseMovement  Phase = "movement"
)

// Status represents the session lifecycle state.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusReady    Status = "ready" // reserved, never assigned
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Coord addresses a cell; (x, y) = (column, row), zero-indexed.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Board is the 5×5 grid. Cells are indexed [y][x]; (2,2) is the refuge.
type Board struct {
	Cells [BoardSize][BoardSize]int `json:"cells"`
}

func NewBoard() *Board { return &Board{} }

func (b *Board) Get(x, y int) int { return b.Cells[y][x] }

func (b *Board) Set(x, y, state int) { b.Cells[y][x] = state }

func (b *Board) IsValidPosition(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}

func (b *Board) IsEmpty(x, y int) bool { return b.Get(x, y) == CellEmpty }

func (b *Board) IsRefuge(x, y int) bool { return x == RefugeX && y == RefugeY }

// Snapshot deep-copies the grid into the row-major form used on the wire.
func (b *Board) Snapshot() [][]int {
	out := make([][]int, BoardSize)
	for y := 0; y < BoardSize; y++ {
		row := make([]int, BoardSize)
		copy(row, b.Cells[y][:])
		out[y] = row
	}
	return out
}

// PlayerSeat binds a player ordinal to its bearer token. The token is the
// only proof of seat ownership.
type PlayerSeat struct {
	PlayerNumber int    `json:"player_number"`
	Token        string `json:"token"`
	Connected    bool   `json:"connected"`
}

// Game is the aggregate session state persisted in the store.
type Game struct {
	ID     string `json:"id"`
	Board  *Board `json:"board"`
	Phase  Phase  `json:"phase"`
	Status Status `json:"status"`

	CurrentPlayer int `json:"current_player"`

	Player1 *PlayerSeat `json:"player1,omitempty"`
	Player2 *PlayerSeat `json:"player2,omitempty"`

	PiecesCount map[int]int `json:"pieces_count"`

	// Placement budget left for the active turn (0..2).
	PlacementRemaining int `json:"placement_remaining"`

	// When set, the next move must originate from this cell (chain capture).
	ChainCapturePiece *Coord `json:"chain_capture_piece,omitempty"`

	Winner   int  `json:"winner,omitempty"`
	GameOver bool `json:"game_over"`

	TotalPiecesPlaced int `json:"total_pieces_placed"`

	// Ordinals of players who asked for a rematch; both present triggers reset.
	RematchRequests map[int]bool `json:"rematch_requests,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewGame creates a fresh WAITING session with seat 1 bound to token.
func NewGame(id, token string) *Game {
	now := time.Now()
	return &Game{
		ID:                 id,
		Board:              NewBoard(),
		Phase:              PhasePlacement,
		Status:             StatusWaiting,
		CurrentPlayer:      1,
		Player1:            &PlayerSeat{PlayerNumber: 1, Token: token, Connected: true},
		PiecesCount:        map[int]int{1: 0, 2: 0},
		PlacementRemaining: TurnBudget,
		RematchRequests:    map[int]bool{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Opponent returns the other player's ordinal.
func Opponent(player int) int {
	if player == 1 {
		return 2
	}
	return 1
}

// Seat returns the seat for a player ordinal, or nil when empty.
func (g *Game) Seat(player int) *PlayerSeat {
	if player == 1 {
		return g.Player1
	}
	return g.Player2
}

// SeatByToken resolves a bearer token to its ordinal; 0 when unknown.
func (g *Game) SeatByToken(token string) int {
	if g.Player1 != nil && g.Player1.Token == token {
		return 1
	}
	if g.Player2 != nil && g.Player2.Token == token {
		return 2
	}
	return 0
}

// SwitchTurn hands the turn to the opponent and, during placement, refills
// the new player's budget.
func (g *Game) SwitchTurn() {
	g.CurrentPlayer = Opponent(g.CurrentPlayer)
	if g.Phase == PhasePlacement {
		g.PlacementRemaining = TurnBudget
	}
}

// Reset restores the session to its initial playable state for a rematch.
// Seats are kept; currentPlayer must be re-drawn by the caller.
func (g *Game) Reset() {
	g.Board = NewBoard()
	g.Phase = PhasePlacement
	g.Status = StatusPlaying
	g.PiecesCount = map[int]int{1: 0, 2: 0}
	g.PlacementRemaining = TurnBudget
	g.TotalPiecesPlaced = 0
	g.Winner = 0
	g.GameOver = false
	g.ChainCapturePiece = nil
	g.RematchRequests = map[int]bool{}
	g.UpdatedAt = time.Now()
}

// MoveResult describes the outcome of one place/move action. Ephemeral:
// built per action, never persisted.
type MoveResult struct {
	Success      bool
	Captures     []Coord
	ExtraTurn    bool
	PhaseChanged bool
	GameOver     bool
	Winner       int
	Message      string
}
