package seegadto

// JoinInfo answers create/join/reconnect: the caller's seat and credentials.
type JoinInfo struct {
	GameID       string `json:"gameId"`
	PlayerToken  string `json:"playerToken"`
	PlayerNumber int    `json:"playerNumber"`
	Status       string `json:"status"`
}

// StateView is the full game state tagged with the caller's perspective.
type StateView struct {
	GameID             string      `json:"gameId"`
	Board              [][]int     `json:"board"`
	Phase              string      `json:"phase"`
	Status             string      `json:"status"`
	CurrentPlayer      int         `json:"currentPlayer"`
	YourPlayerNumber   int         `json:"yourPlayerNumber"`
	IsYourTurn         bool        `json:"isYourTurn"`
	PiecesCount        map[int]int `json:"piecesCount"`
	PlacementRemaining int         `json:"placementRemaining"`
	ChainCapturePiece  *Coord      `json:"chainCapturePiece"`
	Winner             int         `json:"winner,omitempty"`
	GameOver           bool        `json:"gameOver"`
}

// MoveResultView reports what one place/move action did.
type MoveResultView struct {
	Success      bool    `json:"success"`
	Captures     []Coord `json:"captures"`
	ExtraTurn    bool    `json:"extraTurn"`
	PhaseChanged bool    `json:"phaseChanged"`
	GameOver     bool    `json:"gameOver"`
	Winner       int     `json:"winner,omitempty"`
	Message      string  `json:"message"`
}

// ActionResponse pairs the refreshed state with the action result.
type ActionResponse struct {
	State  *StateView      `json:"state"`
	Result *MoveResultView `json:"result"`
}

// ValidActions enumerates what the caller may do right now. Exactly one of
// the placement/movement branches is populated, and only on the caller's turn.
type ValidActions struct {
	CanAct bool   `json:"canAct"`
	Reason string `json:"reason,omitempty"`
	Phase  string `json:"phase,omitempty"`

	ValidPlacements []Coord `json:"validPlacements,omitempty"`
	Remaining       int     `json:"remaining,omitempty"`

	ValidMoves   map[string][]Coord `json:"validMoves,omitempty"`
	ChainCapture *Coord             `json:"chainCapture,omitempty"`
}

type LeaveResponse struct {
	Message     string `json:"message"`
	GameDeleted bool   `json:"gameDeleted"`
}

type RematchResponse struct {
	Message        string `json:"message"`
	RematchStarted bool   `json:"rematchStarted"`
	CurrentPlayer  int    `json:"currentPlayer,omitempty"`
}

// ErrorResponse is the JSON body for any non-2xx API answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
