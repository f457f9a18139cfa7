package seegadto

// Event types pushed over the game websocket. Delivery is best-effort,
// at-most-once; clients must be able to resync via GET state.
const (
	EventConnected        = "connected"
	EventGameStarted      = "game_started"
	EventOpponentJoined   = "opponent_joined"
	EventOpponentPlaced   = "opponent_placed"
	EventOpponentMoved    = "opponent_moved"
	EventYourTurn         = "your_turn"
	EventPhaseChanged     = "phase_changed"
	EventGameOver         = "game_over"
	EventOpponentLeft     = "opponent_left"
	EventRematchRequested = "rematch_requested"
	EventRematchStarted   = "rematch_started"
	EventPing             = "ping"
	EventPong             = "pong"
)

// Event is a single push frame. Fields beyond Type are populated per event
// type; absent fields are omitted from the wire form.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`

	// opponent_placed
	X      *int `json:"x,omitempty"`
	Y      *int `json:"y,omitempty"`
	Player int  `json:"player,omitempty"`

	// opponent_moved
	From      *Coord  `json:"from,omitempty"`
	To        *Coord  `json:"to,omitempty"`
	Captures  []Coord `json:"captures,omitempty"`
	ExtraTurn bool    `json:"extraTurn,omitempty"`

	// phase_changed / game_started / rematch_started
	Phase         string `json:"phase,omitempty"`
	CurrentPlayer int    `json:"currentPlayer,omitempty"`

	// game_over
	Winner int    `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func NewEvent(eventType string) *Event { return &Event{Type: eventType} }

func PlacedEvent(x, y, player int) *Event {
	return &Event{Type: EventOpponentPlaced, X: &x, Y: &y, Player: player}
}

func MovedEvent(from, to Coord, captures []Coord, extraTurn bool) *Event {
	if captures == nil {
		captures = []Coord{}
	}
	return &Event{Type: EventOpponentMoved, From: &from, To: &to, Captures: captures, ExtraTurn: extraTurn}
}

func GameOverEvent(winner int, reason string) *Event {
	return &Event{Type: EventGameOver, Winner: winner, Reason: reason}
}

func GameStartedEvent(phase string, currentPlayer int) *Event {
	return &Event{Type: EventGameStarted, Phase: phase, CurrentPlayer: currentPlayer}
}

func RematchStartedEvent(phase string, currentPlayer int) *Event {
	return &Event{Type: EventRematchStarted, Phase: phase, CurrentPlayer: currentPlayer}
}
