package live

// Client-to-server event types.
const (
	EvtJoinMatchmaking = "joinMatchmaking"
	EvtJoinGame        = "joinGame"
	EvtMakeMove        = "makeMove"
	EvtResignGame      = "resignGame"
	EvtGameOver        = "gameOver"
)

// Server-to-client event types.
const (
	EvtGameAssigned = "gameAssigned"
	EvtGameReady    = "gameReady"
	EvtMoveMade     = "moveMade"
	EvtInvalidMove  = "invalidMove"
	EvtGameEnded    = "gameEnded"
	EvtError        = "error"
)

// ClientEvent is the envelope for everything a connection may send.
type ClientEvent struct {
	Type        string `json:"type"`
	GameID      string `json:"gameId,omitempty"`
	Move        string `json:"move,omitempty"`
	FEN         string `json:"fen,omitempty"`
	CurrentTurn string `json:"currentTurn,omitempty"`
	WinnerID    string `json:"winnerId,omitempty"`
}

// ServerEvent is the envelope for everything the manager emits.
type ServerEvent struct {
	Type        string `json:"type"`
	GameID      string `json:"gameId,omitempty"`
	IsWhite     *bool  `json:"isWhite,omitempty"`
	OpponentID  string `json:"opponentId,omitempty"`
	InitialFEN  string `json:"initialFen,omitempty"`
	Move        string `json:"move,omitempty"`
	FEN         string `json:"fen,omitempty"`
	CurrentTurn string `json:"currentTurn,omitempty"`
	WinnerID    string `json:"winnerId,omitempty"`
	Message     string `json:"message,omitempty"`
}

func boolPtr(b bool) *bool { return &b }
