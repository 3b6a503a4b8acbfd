package live

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hocuspocus07/freechess/internal/chesscore"
	"github.com/hocuspocus07/freechess/internal/domain"
	"github.com/hocuspocus07/freechess/internal/obslog"
)

const persistTimeout = 5 * time.Second

// Client is one live connection with a verified identity attached.
type Client interface {
	UserID() string
	Send(ev ServerEvent)
}

// Gateway is the persistence boundary the manager reconciles with.
type Gateway interface {
	CreateGame(ctx context.Context, g domain.Game) error
	GetGame(ctx context.Context, id string) (domain.Game, error)
	SetOutcome(ctx context.Context, gameID, winnerID string, status domain.GameStatus, endTime time.Time) error
	InsertMove(ctx context.Context, rec domain.MoveRecord) error
	ListMoves(ctx context.Context, gameID string) ([]domain.MoveRecord, error)
}

// Config bounds matchmaking and session behavior.
type Config struct {
	// TimeControl is seconds per side for new games.
	TimeControl int
	// GraceWindow is how long a disconnected participant may reconnect
	// before the remaining one wins.
	GraceWindow time.Duration
}

type seat struct {
	userID string
	client Client
}

// session is the in-memory live state of one active game. Exactly one session
// exists per active game id; it is owned by the manager's run loop and never
// touched from outside it.
type session struct {
	gameID string
	white  seat
	black  seat

	board *chesscore.Board
	// moves is the committed SAN history, in lockstep with the move records
	// of the persistence gateway. The board never carries a move that is not
	// in here.
	moves       []string
	timeControl int
	whiteLeft   int
	blackLeft   int
	lastMoveAt  time.Time

	graceTimers map[string]*time.Timer
}

type cmdKind int

const (
	cmdEvent cmdKind = iota
	cmdDisconnect
	cmdGraceExpired
)

type command struct {
	kind   cmdKind
	client Client
	evt    ClientEvent
	gameID string
	userID string
}

// Manager owns the waiting pool and the session registry. All state mutation
// happens on a single goroutine fed by the command channel; timers and
// connection handlers only enqueue commands. Scaling limit: state is
// process-local, horizontal deployments need session affinity.
type Manager struct {
	store Gateway
	cfg   Config

	cmds chan command
	quit chan struct{}

	pool     []Client
	sessions map[string]*session
	waiting  map[string]bool // userID -> queued

	newID func() string
	now   func() time.Time
}

func NewManager(store Gateway, cfg Config) *Manager {
	if cfg.TimeControl <= 0 {
		cfg.TimeControl = 600
	}
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = 60 * time.Second
	}
	return &Manager{
		store:    store,
		cfg:      cfg,
		cmds:     make(chan command, 256),
		quit:     make(chan struct{}),
		sessions: make(map[string]*session),
		waiting:  make(map[string]bool),
		newID:    func() string { return uuid.NewString() },
		now:      time.Now,
	}
}

// Start launches the dispatch loop.
func (m *Manager) Start() {
	go m.run()
}

// Close stops the dispatch loop. Pending commands are dropped.
func (m *Manager) Close() {
	select {
	case <-m.quit:
	default:
		close(m.quit)
	}
}

// Dispatch enqueues a client event for the run loop.
func (m *Manager) Dispatch(c Client, evt ClientEvent) {
	select {
	case m.cmds <- command{kind: cmdEvent, client: c, evt: evt}:
	case <-m.quit:
	}
}

// Disconnect enqueues a connection-gone notification.
func (m *Manager) Disconnect(c Client) {
	select {
	case m.cmds <- command{kind: cmdDisconnect, client: c}:
	case <-m.quit:
	}
}

func (m *Manager) run() {
	for {
		select {
		case <-m.quit:
			return
		case cmd := <-m.cmds:
			switch cmd.kind {
			case cmdEvent:
				m.handleEvent(cmd.client, cmd.evt)
			case cmdDisconnect:
				m.handleDisconnect(cmd.client)
			case cmdGraceExpired:
				m.handleGraceExpired(cmd.gameID, cmd.userID)
			}
		}
	}
}

func (m *Manager) handleEvent(c Client, evt ClientEvent) {
	switch evt.Type {
	case EvtJoinMatchmaking:
		m.joinMatchmaking(c)
	case EvtJoinGame:
		m.joinGame(c, evt.GameID)
	case EvtMakeMove:
		m.makeMove(c, evt.GameID, evt.Move)
	case EvtResignGame:
		m.resignGame(c, evt.GameID)
	case EvtGameOver:
		m.gameOver(c, evt.GameID, evt.WinnerID)
	default:
		c.Send(ServerEvent{Type: EvtError, Message: "unknown event type"})
	}
}

// joinMatchmaking enqueues the connection and pairs the two longest-waiting
// entries. The longer-waiting side plays white.
func (m *Manager) joinMatchmaking(c Client) {
	if m.waiting[c.UserID()] {
		c.Send(ServerEvent{Type: EvtError, Message: "already in matchmaking"})
		return
	}
	if m.sessionForUser(c.UserID()) != nil {
		c.Send(ServerEvent{Type: EvtError, Message: "already in an active game"})
		return
	}

	m.pool = append(m.pool, c)
	m.waiting[c.UserID()] = true
	obslog.L().Info("matchmaking_join", zap.String("user_id", c.UserID()), zap.Int("pool", len(m.pool)))

	for len(m.pool) >= 2 {
		white := m.pool[0]
		black := m.pool[1]
		m.pool = m.pool[2:]
		delete(m.waiting, white.UserID())
		delete(m.waiting, black.UserID())
		m.startGame(white, black)
	}
}

func (m *Manager) startGame(white, black Client) {
	gameID := m.newID()
	now := m.now()

	game := domain.Game{
		ID:          gameID,
		Player1ID:   white.UserID(),
		Player2ID:   black.UserID(),
		Status:      domain.GameActive,
		TimeControl: m.cfg.TimeControl,
		StartTime:   now,
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := m.store.CreateGame(ctx, game); err != nil {
		obslog.L().Error("game_create_error", zap.String("game_id", gameID), zap.Error(err))
		ev := ServerEvent{Type: EvtError, Message: "failed to create game"}
		white.Send(ev)
		black.Send(ev)
		return
	}

	sess := &session{
		gameID:      gameID,
		white:       seat{userID: white.UserID(), client: white},
		black:       seat{userID: black.UserID(), client: black},
		board:       chesscore.NewBoard(),
		timeControl: m.cfg.TimeControl,
		whiteLeft:   m.cfg.TimeControl,
		blackLeft:   m.cfg.TimeControl,
		lastMoveAt:  now,
		graceTimers: make(map[string]*time.Timer),
	}
	m.sessions[gameID] = sess

	initialFEN := sess.board.FEN()
	white.Send(ServerEvent{
		Type: EvtGameAssigned, GameID: gameID, IsWhite: boolPtr(true),
		OpponentID: black.UserID(), InitialFEN: initialFEN,
	})
	black.Send(ServerEvent{
		Type: EvtGameAssigned, GameID: gameID, IsWhite: boolPtr(false),
		OpponentID: white.UserID(), InitialFEN: initialFEN,
	})
	obslog.L().Info("match_paired",
		zap.String("game_id", gameID),
		zap.String("white_id", white.UserID()),
		zap.String("black_id", black.UserID()),
	)
}

// joinGame attaches (or re-attaches) a participant to an existing game. For a
// game with no live session the state is rebuilt by replaying the persisted
// move sequence.
func (m *Manager) joinGame(c Client, gameID string) {
	if gameID == "" {
		c.Send(ServerEvent{Type: EvtError, Message: "gameId required"})
		return
	}

	sess, ok := m.sessions[gameID]
	if !ok {
		var err error
		sess, err = m.restoreSession(gameID)
		if err != nil {
			c.Send(ServerEvent{Type: EvtError, Message: err.Error()})
			return
		}
	}

	st := sess.seatFor(c.UserID())
	if st == nil {
		c.Send(ServerEvent{Type: EvtError, Message: "not a participant of this game"})
		return
	}
	st.client = c
	sess.cancelGrace(c.UserID())

	ev := ServerEvent{
		Type:        EvtGameReady,
		GameID:      gameID,
		IsWhite:     boolPtr(st == &sess.white),
		OpponentID:  sess.opponentOf(c.UserID()),
		FEN:         sess.board.FEN(),
		CurrentTurn: sess.board.Turn(),
	}
	c.Send(ev)
	if other := sess.otherSeat(c.UserID()); other != nil && other.client != nil {
		other.client.Send(ServerEvent{
			Type: EvtGameReady, GameID: gameID,
			FEN: sess.board.FEN(), CurrentTurn: sess.board.Turn(),
		})
	}
	obslog.L().Info("game_joined", zap.String("game_id", gameID), zap.String("user_id", c.UserID()))
}

func (m *Manager) restoreSession(gameID string) (*session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	game, err := m.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, errors.New("game not found")
	}
	if game.Status.Terminal() {
		return nil, errors.New("game already ended")
	}

	records, err := m.store.ListMoves(ctx, gameID)
	if err != nil {
		return nil, errors.New("failed to load game moves")
	}
	moves := make([]string, len(records))
	for i, r := range records {
		moves[i] = r.Move
	}
	board, err := chesscore.Reconstruct(moves)
	if err != nil {
		// Data corruption: surface loudly, never truncate.
		obslog.L().Error("game_history_corrupt", zap.String("game_id", gameID), zap.Error(err))
		return nil, errors.New("game history is corrupt")
	}

	// Resume each clock from the last persisted remaining time of that side.
	// Odd move numbers are white's. Records written outside the live channel
	// may carry no clock; those leave the seed untouched.
	whiteLeft, blackLeft := game.TimeControl, game.TimeControl
	for _, r := range records {
		if r.RemainingTime <= 0 {
			continue
		}
		if r.MoveNumber%2 == 1 {
			whiteLeft = r.RemainingTime
		} else {
			blackLeft = r.RemainingTime
		}
	}

	sess := &session{
		gameID:      gameID,
		white:       seat{userID: game.Player1ID},
		black:       seat{userID: game.Player2ID},
		board:       board,
		moves:       moves,
		timeControl: game.TimeControl,
		whiteLeft:   whiteLeft,
		blackLeft:   blackLeft,
		lastMoveAt:  m.now(),
		graceTimers: make(map[string]*time.Timer),
	}
	m.sessions[gameID] = sess
	return sess, nil
}

// makeMove validates participant and turn, applies the move, persists the
// move record, and broadcasts. Moves for one session are strictly serialized
// by the run loop; sessions are independent of each other.
func (m *Manager) makeMove(c Client, gameID, notation string) {
	sess, ok := m.sessions[gameID]
	if !ok {
		c.Send(ServerEvent{Type: EvtError, Message: "no active session for game"})
		return
	}
	st := sess.seatFor(c.UserID())
	if st == nil || st.client != c {
		c.Send(ServerEvent{Type: EvtError, Message: "not a participant of this game"})
		return
	}

	moverColor := "white"
	if st == &sess.black {
		moverColor = "black"
	}
	if sess.board.Turn() != moverColor {
		c.Send(ServerEvent{Type: EvtInvalidMove, GameID: gameID, Message: "not your turn"})
		return
	}

	detail, err := sess.board.ApplyMove(notation)
	if err != nil {
		c.Send(ServerEvent{Type: EvtInvalidMove, GameID: gameID, Message: "illegal move"})
		return
	}

	prevWhite, prevBlack, prevLast := sess.whiteLeft, sess.blackLeft, sess.lastMoveAt
	remaining := sess.chargeClock(moverColor, m.now())
	moveNumber := len(sess.moves) + 1

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	err = m.store.InsertMove(ctx, domain.MoveRecord{
		GameID:        gameID,
		PlayerID:      st.userID,
		MoveNumber:    moveNumber,
		Move:          detail.SAN,
		RemainingTime: remaining,
	})
	cancel()
	if err != nil {
		// The move record sequence is the source of truth. A move that
		// could not be recorded is not accepted: roll the live state back
		// to the committed history and tell the mover.
		obslog.L().Error("move_persist_error",
			zap.String("game_id", gameID),
			zap.Int("move_number", moveNumber),
			zap.Error(err),
		)
		if board, rerr := chesscore.Reconstruct(sess.moves); rerr == nil {
			sess.board = board
		}
		sess.whiteLeft, sess.blackLeft, sess.lastMoveAt = prevWhite, prevBlack, prevLast
		c.Send(ServerEvent{Type: EvtError, GameID: gameID, Message: "failed to record move"})
		return
	}
	sess.moves = append(sess.moves, detail.SAN)

	sess.broadcast(ServerEvent{
		Type:        EvtMoveMade,
		GameID:      gameID,
		Move:        detail.SAN,
		FEN:         detail.FEN,
		CurrentTurn: sess.board.Turn(),
	})
	obslog.L().Info("move_applied",
		zap.String("game_id", gameID),
		zap.String("user_id", st.userID),
		zap.Int("move_number", moveNumber),
		zap.String("san", detail.SAN),
	)

	if detail.Terminal != chesscore.StatusNone {
		winnerID := ""
		status := domain.GameDraw
		if detail.Terminal == chesscore.StatusCheckmate {
			winnerID = st.userID
			status = domain.GameCompleted
		}
		m.endSession(sess, winnerID, status)
	}
}

func (m *Manager) resignGame(c Client, gameID string) {
	sess, ok := m.sessions[gameID]
	if !ok {
		c.Send(ServerEvent{Type: EvtError, Message: "no active session for game"})
		return
	}
	st := sess.seatFor(c.UserID())
	if st == nil {
		c.Send(ServerEvent{Type: EvtError, Message: "not a participant of this game"})
		return
	}
	obslog.L().Info("game_resigned", zap.String("game_id", gameID), zap.String("user_id", c.UserID()))
	m.endSession(sess, sess.opponentOf(c.UserID()), domain.GameCompleted)
}

// gameOver handles a client-reported termination, e.g. a flag fall detected
// on the client clock. The reported winner must be a participant or empty
// for a draw.
func (m *Manager) gameOver(c Client, gameID, winnerID string) {
	sess, ok := m.sessions[gameID]
	if !ok {
		c.Send(ServerEvent{Type: EvtError, Message: "no active session for game"})
		return
	}
	if sess.seatFor(c.UserID()) == nil {
		c.Send(ServerEvent{Type: EvtError, Message: "not a participant of this game"})
		return
	}
	if winnerID != "" && sess.seatFor(winnerID) == nil {
		c.Send(ServerEvent{Type: EvtError, Message: "winner is not a participant"})
		return
	}
	status := domain.GameCompleted
	if winnerID == "" {
		status = domain.GameDraw
	}
	m.endSession(sess, winnerID, status)
}

// endSession persists the outcome before any in-memory teardown.
func (m *Manager) endSession(sess *session, winnerID string, status domain.GameStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := m.store.SetOutcome(ctx, sess.gameID, winnerID, status, m.now()); err != nil {
		obslog.L().Error("outcome_persist_error",
			zap.String("game_id", sess.gameID),
			zap.String("winner_id", winnerID),
			zap.Error(err),
		)
	}

	sess.broadcast(ServerEvent{Type: EvtGameEnded, GameID: sess.gameID, WinnerID: winnerID})
	sess.stopTimers()
	delete(m.sessions, sess.gameID)

	obslog.L().Info("game_ended",
		zap.String("game_id", sess.gameID),
		zap.String("winner_id", winnerID),
		zap.String("status", string(status)),
	)
}

func (m *Manager) handleDisconnect(c Client) {
	if m.waiting[c.UserID()] {
		delete(m.waiting, c.UserID())
		for i, w := range m.pool {
			if w == c {
				m.pool = append(m.pool[:i], m.pool[i+1:]...)
				break
			}
		}
		obslog.L().Info("matchmaking_leave", zap.String("user_id", c.UserID()))
		return
	}

	for _, sess := range m.sessions {
		st := sess.seatFor(c.UserID())
		if st == nil || st.client != c {
			continue
		}
		st.client = nil
		m.startGrace(sess, st.userID)
		return
	}
}

// startGrace arms the reconnection window for a disconnected participant.
// The timer only enqueues a command; the decision runs on the loop.
func (m *Manager) startGrace(sess *session, userID string) {
	gameID := sess.gameID
	sess.cancelGrace(userID)
	sess.graceTimers[userID] = time.AfterFunc(m.cfg.GraceWindow, func() {
		select {
		case m.cmds <- command{kind: cmdGraceExpired, gameID: gameID, userID: userID}:
		case <-m.quit:
		}
	})
	obslog.L().Info("grace_started",
		zap.String("game_id", gameID),
		zap.String("user_id", userID),
		zap.Duration("window", m.cfg.GraceWindow),
	)
}

func (m *Manager) handleGraceExpired(gameID, userID string) {
	sess, ok := m.sessions[gameID]
	if !ok {
		return
	}
	st := sess.seatFor(userID)
	if st == nil || st.client != nil {
		// Reconnected in time.
		return
	}
	obslog.L().Info("grace_expired", zap.String("game_id", gameID), zap.String("user_id", userID))
	m.endSession(sess, sess.opponentOf(userID), domain.GameCompleted)
}

func (m *Manager) sessionForUser(userID string) *session {
	for _, sess := range m.sessions {
		if sess.seatFor(userID) != nil {
			return sess
		}
	}
	return nil
}

func (s *session) seatFor(userID string) *seat {
	if s.white.userID == userID {
		return &s.white
	}
	if s.black.userID == userID {
		return &s.black
	}
	return nil
}

func (s *session) otherSeat(userID string) *seat {
	if s.white.userID == userID {
		return &s.black
	}
	if s.black.userID == userID {
		return &s.white
	}
	return nil
}

func (s *session) opponentOf(userID string) string {
	if other := s.otherSeat(userID); other != nil {
		return other.userID
	}
	return ""
}

func (s *session) broadcast(ev ServerEvent) {
	if s.white.client != nil {
		s.white.client.Send(ev)
	}
	if s.black.client != nil {
		s.black.client.Send(ev)
	}
}

// chargeClock deducts elapsed thinking time from the mover and returns the
// mover's remaining whole seconds.
func (s *session) chargeClock(color string, now time.Time) int {
	elapsed := int(now.Sub(s.lastMoveAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	s.lastMoveAt = now
	if color == "white" {
		s.whiteLeft -= elapsed
		if s.whiteLeft < 0 {
			s.whiteLeft = 0
		}
		return s.whiteLeft
	}
	s.blackLeft -= elapsed
	if s.blackLeft < 0 {
		s.blackLeft = 0
	}
	return s.blackLeft
}

func (s *session) cancelGrace(userID string) {
	if t, ok := s.graceTimers[userID]; ok {
		t.Stop()
		delete(s.graceTimers, userID)
	}
}

func (s *session) stopTimers() {
	for id, t := range s.graceTimers {
		t.Stop()
		delete(s.graceTimers, id)
	}
}
