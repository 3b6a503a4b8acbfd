package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultReadyTimeout = 4 * time.Second
	defaultEvalTimeout  = 10 * time.Second

	// mateScoreCP stands in for forced-mate scores so they sort above any
	// positional evaluation.
	mateScoreCP = 30000
)

var (
	// ErrEvalTimeout means the search deadline elapsed. The engine process
	// has been killed; callers must not reuse the session.
	ErrEvalTimeout = errors.New("engine evaluation timed out")

	// ErrEngineClosed means the process exited or its output stream ended
	// before a search completed.
	ErrEngineClosed = errors.New("engine process closed")

	// ErrNoBestMove means the search completed without a usable best move.
	ErrNoBestMove = errors.New("engine returned no best move")
)

// Options configure the engine once at startup.
type Options struct {
	Threads       int
	HashMB        int
	Elo           int
	LimitStrength bool
}

// Limits bound a single search.
type Limits struct {
	Depth          int
	MoveTimeMillis int
}

// Result is the outcome of one evaluation. ScoreCP is in centipawns from the
// side to move of the evaluated position.
type Result struct {
	BestMove string
	ScoreCP  int
	Mate     bool
}

// Session owns exactly one engine subprocess. Evaluations are serialized; the
// process is never shared across concurrent callers.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	mu      sync.Mutex
	search  sync.Mutex
	stopped bool

	evalTimeout time.Duration
}

// Start launches the engine binary, performs the uci/isready handshake, and
// applies the configuration options.
func Start(ctx context.Context, binaryPath string, opt Options) (*Session, error) {
	if strings.TrimSpace(binaryPath) == "" {
		return nil, fmt.Errorf("engine binary path required")
	}

	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:         cmd,
		stdin:       stdin,
		stdout:      bufio.NewReader(stdoutPipe),
		evalTimeout: defaultEvalTimeout,
	}

	if err := s.initialize(ctx, opt); err != nil {
		_ = s.Stop()
		return nil, err
	}
	return s, nil
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	if err := s.applyOptions(opt); err != nil {
		return err
	}

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) applyOptions(opt Options) error {
	threads := opt.Threads
	if threads <= 0 {
		threads = 1
	}
	hash := opt.HashMB
	if hash <= 0 {
		hash = 64
	}
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d\n", threads),
		fmt.Sprintf("setoption name Hash value %d\n", hash),
	}
	if opt.LimitStrength && opt.Elo > 0 {
		cmds = append(cmds,
			"setoption name UCI_LimitStrength value true\n",
			fmt.Sprintf("setoption name UCI_Elo value %d\n", opt.Elo),
		)
	}
	for _, cmd := range cmds {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return nil
}

// Evaluate runs a single search against fen and blocks until the bestmove
// marker arrives or the deadline elapses. Output is consumed line by line, so
// partial chunks are buffered until a complete marker line is available. On
// timeout the process is killed before returning.
func (s *Session) Evaluate(ctx context.Context, fen string, lim Limits) (Result, error) {
	s.search.Lock()
	defer s.search.Unlock()

	if s.isStopped() {
		return Result{}, ErrEngineClosed
	}

	if err := s.send(positionCommand(fen)); err != nil {
		return Result{}, fmt.Errorf("send position: %w", err)
	}
	goCmd, err := goCommand(lim)
	if err != nil {
		return Result{}, err
	}
	if err := s.send(goCmd); err != nil {
		return Result{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.searchDeadline(lim))
	defer cancel()

	var (
		scoreCP int
		mate    bool
	)
	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				s.kill()
				return Result{}, fmt.Errorf("%w after %s", ErrEvalTimeout, s.searchDeadline(lim))
			}
			if errors.Is(err, io.EOF) {
				s.kill()
				return Result{}, ErrEngineClosed
			}
			return Result{}, fmt.Errorf("read engine output: %w", err)
		}
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "info "):
			if cp, m, ok := parseScore(line); ok {
				scoreCP, mate = cp, m
			}
		case strings.HasPrefix(line, "bestmove"):
			best, ok := parseBestMove(line)
			if !ok {
				return Result{}, ErrNoBestMove
			}
			return Result{BestMove: best, ScoreCP: scoreCP, Mate: mate}, nil
		}
	}
}

// Stop shuts the engine down: a best-effort quit, then a forced kill.
// Idempotent; repeated calls return nil.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	if s.stdin != nil {
		_, _ = io.WriteString(s.stdin, "quit\n")
		_ = s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	if s.cmd != nil {
		_ = s.cmd.Wait()
	}
	return nil
}

// kill is the timeout escalation path: no quit handshake, the process goes
// away now.
func (s *Session) kill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.stdin != nil {
		_ = s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	if s.cmd != nil {
		_ = s.cmd.Wait()
	}
}

func (s *Session) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Session) searchDeadline(lim Limits) time.Duration {
	if lim.MoveTimeMillis > 0 {
		return time.Duration(lim.MoveTimeMillis)*time.Millisecond + s.evalTimeout
	}
	return s.evalTimeout
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrEngineClosed
	}
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

// readLine returns the next complete output line, racing the context. The
// bufio reader keeps partial chunks buffered until the newline arrives.
func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := s.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}

func positionCommand(fen string) string {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return "position startpos\n"
	}
	return "position fen " + fen + "\n"
}

func goCommand(lim Limits) (string, error) {
	args := []string{"go"}
	if lim.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(lim.Depth))
	}
	if lim.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(lim.MoveTimeMillis))
	}
	if len(args) == 1 {
		return "", fmt.Errorf("no search limits specified")
	}
	return strings.Join(args, " ") + "\n", nil
}

// parseScore extracts "score cp N" or "score mate N" from an info line.
// Mate scores collapse to +-mateScoreCP.
func parseScore(line string) (cp int, mate bool, ok bool) {
	parts := strings.Fields(line)
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] != "score" {
			continue
		}
		val, err := strconv.Atoi(parts[i+2])
		if err != nil {
			return 0, false, false
		}
		switch parts[i+1] {
		case "cp":
			return val, false, true
		case "mate":
			if val >= 0 {
				return mateScoreCP, true, true
			}
			return -mateScoreCP, true, true
		}
		return 0, false, false
	}
	return 0, false, false
}

// parseBestMove extracts the move from a "bestmove ..." line. The "(none)"
// token engines emit for finished positions is not a usable move.
func parseBestMove(line string) (string, bool) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return "", false
	}
	move := strings.ToLower(parts[1])
	if move == "(none)" || move == "none" {
		return "", false
	}
	return move, true
}
