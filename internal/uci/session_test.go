package uci

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		name string
		line string
		cp   int
		mate bool
		ok   bool
	}{
		{"cp score", "info depth 12 seldepth 18 score cp 35 nodes 12345 pv e2e4", 35, false, true},
		{"negative cp", "info depth 8 score cp -120 nodes 99", -120, false, true},
		{"mate for mover", "info depth 5 score mate 3 pv d8h4", mateScoreCP, true, true},
		{"mate against mover", "info depth 5 score mate -2", -mateScoreCP, true, true},
		{"no score", "info depth 3 nodes 500 nps 100000", 0, false, false},
		{"malformed value", "info score cp abc", 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp, mate, ok := parseScore(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.cp, cp)
				assert.Equal(t, tt.mate, mate)
			}
		})
	}
}

func TestParseBestMove(t *testing.T) {
	move, ok := parseBestMove("bestmove e2e4 ponder e7e5")
	require.True(t, ok)
	assert.Equal(t, "e2e4", move)

	_, ok = parseBestMove("bestmove (none)")
	assert.False(t, ok)

	_, ok = parseBestMove("bestmove")
	assert.False(t, ok)
}

func TestGoCommand(t *testing.T) {
	cmd, err := goCommand(Limits{Depth: 12})
	require.NoError(t, err)
	assert.Equal(t, "go depth 12\n", cmd)

	cmd, err = goCommand(Limits{MoveTimeMillis: 500})
	require.NoError(t, err)
	assert.Equal(t, "go movetime 500\n", cmd)

	cmd, err = goCommand(Limits{Depth: 8, MoveTimeMillis: 250})
	require.NoError(t, err)
	assert.Equal(t, "go depth 8 movetime 250\n", cmd)

	_, err = goCommand(Limits{})
	assert.Error(t, err)
}

func TestPositionCommand(t *testing.T) {
	assert.Equal(t, "position startpos\n", positionCommand(""))
	assert.Equal(t, "position startpos\n", positionCommand("startpos"))
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	assert.Equal(t, "position fen "+fen+"\n", positionCommand(fen))
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func pipeSession(t *testing.T, timeout time.Duration) (*Session, *io.PipeWriter) {
	t.Helper()
	pr, pw := io.Pipe()
	s := &Session{
		stdin:       nopWriteCloser{io.Discard},
		stdout:      bufio.NewReader(pr),
		evalTimeout: timeout,
	}
	t.Cleanup(func() { _ = pw.Close() })
	return s, pw
}

func TestEvaluate_BuffersPartialChunks(t *testing.T) {
	s, pw := pipeSession(t, 2*time.Second)

	go func() {
		_, _ = io.WriteString(pw, "info depth 10 score cp 42 nodes 1000\n")
		// bestmove arrives split across writes; the reader must wait for the
		// newline before acting on it.
		_, _ = io.WriteString(pw, "bestmove e2e")
		time.Sleep(20 * time.Millisecond)
		_, _ = io.WriteString(pw, "4 ponder e7e5\n")
	}()

	res, err := s.Evaluate(context.Background(), "startpos", Limits{Depth: 10})
	require.NoError(t, err)
	assert.Equal(t, "e2e4", res.BestMove)
	assert.Equal(t, 42, res.ScoreCP)
	assert.False(t, res.Mate)
}

func TestEvaluate_MateScore(t *testing.T) {
	s, pw := pipeSession(t, 2*time.Second)

	go func() {
		_, _ = io.WriteString(pw, "info depth 5 score mate 2 pv d8h4\n")
		_, _ = io.WriteString(pw, "bestmove d8h4\n")
	}()

	res, err := s.Evaluate(context.Background(), "startpos", Limits{Depth: 5})
	require.NoError(t, err)
	assert.Equal(t, "d8h4", res.BestMove)
	assert.Equal(t, mateScoreCP, res.ScoreCP)
	assert.True(t, res.Mate)
}

func TestEvaluate_NoBestMove(t *testing.T) {
	s, pw := pipeSession(t, 2*time.Second)

	go func() {
		_, _ = io.WriteString(pw, "bestmove (none)\n")
	}()

	_, err := s.Evaluate(context.Background(), "startpos", Limits{Depth: 1})
	assert.ErrorIs(t, err, ErrNoBestMove)
}

func TestEvaluate_TimeoutKillsSearch(t *testing.T) {
	s, _ := pipeSession(t, 50*time.Millisecond)

	_, err := s.Evaluate(context.Background(), "startpos", Limits{Depth: 20})
	require.ErrorIs(t, err, ErrEvalTimeout)

	// The session is dead after a timeout.
	_, err = s.Evaluate(context.Background(), "startpos", Limits{Depth: 20})
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestEvaluate_EngineExit(t *testing.T) {
	s, pw := pipeSession(t, 2*time.Second)
	_ = pw.Close()

	_, err := s.Evaluate(context.Background(), "startpos", Limits{Depth: 10})
	assert.ErrorIs(t, err, ErrEngineClosed)
}

// fakeEngineScript is a minimal UCI responder for full-session tests.
const fakeEngineScript = `#!/bin/sh
while read line; do
  case "$line" in
    uci) echo "id name fake"; echo "uciok";;
    isready) echo "readyok";;
    go*) echo "info depth 1 score cp 13 pv e2e4"; echo "bestmove e2e4";;
    quit) exit 0;;
  esac
done
`

func TestStartAndEvaluate_FakeEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake-engine")
	require.NoError(t, os.WriteFile(path, []byte(fakeEngineScript), 0o755))

	s, err := Start(context.Background(), path, Options{Threads: 1, HashMB: 16})
	require.NoError(t, err)
	defer func() { _ = s.Stop() }()

	res, err := s.Evaluate(context.Background(), "startpos", Limits{Depth: 1})
	require.NoError(t, err)
	assert.Equal(t, "e2e4", res.BestMove)
	assert.Equal(t, 13, res.ScoreCP)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}

func TestStart_MissingBinary(t *testing.T) {
	_, err := Start(context.Background(), "", Options{})
	assert.Error(t, err)

	_, err = Start(context.Background(), "/nonexistent/engine", Options{})
	assert.Error(t, err)
}
