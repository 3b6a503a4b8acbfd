package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hocuspocus07/freechess/internal/uci"
)

type scriptedEngine struct {
	result  uci.Result
	evalErr error
	gotOpt  uci.Options
	gotLim  uci.Limits
	stopped bool
}

func (e *scriptedEngine) Evaluate(ctx context.Context, fen string, lim uci.Limits) (uci.Result, error) {
	e.gotLim = lim
	return e.result, e.evalErr
}

func (e *scriptedEngine) Stop() error {
	e.stopped = true
	return nil
}

func newTestService(eng *scriptedEngine) *Service {
	return NewService(func(ctx context.Context, opt uci.Options) (Engine, error) {
		eng.gotOpt = opt
		return eng, nil
	})
}

func TestBestMove(t *testing.T) {
	eng := &scriptedEngine{result: uci.Result{BestMove: "e2e4", ScoreCP: 30}}
	svc := newTestService(eng)

	mv, err := svc.BestMove(context.Background(), "startpos", 1400)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", mv.UCI)
	assert.Equal(t, "e4", mv.SAN)
	assert.Equal(t, "black", mv.Turn)
	assert.NotEmpty(t, mv.FEN)
	assert.True(t, eng.stopped)

	assert.Equal(t, 8, eng.gotLim.Depth)
	assert.True(t, eng.gotOpt.LimitStrength)
	assert.Equal(t, 1400, eng.gotOpt.Elo)
}

func TestBestMove_FullStrengthWhenUnrated(t *testing.T) {
	eng := &scriptedEngine{result: uci.Result{BestMove: "e2e4"}}
	svc := newTestService(eng)

	_, err := svc.BestMove(context.Background(), "", 0)
	require.NoError(t, err)
	assert.False(t, eng.gotOpt.LimitStrength)
}

func TestBestMove_RejectsInapplicableEngineMove(t *testing.T) {
	eng := &scriptedEngine{result: uci.Result{BestMove: "e7e5"}}
	svc := newTestService(eng)

	_, err := svc.BestMove(context.Background(), "startpos", 1400)
	require.Error(t, err)
	assert.True(t, eng.stopped)
}

func TestBestMove_PropagatesEngineFailure(t *testing.T) {
	eng := &scriptedEngine{evalErr: errors.New("boom")}
	svc := newTestService(eng)

	_, err := svc.BestMove(context.Background(), "startpos", 1400)
	require.Error(t, err)
	assert.True(t, eng.stopped)

	eng = &scriptedEngine{result: uci.Result{BestMove: ""}}
	svc = newTestService(eng)
	_, err = svc.BestMove(context.Background(), "startpos", 1400)
	assert.ErrorIs(t, err, uci.ErrNoBestMove)
}

func TestDepthForRating(t *testing.T) {
	assert.Equal(t, 2, depthForRating(500))
	assert.Equal(t, 4, depthForRating(800))
	assert.Equal(t, 8, depthForRating(1200))
	assert.Equal(t, 12, depthForRating(1600))
	assert.Equal(t, 16, depthForRating(2400))
}
