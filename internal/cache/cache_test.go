package cache

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })

	c, err := New(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

type fakeReport struct {
	GameID   string `json:"gameId"`
	Analyzed int    `json:"analyzed"`
}

func TestAnalysisReportRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	var out fakeReport
	hit, err := c.GetAnalysisReport(ctx, "g1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetAnalysisReport(ctx, "g1", fakeReport{GameID: "g1", Analyzed: 7}))

	hit, err = c.GetAnalysisReport(ctx, "g1", &out)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "g1", out.GameID)
	assert.Equal(t, 7, out.Analyzed)

	require.NoError(t, c.InvalidateAnalysis(ctx, "g1"))
	hit, err = c.GetAnalysisReport(ctx, "g1", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestActiveGameIndex(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	games, err := c.ActiveGames(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, games)

	require.NoError(t, c.IndexActiveGame(ctx, "alice", "g1"))
	require.NoError(t, c.IndexActiveGame(ctx, "alice", "g2"))
	require.NoError(t, c.IndexActiveGame(ctx, "alice", "g1")) // idempotent

	games, err = c.ActiveGames(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g1", "g2"}, games)

	require.NoError(t, c.DropActiveGame(ctx, "alice", "g1"))
	games, err = c.ActiveGames(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"g2"}, games)
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("http://localhost:6379")
	assert.Error(t, err, "only redis scheme URLs are accepted")

	_, err = New("redis://localhost:6379/not-a-db")
	assert.Error(t, err)
}
