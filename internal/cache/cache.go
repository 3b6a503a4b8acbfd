package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultReportTTL = 24 * time.Hour

// Cache holds recomputable hot state in Redis: finished analysis reports and
// the active-game index per user.
type Cache struct {
	rdb       *redis.Client
	reportTTL time.Duration
}

func New(redisURL string) (*Cache, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Cache{rdb: rdb, reportTTL: defaultReportTTL}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// SetAnalysisReport caches a finished report under the game id.
func (c *Cache) SetAnalysisReport(ctx context.Context, gameID string, report any) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, reportKey(gameID), raw, c.reportTTL).Err()
}

// GetAnalysisReport loads a cached report into out. The second return is
// false on a cache miss.
func (c *Cache) GetAnalysisReport(ctx context.Context, gameID string, out any) (bool, error) {
	raw, err := c.rdb.Get(ctx, reportKey(gameID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// InvalidateAnalysis drops a cached report, e.g. before re-analysis.
func (c *Cache) InvalidateAnalysis(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, reportKey(gameID)).Err()
}

// IndexActiveGame records that a user participates in a game.
func (c *Cache) IndexActiveGame(ctx context.Context, userID, gameID string) error {
	key := idxUserKey(userID)
	if err := c.rdb.SAdd(ctx, key, gameID).Err(); err != nil {
		return err
	}
	return c.rdb.Expire(ctx, key, c.reportTTL).Err()
}

// ActiveGames lists the games indexed for a user.
func (c *Cache) ActiveGames(ctx context.Context, userID string) ([]string, error) {
	return c.rdb.SMembers(ctx, idxUserKey(userID)).Result()
}

// DropActiveGame removes a finished game from the user's index.
func (c *Cache) DropActiveGame(ctx context.Context, userID, gameID string) error {
	return c.rdb.SRem(ctx, idxUserKey(userID), gameID).Err()
}

func reportKey(gameID string) string  { return "analysis:game:" + strings.TrimSpace(gameID) }
func idxUserKey(userID string) string { return "games:index:user:" + strings.TrimSpace(userID) }
