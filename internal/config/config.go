package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	Addr string

	DatabaseURL string
	RedisURL    string

	StockfishPath string

	// AnalysisDepth bounds each per-position search in the analysis pipeline.
	AnalysisDepth          int
	AnalysisMoveTimeMillis int

	// TimeControl is seconds per side for matchmade games.
	TimeControl int

	// GraceWindow is the reconnection window for a disconnected participant
	// of an active game.
	GraceWindow time.Duration

	// AbandonedRetention is how long a waiting game with no moves survives
	// before cleanup reclaims it.
	AbandonedRetention time.Duration
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Addr:               ":8080",
		AnalysisDepth:      12,
		TimeControl:        600,
		GraceWindow:        60 * time.Second,
		AbandonedRetention: time.Hour,
	}

	if v := strings.TrimSpace(os.Getenv("ADDR")); v != "" {
		cfg.Addr = v
	}
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))

	if v := strings.TrimSpace(os.Getenv("ANALYSIS_DEPTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AnalysisDepth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ANALYSIS_MOVETIME_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AnalysisMoveTimeMillis = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("TIME_CONTROL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeControl = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("GRACE_WINDOW_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GraceWindow = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("ABANDONED_RETENTION")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.AbandonedRetention = d
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.StockfishPath == "" {
		return nil, errors.New("STOCKFISH_PATH is required")
	}

	return cfg, nil
}
