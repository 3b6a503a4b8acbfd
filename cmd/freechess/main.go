package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hocuspocus07/freechess/internal/analysis"
	"github.com/hocuspocus07/freechess/internal/bot"
	"github.com/hocuspocus07/freechess/internal/cache"
	"github.com/hocuspocus07/freechess/internal/config"
	"github.com/hocuspocus07/freechess/internal/httpapi"
	"github.com/hocuspocus07/freechess/internal/live"
	"github.com/hocuspocus07/freechess/internal/obslog"
	"github.com/hocuspocus07/freechess/internal/store"
	"github.com/hocuspocus07/freechess/internal/uci"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer st.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	if err := st.EnsureSchema(schemaCtx); err != nil {
		cancelSchema()
		logger.Fatal("schema init failed", zap.Error(err))
	}
	cancelSchema()

	var ch *cache.Cache
	if cfg.RedisURL != "" {
		ch, err = cache.New(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis connect failed", zap.Error(err))
		}
		defer ch.Close()
	}

	botSvc := bot.NewService(func(ctx context.Context, opt uci.Options) (bot.Engine, error) {
		return uci.Start(ctx, cfg.StockfishPath, opt)
	})

	pipeline := analysis.NewPipeline(st, st, func(ctx context.Context) (analysis.Engine, error) {
		return uci.Start(ctx, cfg.StockfishPath, uci.Options{Threads: 1, HashMB: 128})
	}, analysis.Config{
		Depth:          cfg.AnalysisDepth,
		MoveTimeMillis: cfg.AnalysisMoveTimeMillis,
	})

	manager := live.NewManager(st, live.Config{
		TimeControl: cfg.TimeControl,
		GraceWindow: cfg.GraceWindow,
	})
	manager.Start()
	defer manager.Close()

	api := &httpapi.Server{
		Store:    st,
		Cache:    ch,
		Bot:      botSvc,
		Analysis: pipeline,
		Live:     manager,
	}

	srv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     api.Routes(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	cleanupDone := make(chan struct{})
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	go func() {
		defer close(cleanupDone)
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				n, err := st.CleanupAbandoned(cleanupCtx, cfg.AbandonedRetention)
				if err != nil {
					logger.Warn("abandoned game cleanup failed", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Info("abandoned games reclaimed", zap.Int64("count", n))
				}
			}
		}
	}()

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	cancelCleanup()
	<-cleanupDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}
}
