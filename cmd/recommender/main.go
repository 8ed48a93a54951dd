package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dinhhieu2003/toeic-recommender/internal/logger"
	"github.com/dinhhieu2003/toeic-recommender/internal/recommend"
	"github.com/dinhhieu2003/toeic-recommender/internal/servedlog"
	"github.com/dinhhieu2003/toeic-recommender/internal/server"
	"github.com/dinhhieu2003/toeic-recommender/internal/task"
	"github.com/dinhhieu2003/toeic-recommender/pkg/backend"
)

func main() {
	cfg := InitServerConfig()
	logger.SetDebug(cfg.Server.Debug)

	// 1. Backend client (the core's data fetcher).
	client := backend.NewClient(
		cfg.Backend.BaseURL,
		cfg.Backend.APIKey,
		backend.WithTimeout(time.Duration(cfg.Backend.TimeoutSeconds)*time.Second),
		backend.WithMaxRetries(uint64(cfg.Backend.MaxRetries)),
	)

	// 2. Recommendation orchestrator.
	orchestrator, err := recommend.New(client, cfg.Recommend)
	if err != nil {
		logger.Fatal("Failed to init orchestrator: %v", err)
	}

	// 3. Served-recommendation log with periodic retention cleanup.
	if dir := filepath.Dir(cfg.Served.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create served log directory: %v", err)
		}
	}
	servedStore, err := servedlog.NewFileStore(cfg.Served.Path)
	if err != nil {
		logger.Fatal("Failed to init served log: %v", err)
	}
	go runServedCleanup(servedStore, cfg.Served.RetentionDays)

	// 4. Async job manager.
	tasks := task.NewManager()

	// 5. HTTP server.
	srv := server.NewServer(orchestrator, client, servedStore, tasks, cfg.Server.APIToken)
	logger.Info("Starting HTTP server on port %s...", cfg.Server.Port)
	if err := srv.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Server failed: %v", err)
	}
}

// runServedCleanup prunes the served log once at startup and then daily.
func runServedCleanup(store *servedlog.FileStore, retentionDays int) {
	if err := store.Cleanup(retentionDays); err != nil {
		logger.Error("Served log cleanup failed: %v", err)
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		if err := store.Cleanup(retentionDays); err != nil {
			logger.Error("Served log cleanup failed: %v", err)
		}
	}
}
