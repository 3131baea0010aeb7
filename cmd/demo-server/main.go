package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	mem "minesweeper/adapters/memory"
	"minesweeper/analytics"
	"minesweeper/api/httpapi"
	"minesweeper/core"
	"minesweeper/engine"
	"minesweeper/realtime"
	"minesweeper/scoreboard"
)

// seed games so the demo leaderboard is not empty
var seed = []core.Submission{
	{PlayerName: "alice", TimeSeconds: 42, Difficulty: core.DifficultyEasy},
	{PlayerName: "bob", TimeSeconds: 57, Difficulty: core.DifficultyEasy},
	{PlayerName: "carol", TimeSeconds: 131, Difficulty: core.DifficultyMedium},
	{PlayerName: "dave", TimeSeconds: 118, Difficulty: core.DifficultyMedium},
	{PlayerName: "erin", TimeSeconds: 402, Difficulty: core.DifficultyHard},
}

func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	ctx := context.Background()
	hub := realtime.NewHub()
	stats := analytics.NewStats()
	svc := scoreboard.New(
		scoreboard.WithStorage(mem.New()),
		scoreboard.WithRealtime(hub),
		scoreboard.WithStats(stats, analytics.NewDailyPlayers()),
		scoreboard.WithDispatchMode(engine.DispatchAsync),
		scoreboard.WithLogger(logger),
	)
	defer svc.Close()

	for _, s := range seed {
		if _, err := svc.Submit(ctx, s); err != nil {
			slog.Error("seeding demo data", "player", s.PlayerName, "error", err)
			os.Exit(1)
		}
	}

	handler := httpapi.NewMux(svc, hub, stats, httpapi.Options{
		PathPrefix:      "/api",
		AllowCORSOrigin: "*",
		Logger:          logger,
	})

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("starting demo server on :8080", "seeded", len(seed))

	if err := srv.ListenAndServe(); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}
