// Package scoreboard assembles a LeaderboardService with its event
// subscribers from functional options.
package scoreboard

import (
	"context"
	"log/slog"

	mem "minesweeper/adapters/memory"
	"minesweeper/analytics"
	"minesweeper/core"
	"minesweeper/engine"
	"minesweeper/integrations/webhook"
	"minesweeper/realtime"
)

// Option configures the scoreboard builder.
type Option func(*config)

type config struct {
	storage    engine.Storage
	mode       engine.DispatchMode
	hub        *realtime.Hub
	hooks      []analytics.Hook
	sink       *webhook.Sink
	logger     *slog.Logger
	limit      int
	difficulty core.Difficulty
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive accepted entries.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithStats feeds accepted entries to analytics hooks.
func WithStats(hooks ...analytics.Hook) Option {
	return func(c *config) { c.hooks = append(c.hooks, hooks...) }
}

// WithWebhooks posts accepted entries to sink's endpoints.
func WithWebhooks(s *webhook.Sink) Option { return func(c *config) { c.sink = s } }

func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// WithLimit caps leaderboard reads; zero keeps engine.DefaultLimit.
func WithLimit(n int) Option { return func(c *config) { c.limit = n } }

// WithDefaultDifficulty sets the board used when a submission or read names none.
func WithDefaultDifficulty(d core.Difficulty) Option {
	return func(c *config) { c.difficulty = d }
}

// New builds a configured LeaderboardService. If not provided, defaults are used:
//   - storage: in-memory
//   - dispatch: async
//   - limit: engine.DefaultLimit
//   - default difficulty: core.DefaultDifficulty
func New(opts ...Option) *engine.LeaderboardService {
	cfg := &config{mode: engine.DispatchAsync, logger: slog.Default()}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = mem.New()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	bus := engine.NewEventBus(cfg.mode, engine.WithBusLogger(cfg.logger))
	svc := engine.NewLeaderboardService(cfg.storage, bus, cfg.logger, cfg.limit,
		engine.WithDefaultDifficulty(cfg.difficulty))

	if cfg.hub != nil {
		hub := cfg.hub
		bus.Subscribe(core.EventEntrySubmitted, func(ctx context.Context, e core.Event) { hub.Broadcast(ctx, e) })
	}
	if len(cfg.hooks) > 0 {
		bus.Subscribe(core.EventEntrySubmitted, analytics.NewBridge(cfg.hooks...).Handler())
	}
	if cfg.sink != nil && len(cfg.sink.Endpoints()) > 0 {
		bus.Subscribe(core.EventEntrySubmitted, cfg.sink.Handler())
	}
	return svc
}
