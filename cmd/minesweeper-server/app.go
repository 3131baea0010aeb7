package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"minesweeper/adapters/jsonfile"
	mem "minesweeper/adapters/memory"
	redisAdapter "minesweeper/adapters/redis"
	sqlxAdapter "minesweeper/adapters/sqlx"
	"minesweeper/analytics"
	"minesweeper/api/httpapi"
	"minesweeper/config"
	"minesweeper/engine"
	"minesweeper/integrations/webhook"
	"minesweeper/realtime"
	"minesweeper/scoreboard"
)

// configFileEnv names a JSON or YAML config file to load instead of defaults.
const configFileEnv = "MINESWEEPER_CONFIG_FILE"

// App aggregates the assembled server components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Hub      *realtime.Hub
	Stats    *analytics.Stats
	Exporter analytics.Exporter
	Service  *engine.LeaderboardService
	Handler  http.Handler
	Server   *http.Server
}

func provideConfig(ctx context.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	if path := os.Getenv(configFileEnv); path != "" {
		return config.LoadFromFile(path)
	}
	if profile := os.Getenv("MINESWEEPER_PROFILE"); profile != "" {
		return config.LoadProfile(profile)
	}
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg, nil)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideStats(cfg *config.Config) *analytics.Stats {
	if !cfg.Analytics.Enabled {
		return nil
	}
	return analytics.NewStats()
}

func provideExporter(cfg *config.Config, logger *slog.Logger) analytics.Exporter {
	if !cfg.Analytics.Enabled || cfg.Analytics.ExportInterval <= 0 {
		return nil
	}
	exporters := []analytics.Exporter{analytics.NewLogExporter(logger)}
	if cfg.Analytics.ExportEndpoint != "" {
		exporters = append(exporters, analytics.NewHTTPExporter(cfg.Analytics.ExportEndpoint, cfg.Analytics.ExportAPIKey))
	}
	return analytics.NewMultiExporter(exporters...)
}

func provideWebhooks(cfg *config.Config, logger *slog.Logger) *webhook.Sink {
	return webhook.New(cfg.Webhooks.Endpoints,
		webhook.WithTimeout(cfg.Webhooks.Timeout),
		webhook.WithLogger(logger))
}

func provideStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.Storage, func(), error) {
	storage, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if c, ok := storage.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn("closing storage", "error", err)
			}
		}
	}
	return storage, cleanup, nil
}

func provideService(cfg *config.Config, logger *slog.Logger, hub *realtime.Hub, stats *analytics.Stats, sink *webhook.Sink, storage engine.Storage) (*engine.LeaderboardService, func()) {
	opts := []scoreboard.Option{
		scoreboard.WithStorage(storage),
		scoreboard.WithRealtime(hub),
		scoreboard.WithDispatchMode(dispatchMode(cfg)),
		scoreboard.WithLogger(logger),
		scoreboard.WithLimit(cfg.Leaderboard.Limit),
		scoreboard.WithDefaultDifficulty(cfg.Leaderboard.DefaultDifficulty),
		scoreboard.WithWebhooks(sink),
	}
	if stats != nil {
		opts = append(opts, scoreboard.WithStats(stats))
	}
	svc := scoreboard.New(opts...)
	return svc, svc.Close
}

// dispatchMode keeps webhook delivery off the request path: configured
// endpoints always get an async bus.
func dispatchMode(cfg *config.Config) engine.DispatchMode {
	if cfg.Leaderboard.AsyncEvents || len(cfg.Webhooks.Endpoints) > 0 {
		return engine.DispatchAsync
	}
	return engine.DispatchSync
}

func provideHandler(svc *engine.LeaderboardService, hub *realtime.Hub, stats *analytics.Stats, cfg *config.Config, logger *slog.Logger) http.Handler {
	if !cfg.Server.EnableWebSocket {
		hub = nil
	}
	return httpapi.NewMux(svc, hub, stats, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		Logger:           logger,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration. A nil w selects
// the configured output.
func setupLogging(cfg *config.Config, w io.Writer) *slog.Logger {
	var handler slog.Handler

	if w == nil {
		w = os.Stdout
		if cfg.Logging.Output == "stderr" {
			w = os.Stderr
		}
	}

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	var result []slog.Attr
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the appropriate storage adapter based on configuration.
// Connection and schema failures are returned as core.ErrConnection and
// core.ErrSchema.
func setupStorage(_ context.Context, cfg *config.Config, logger *slog.Logger) (engine.Storage, error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), nil
	case "redis":
		return redisAdapter.New(cfg.Storage.Redis)
	case "sql":
		return sqlxAdapter.New(cfg.Storage.SQL, sqlxAdapter.WithLogger(logger))
	case "file":
		return jsonfile.New(cfg.Storage.File.Path)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}
