package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	wsadapter "minesweeper/adapters/websocket"
	"minesweeper/analytics"
	"minesweeper/codec"
	"minesweeper/core"
	"minesweeper/engine"
	"minesweeper/realtime"
)

// Error strings carried in {"success":false,"error":...} bodies.
const (
	errInvalidBody   = "invalid body"
	errInvalidParams = "invalid params"
	errDB            = "db error"
)

// DefaultMaxBodyBytes caps POST bodies when Options.MaxBodyBytes is unset.
const DefaultMaxBodyBytes int64 = 1 << 16

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client IP.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// MaxBodyBytes limits request bodies; zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// HealthTimeout bounds the storage ping behind /healthz.
	HealthTimeout time.Duration
	// Logger receives access logs; defaults to slog.Default().
	Logger *slog.Logger
}

// NewMux builds an http.Handler exposing the leaderboard API.
// Routes:
//   - GET  {prefix}/leaderboard?difficulty=easy
//   - POST {prefix}/leaderboard
//   - GET  {prefix}/healthz
//   - GET  {prefix}/stats (when stats is non-nil)
//   - WS   {prefix}/ws (when hub is non-nil)
func NewMux(svc *engine.LeaderboardService, hub *realtime.Hub, stats *analytics.Stats, opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/leaderboard"), func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			getLeaderboard(w, r, svc)
		case http.MethodPost:
			postLeaderboard(w, r, svc, opts.MaxBodyBytes)
		default:
			w.Header().Set("Allow", "GET, POST")
			writeResult(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/healthz"), func(w http.ResponseWriter, r *http.Request) {
		healthCheck(w, r, svc, opts.HealthTimeout)
	})

	if stats != nil {
		mux.HandleFunc(withPrefix(opts.PathPrefix, "/stats"), func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				w.Header().Set("Allow", "GET")
				writeResult(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			writeJSON(w, http.StatusOK, stats.Snapshot())
		})
	}

	// WebSocket events
	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	handler = withAccessLog(handler, logger)
	handler = withRequestID(handler)
	return handler
}

func getLeaderboard(w http.ResponseWriter, r *http.Request, svc *engine.LeaderboardService) {
	// an absent or empty ?difficulty= reads the service's default board
	difficulty := core.Difficulty(r.URL.Query().Get("difficulty"))
	body, err := codec.EncodeEntries(svc.Leaderboard(r.Context(), difficulty))
	if err != nil {
		// entries come from our own storage; this only fails on a bug
		body = []byte("[]")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func postLeaderboard(w http.ResponseWriter, r *http.Request, svc *engine.LeaderboardService, maxBytes int64) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeResult(w, http.StatusRequestEntityTooLarge, errInvalidBody)
			return
		}
		writeResult(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	sub, err := codec.DecodeSubmission(body)
	if err != nil {
		writeResult(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if _, err := svc.Submit(r.Context(), sub); err != nil {
		if errors.Is(err, core.ErrValidation) {
			writeResult(w, http.StatusBadRequest, errInvalidParams)
			return
		}
		writeResult(w, http.StatusInternalServerError, errDB)
		return
	}
	writeResult(w, http.StatusOK, "")
}

// healthCheck verifies the service is working properly
func healthCheck(w http.ResponseWriter, r *http.Request, svc *engine.LeaderboardService, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}
	code := http.StatusOK
	if err := svc.Ping(ctx); err != nil {
		code = http.StatusServiceUnavailable
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	}
	writeJSON(w, code, status)
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeResult writes the {"success":...} envelope; an empty msg means success.
func writeResult(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(codec.EncodeResult(msg == "", msg))
}
