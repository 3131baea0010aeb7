package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"minesweeper/core"
)

// EventHeader carries the event type on every delivery.
const EventHeader = "X-Minesweeper-Event"

// Sink posts domain events to configured HTTP endpoints.
// It is synchronous for determinism; run it on an async event bus to keep
// submissions fast.
type Sink struct {
	client    *http.Client
	endpoints []string
	logger    *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout sets the per-delivery timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.client = &http.Client{Timeout: d}
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a webhook sink.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client: &http.Client{Timeout: 2 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

// Endpoints returns a copy of the configured endpoints.
func (s *Sink) Endpoints() []string { return append([]string{}, s.endpoints...) }

// OnEvent posts the event JSON to all endpoints. Delivery failures are
// logged and never reach the submitter.
func (s *Sink) OnEvent(e core.Event) {
	s.Deliver(context.Background(), e)
}

// Deliver is OnEvent with a caller context; it returns the number of
// endpoints that answered 2xx.
func (s *Sink) Deliver(ctx context.Context, e core.Event) int {
	if len(s.endpoints) == 0 {
		return 0
	}
	body, err := json.Marshal(e)
	if err != nil {
		s.logger.WarnContext(ctx, "webhook encode failed", "error", err)
		return 0
	}
	ok := 0
	for _, ep := range s.endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep, bytes.NewReader(body))
		if err != nil {
			s.logger.WarnContext(ctx, "webhook request invalid", "endpoint", ep, "error", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(EventHeader, string(e.Type))
		resp, err := s.client.Do(req)
		if err != nil {
			s.logger.WarnContext(ctx, "webhook delivery failed", "endpoint", ep, "error", err)
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= 300 {
			s.logger.WarnContext(ctx, "webhook rejected", "endpoint", ep, "status", resp.StatusCode)
			continue
		}
		ok++
	}
	return ok
}

// Handler adapts the sink to an event bus subscription. Delivery outlives the
// publishing request: cancellation of ctx does not abort it.
func (s *Sink) Handler() func(context.Context, core.Event) {
	return func(ctx context.Context, e core.Event) { s.Deliver(context.WithoutCancel(ctx), e) }
}
