package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"minesweeper/core"
)

// DefaultLimit caps the number of entries returned by a leaderboard read.
const DefaultLimit = 20

// LeaderboardService sits between the HTTP layer and a Storage. Store failures
// stop here: reads degrade to an empty list and writes to an ErrQuery.
type LeaderboardService struct {
	storage    Storage
	bus        *EventBus
	logger     *slog.Logger
	limit      int
	difficulty core.Difficulty
}

// ServiceOption configures a LeaderboardService.
type ServiceOption func(*LeaderboardService)

// WithDefaultDifficulty sets the difficulty used when a submission or read
// omits one. An empty d keeps core.DefaultDifficulty.
func WithDefaultDifficulty(d core.Difficulty) ServiceOption {
	return func(s *LeaderboardService) { s.difficulty = core.NormalizeDifficulty(d) }
}

func NewLeaderboardService(storage Storage, bus *EventBus, logger *slog.Logger, limit int, opts ...ServiceOption) *LeaderboardService {
	if storage == nil || bus == nil {
		panic("NewLeaderboardService requires non-nil storage and bus")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	s := &LeaderboardService{
		storage:    storage,
		bus:        bus,
		logger:     logger,
		limit:      limit,
		difficulty: core.DefaultDifficulty,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Limit is the maximum number of entries Leaderboard returns.
func (s *LeaderboardService) Limit() int { return s.limit }

// DefaultDifficulty is the difficulty applied when a caller leaves it empty.
func (s *LeaderboardService) DefaultDifficulty() core.Difficulty { return s.difficulty }

func (s *LeaderboardService) normalize(d core.Difficulty) core.Difficulty {
	if strings.TrimSpace(string(d)) == "" {
		return s.difficulty
	}
	return core.NormalizeDifficulty(d)
}

// Subscribe convenience method.
func (s *LeaderboardService) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *LeaderboardService) Publish(ctx context.Context, ev core.Event) {
	s.bus.Publish(ctx, ev)
}

// Submit validates and persists a game result. Invalid input returns a
// *core.ValidationError without touching storage; store failures are logged
// and returned wrapped in core.ErrQuery.
func (s *LeaderboardService) Submit(ctx context.Context, sub core.Submission) (core.Entry, error) {
	sub.Difficulty = s.normalize(sub.Difficulty)
	valid, err := core.ValidateSubmission(sub)
	if err != nil {
		s.logger.DebugContext(ctx, "submission rejected", "error", err)
		return core.Entry{}, err
	}
	entry, err := s.storage.AddEntry(ctx, valid.PlayerName, valid.TimeSeconds, valid.Difficulty)
	if err != nil {
		s.logger.ErrorContext(ctx, "add entry failed",
			"difficulty", valid.Difficulty,
			"error", err)
		if !errors.Is(err, core.ErrQuery) {
			err = fmt.Errorf("%w: %w", core.ErrQuery, err)
		}
		return core.Entry{}, err
	}
	s.bus.Publish(ctx, core.NewEntrySubmitted(entry))
	return entry, nil
}

// Leaderboard returns the best entries for difficulty, fastest first. It never
// fails: a store error is logged and yields an empty list.
func (s *LeaderboardService) Leaderboard(ctx context.Context, difficulty core.Difficulty) []core.Entry {
	difficulty = s.normalize(difficulty)
	entries, err := s.storage.GetLeaderboard(ctx, s.limit, difficulty)
	if err != nil {
		s.logger.ErrorContext(ctx, "get leaderboard failed",
			"difficulty", difficulty,
			"error", err)
		return []core.Entry{}
	}
	if len(entries) > s.limit {
		entries = entries[:s.limit]
	}
	if entries == nil {
		entries = []core.Entry{}
	}
	return entries
}

// Ping reports storage liveness when the store supports it.
func (s *LeaderboardService) Ping(ctx context.Context) error {
	if p, ok := s.storage.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *LeaderboardService) Close() { s.bus.Close() }
