package engine

import (
	"context"

	"minesweeper/core"
)

// Storage abstracts persistence of leaderboard entries. Implementations assign
// Entry.ID and Entry.CreatedAt and must be safe for concurrent use.
type Storage interface {
	AddEntry(ctx context.Context, name string, timeSeconds int, difficulty core.Difficulty) (core.Entry, error)
	GetLeaderboard(ctx context.Context, limit int, difficulty core.Difficulty) ([]core.Entry, error)
}

// Pinger is implemented by stores that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}
