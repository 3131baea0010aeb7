package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"minesweeper/core"
	"minesweeper/leaderboard"
)

// Store is a concurrent in-memory Storage implementation backed by one
// skip list per difficulty.
type Store struct {
	boards sync.Map // map[core.Difficulty]*leaderboard.SkipList
	seq    atomic.Int64
	now    func() time.Time
}

func New() *Store { return &Store{now: func() time.Time { return time.Now().UTC() }} }

func (s *Store) board(d core.Difficulty) *leaderboard.SkipList {
	if v, ok := s.boards.Load(d); ok {
		return v.(*leaderboard.SkipList)
	}
	actual, _ := s.boards.LoadOrStore(d, leaderboard.NewSkipList())
	return actual.(*leaderboard.SkipList)
}

func (s *Store) AddEntry(_ context.Context, name string, timeSeconds int, difficulty core.Difficulty) (core.Entry, error) {
	e := core.Entry{
		ID:          s.seq.Add(1),
		PlayerName:  name,
		TimeSeconds: timeSeconds,
		Difficulty:  difficulty,
		CreatedAt:   s.now().Truncate(time.Second),
	}
	s.board(difficulty).Insert(e)
	return e, nil
}

func (s *Store) GetLeaderboard(_ context.Context, limit int, difficulty core.Difficulty) ([]core.Entry, error) {
	if limit <= 0 {
		return []core.Entry{}, nil
	}
	v, ok := s.boards.Load(difficulty)
	if !ok {
		return []core.Entry{}, nil
	}
	return v.(*leaderboard.SkipList).TopN(limit), nil
}

func (s *Store) Ping(context.Context) error { return nil }

var _ interface {
	AddEntry(context.Context, string, int, core.Difficulty) (core.Entry, error)
	GetLeaderboard(context.Context, int, core.Difficulty) ([]core.Entry, error)
} = (*Store)(nil)
