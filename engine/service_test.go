package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "minesweeper/adapters/memory"
	"minesweeper/core"
)

type failingStore struct{ calls int }

func (f *failingStore) AddEntry(context.Context, string, int, core.Difficulty) (core.Entry, error) {
	f.calls++
	return core.Entry{}, errors.New("connection reset")
}

func (f *failingStore) GetLeaderboard(context.Context, int, core.Difficulty) ([]core.Entry, error) {
	f.calls++
	return nil, fmt.Errorf("%w: timeout", core.ErrQuery)
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSubmitAndRead(t *testing.T) {
	svc := NewLeaderboardService(mem.New(), NewEventBus(DispatchSync), quietLogger(), 0)
	ctx := context.Background()

	submitted := 0
	svc.Subscribe(core.EventEntrySubmitted, func(ctx context.Context, e core.Event) { submitted++ })

	e, err := svc.Submit(ctx, core.Submission{PlayerName: "Alice", TimeSeconds: 120})
	require.NoError(t, err)
	assert.Equal(t, core.DifficultyEasy, e.Difficulty)
	assert.NotZero(t, e.ID)
	assert.Equal(t, 1, submitted)

	got := svc.Leaderboard(ctx, "")
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].PlayerName)
	assert.Equal(t, DefaultLimit, svc.Limit())
}

func TestSubmitValidationSkipsStorage(t *testing.T) {
	store := &failingStore{}
	svc := NewLeaderboardService(store, NewEventBus(DispatchSync), quietLogger(), 5)

	_, err := svc.Submit(context.Background(), core.Submission{PlayerName: "", TimeSeconds: 50})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.Submit(context.Background(), core.Submission{PlayerName: "bob", TimeSeconds: 0})
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, 0, store.calls)
}

func TestStoreFailuresDegrade(t *testing.T) {
	store := &failingStore{}
	svc := NewLeaderboardService(store, NewEventBus(DispatchSync), quietLogger(), 5)

	_, err := svc.Submit(context.Background(), core.Submission{PlayerName: "bob", TimeSeconds: 9})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrQuery)
	assert.NotErrorIs(t, err, core.ErrValidation)

	got := svc.Leaderboard(context.Background(), core.DifficultyHard)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLeaderboardLimit(t *testing.T) {
	svc := NewLeaderboardService(mem.New(), NewEventBus(DispatchSync), quietLogger(), 3)
	ctx := context.Background()
	for i := 10; i > 0; i-- {
		_, err := svc.Submit(ctx, core.Submission{PlayerName: "p", TimeSeconds: i, Difficulty: core.DifficultyMedium})
		require.NoError(t, err)
	}
	got := svc.Leaderboard(ctx, core.DifficultyMedium)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].TimeSeconds, got[1].TimeSeconds, got[2].TimeSeconds})
}

func TestDefaultDifficultyOption(t *testing.T) {
	svc := NewLeaderboardService(mem.New(), NewEventBus(DispatchSync), quietLogger(), 0,
		WithDefaultDifficulty(core.DifficultyMedium))
	ctx := context.Background()
	assert.Equal(t, core.DifficultyMedium, svc.DefaultDifficulty())

	e, err := svc.Submit(ctx, core.Submission{PlayerName: "zoe", TimeSeconds: 12, Difficulty: "  "})
	require.NoError(t, err)
	assert.Equal(t, core.DifficultyMedium, e.Difficulty)

	require.Len(t, svc.Leaderboard(ctx, ""), 1)
	require.Len(t, svc.Leaderboard(ctx, core.DifficultyMedium), 1)
	assert.Empty(t, svc.Leaderboard(ctx, core.DifficultyEasy))

	// explicit difficulties are untouched
	e, err = svc.Submit(ctx, core.Submission{PlayerName: "amy", TimeSeconds: 9, Difficulty: core.DifficultyHard})
	require.NoError(t, err)
	assert.Equal(t, core.DifficultyHard, e.Difficulty)
}

func TestDefaultDifficultyOptionEmptyKeepsEasy(t *testing.T) {
	svc := NewLeaderboardService(mem.New(), NewEventBus(DispatchSync), quietLogger(), 0,
		WithDefaultDifficulty(""))
	assert.Equal(t, core.DefaultDifficulty, svc.DefaultDifficulty())
}
