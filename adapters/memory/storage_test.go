package memory

import (
	"context"
	"sync"
	"testing"

	"minesweeper/core"
)

func TestMemoryStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	e, err := s.AddEntry(ctx, "alice", 120, core.DifficultyEasy)
	if err != nil || e.ID != 1 || e.CreatedAt.IsZero() {
		t.Fatalf("got %+v %v", e, err)
	}
	if _, err := s.AddEntry(ctx, "bob", 60, core.DifficultyEasy); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetLeaderboard(ctx, 20, core.DifficultyEasy)
	if len(got) != 2 || got[0].PlayerName != "bob" {
		t.Fatalf("unexpected order: %+v", got)
	}
	hard, _ := s.GetLeaderboard(ctx, 20, core.DifficultyHard)
	if hard == nil || len(hard) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", hard)
	}
}

func TestMemoryStoreConcurrentIDsUnique(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.AddEntry(context.Background(), "p", i+1, core.DifficultyHard)
		}(i)
	}
	wg.Wait()
	got, _ := s.GetLeaderboard(context.Background(), 100, core.DifficultyHard)
	if len(got) != 50 {
		t.Fatalf("want 50 got %d", len(got))
	}
	seen := map[int64]bool{}
	for _, e := range got {
		if seen[e.ID] {
			t.Fatalf("duplicate id %d", e.ID)
		}
		seen[e.ID] = true
	}
}
