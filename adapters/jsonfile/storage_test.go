package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"minesweeper/core"
)

func TestStorePersistAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leaderboard.json")

	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if _, err := store.AddEntry(context.Background(), "alice", 300, core.DifficultyMedium); err != nil {
		t.Fatalf("add entry: %v", err)
	}
	bob, err := store.AddEntry(context.Background(), "bob", 100, core.DifficultyMedium)
	if err != nil || bob.ID != 2 {
		t.Fatalf("add entry: id=%d err=%v", bob.ID, err)
	}

	// ensure file written
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s", path)
	}

	// reload
	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	got, err := reloaded.GetLeaderboard(context.Background(), 20, core.DifficultyMedium)
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	if len(got) != 2 || got[0].PlayerName != "bob" || got[1].PlayerName != "alice" {
		t.Fatalf("unexpected entries: %+v", got)
	}

	carol, err := reloaded.AddEntry(context.Background(), "carol", 5, core.DifficultyHard)
	if err != nil || carol.ID != 3 {
		t.Fatalf("ids must continue after reload: id=%d err=%v", carol.ID, err)
	}
}

func TestStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaderboard.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); !errors.Is(err, core.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
}

func TestStorePing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store, err := New(filepath.Join(dir, "leaderboard.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := store.Ping(context.Background()); !errors.Is(err, core.ErrConnection) {
		t.Fatalf("expected ErrConnection once the directory is gone, got %v", err)
	}
}
