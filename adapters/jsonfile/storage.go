package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"minesweeper/core"
	"minesweeper/leaderboard"
)

// Store persists all entries to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	data fileData
	// ranked in-memory view of data.Entries
	boards map[core.Difficulty]*leaderboard.SkipList
}

type fileData struct {
	NextID  int64        `json:"next_id"`
	Entries []core.Entry `json:"entries"`
}

func New(path string) (*Store, error) {
	s := &Store{path: path, boards: map[core.Difficulty]*leaderboard.SkipList{}}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create dir for %s: %w", core.ErrConnection, path, err)
	}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: load %s: %w", core.ErrConnection, path, err)
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, &s.data); err != nil {
		return err
	}
	for _, e := range s.data.Entries {
		if e.ID >= s.data.NextID {
			s.data.NextID = e.ID
		}
		s.board(e.Difficulty).Insert(e)
	}
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) board(d core.Difficulty) *leaderboard.SkipList {
	b, ok := s.boards[d]
	if !ok {
		b = leaderboard.NewSkipList()
		s.boards[d] = b
	}
	return b
}

func (s *Store) AddEntry(_ context.Context, name string, timeSeconds int, difficulty core.Difficulty) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := core.Entry{
		ID:          s.data.NextID + 1,
		PlayerName:  name,
		TimeSeconds: timeSeconds,
		Difficulty:  difficulty,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	s.data.Entries = append(s.data.Entries, e)
	s.data.NextID = e.ID
	if err := s.persist(); err != nil {
		// roll back so memory matches disk
		s.data.Entries = s.data.Entries[:len(s.data.Entries)-1]
		s.data.NextID--
		return core.Entry{}, fmt.Errorf("%w: persist: %w", core.ErrQuery, err)
	}
	s.board(difficulty).Insert(e)
	return e, nil
}

func (s *Store) GetLeaderboard(_ context.Context, limit int, difficulty core.Difficulty) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[difficulty]
	if !ok || limit <= 0 {
		return []core.Entry{}, nil
	}
	return b.TopN(limit), nil
}

// Ping reports whether the directory holding the file is still reachable.
func (s *Store) Ping(context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("%w: %w", core.ErrConnection, err)
	}
	return nil
}
