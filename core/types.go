package core

import (
	"strings"
	"time"
)

// Difficulty names a game mode; each difficulty is ranked independently.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DefaultDifficulty is used when a submission or query omits the difficulty.
const DefaultDifficulty = DifficultyEasy

// Column limits of the persisted schema.
const (
	MaxPlayerNameLen = 50
	MaxDifficultyLen = 10
)

// Entry is one persisted leaderboard record. ID and CreatedAt are assigned by
// the store on insert and never taken from a client.
type Entry struct {
	ID          int64      `json:"id"`
	PlayerName  string     `json:"player_name"`
	TimeSeconds int        `json:"time_seconds"`
	Difficulty  Difficulty `json:"difficulty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Submission is a decoded game result that has not been validated yet.
type Submission struct {
	PlayerName  string
	TimeSeconds int
	Difficulty  Difficulty
}

// NormalizeDifficulty trims the tag and substitutes DefaultDifficulty when empty.
func NormalizeDifficulty(d Difficulty) Difficulty {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return DefaultDifficulty
	}
	return Difficulty(s)
}

// ValidateSubmission normalizes the difficulty of s and checks it against the
// entry invariants. The player name is kept as sent; a name that is empty once
// trimmed is rejected. The returned error is always a *ValidationError.
func ValidateSubmission(s Submission) (Submission, error) {
	s.Difficulty = NormalizeDifficulty(s.Difficulty)

	switch {
	case strings.TrimSpace(s.PlayerName) == "":
		return Submission{}, &ValidationError{Field: "player_name", Reason: "must not be empty"}
	case len(s.PlayerName) > MaxPlayerNameLen:
		return Submission{}, &ValidationError{Field: "player_name", Reason: "too long"}
	case s.TimeSeconds <= 0:
		return Submission{}, &ValidationError{Field: "time_seconds", Reason: "must be positive"}
	case len(s.Difficulty) > MaxDifficultyLen:
		return Submission{}, &ValidationError{Field: "difficulty", Reason: "too long"}
	}
	return s, nil
}
