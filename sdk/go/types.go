package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Entry mirrors one element of the GET /leaderboard array.
type Entry struct {
	ID          int64  `json:"id"`
	PlayerName  string `json:"player_name"`
	TimeSeconds int    `json:"time_seconds"`
	CreatedAt   string `json:"created_at"`
}

// CreatedAtLayout parses Entry.CreatedAt.
const CreatedAtLayout = "2006-01-02 15:04:05"

// Created parses CreatedAt as UTC.
func (e Entry) Created() (time.Time, error) {
	return time.ParseInLocation(CreatedAtLayout, e.CreatedAt, time.UTC)
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// DifficultyStats mirrors one difficulty in the /stats response.
type DifficultyStats struct {
	Submissions int64   `json:"submissions"`
	BestTime    int     `json:"best_time_seconds"`
	BestPlayer  string  `json:"best_player"`
	AverageTime float64 `json:"average_time_seconds"`
}

// Stats describes the /stats response.
type Stats struct {
	TotalSubmissions int64                      `json:"total_submissions"`
	Difficulties     map[string]DifficultyStats `json:"difficulties"`
	SubmissionsByDay map[string]int64           `json:"submissions_by_day"`
	LastSubmission   *time.Time                 `json:"last_submission,omitempty"`
	GeneratedAt      time.Time                  `json:"generated_at"`
}

type result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("request failed: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

var (
	// ErrEmptyPlayerName is returned before any request when the name is blank.
	ErrEmptyPlayerName = errors.New("player name is required")
	// ErrInvalidBody means the server could not decode the submission.
	ErrInvalidBody = errors.New("invalid body")
	// ErrInvalidParams means the server rejected the submitted values.
	ErrInvalidParams = errors.New("invalid params")
	// ErrServer means the server failed to store the submission.
	ErrServer = errors.New("db error")
)

// SubmitError carries the status and message of a rejected submission. It
// matches ErrInvalidBody, ErrInvalidParams or ErrServer with errors.Is.
type SubmitError struct {
	StatusCode int
	Message    string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit rejected (status %d): %s", e.StatusCode, e.Message)
}

func (e *SubmitError) Is(target error) bool {
	switch target {
	case ErrInvalidBody, ErrInvalidParams, ErrServer:
		return e.Message == target.Error()
	}
	return false
}
