// Package codec converts between the JSON wire format of the leaderboard API
// and core values.
//
// Decoding handles only the flat, known-shape objects this API accepts: a
// single JSON object whose fields of interest are scalars. Nested values are
// reported as type errors rather than interpreted.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"minesweeper/core"
)

// CreatedAtLayout is the wire form of Entry.CreatedAt.
const CreatedAtLayout = "2006-01-02 15:04:05"

var (
	// ErrMalformed is returned when the body is not a single JSON object.
	ErrMalformed = errors.New("codec: body is not a JSON object")
	// ErrType is returned when a field holds a value of the wrong type.
	ErrType = errors.New("codec: field has wrong type")
)

func parseObject(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, ErrMalformed
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return gjson.Result{}, ErrMalformed
	}
	return doc, nil
}

func stringField(doc gjson.Result, key string) (string, error) {
	v := doc.Get(gjson.Escape(key))
	switch v.Type {
	case gjson.Null:
		return "", nil
	case gjson.String:
		return v.Str, nil
	default:
		return "", fmt.Errorf("%w: %s must be a string", ErrType, key)
	}
}

func intField(doc gjson.Result, key string) (int, error) {
	v := doc.Get(gjson.Escape(key))
	switch v.Type {
	case gjson.Null:
		return 0, nil
	case gjson.Number:
		n, err := strconv.Atoi(v.Raw)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrType, key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer", ErrType, key)
	}
}

// DecodeString returns the string value stored under key. A missing or null
// key yields "". The first occurrence wins when a key is repeated.
func DecodeString(body []byte, key string) (string, error) {
	doc, err := parseObject(body)
	if err != nil {
		return "", err
	}
	return stringField(doc, key)
}

// DecodeInt returns the integer value stored under key. A missing or null key
// yields 0; fractions, exponents and strings are rejected.
func DecodeInt(body []byte, key string) (int, error) {
	doc, err := parseObject(body)
	if err != nil {
		return 0, err
	}
	return intField(doc, key)
}

// DecodeSubmission decodes a POST /leaderboard body. Unknown keys are ignored.
// The result is not validated; see core.ValidateSubmission.
func DecodeSubmission(body []byte) (core.Submission, error) {
	doc, err := parseObject(body)
	if err != nil {
		return core.Submission{}, err
	}
	name, err := stringField(doc, "player_name")
	if err != nil {
		return core.Submission{}, err
	}
	secs, err := intField(doc, "time_seconds")
	if err != nil {
		return core.Submission{}, err
	}
	diff, err := stringField(doc, "difficulty")
	if err != nil {
		return core.Submission{}, err
	}
	return core.Submission{PlayerName: name, TimeSeconds: secs, Difficulty: core.Difficulty(diff)}, nil
}

type entryJSON struct {
	ID          int64  `json:"id"`
	PlayerName  string `json:"player_name"`
	TimeSeconds int    `json:"time_seconds"`
	CreatedAt   string `json:"created_at"`
}

// EncodeEntries renders entries as the GET /leaderboard response array.
// A nil or empty slice encodes as [].
func EncodeEntries(entries []core.Entry) ([]byte, error) {
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON{
			ID:          e.ID,
			PlayerName:  e.PlayerName,
			TimeSeconds: e.TimeSeconds,
			CreatedAt:   e.CreatedAt.UTC().Format(CreatedAtLayout),
		})
	}
	return json.Marshal(out)
}

// Result is the acknowledgement body of POST /leaderboard.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// EncodeResult renders a Result; msg is only included on failure.
func EncodeResult(success bool, msg string) []byte {
	r := Result{Success: success}
	if !success {
		r.Error = msg
	}
	b, _ := json.Marshal(r)
	return b
}
