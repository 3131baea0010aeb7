package analytics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minesweeper/core"
)

func submitted(name string, secs int, d core.Difficulty, at time.Time) core.Event {
	ev := core.NewEntrySubmitted(core.Entry{PlayerName: name, TimeSeconds: secs, Difficulty: d})
	ev.Time = at
	return ev
}

func TestStats_OnEvent(t *testing.T) {
	stats := NewStats()
	day1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	stats.OnEvent(submitted("alice", 120, core.DifficultyEasy, day1))
	stats.OnEvent(submitted("bob", 90, core.DifficultyEasy, day1))
	stats.OnEvent(submitted("carol", 400, core.DifficultyHard, day2))
	stats.OnEvent(core.Event{Type: "unrelated", Time: day2})

	assert.Equal(t, int64(3), stats.Total())
	assert.Equal(t, int64(2), stats.SubmissionsOn("2024-01-01"))
	assert.Equal(t, int64(1), stats.SubmissionsOn("2024-01-02"))

	snap := stats.Snapshot()
	easy := snap.Difficulties[core.DifficultyEasy]
	assert.Equal(t, int64(2), easy.Submissions)
	assert.Equal(t, 90, easy.BestTime)
	assert.Equal(t, "bob", easy.BestPlayer)
	assert.InDelta(t, 105.0, easy.AverageTime, 0.001)
	assert.Equal(t, 400, snap.Difficulties[core.DifficultyHard].BestTime)
	require.NotNil(t, snap.LastSubmission)
	assert.Equal(t, day2, *snap.LastSubmission)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, snap.Days())
}

func TestStats_SnapshotIsCopy(t *testing.T) {
	stats := NewStats()
	stats.OnEvent(submitted("a", 10, core.DifficultyEasy, time.Now()))
	snap := stats.Snapshot()
	stats.OnEvent(submitted("b", 5, core.DifficultyEasy, time.Now()))

	assert.Equal(t, int64(1), snap.Difficulties[core.DifficultyEasy].Submissions)
	assert.Equal(t, int64(2), stats.Snapshot().Difficulties[core.DifficultyEasy].Submissions)
}

func TestDailyPlayers(t *testing.T) {
	d := NewDailyPlayers()
	at := time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC)
	d.OnEvent(submitted("alice", 1, core.DifficultyEasy, at))
	d.OnEvent(submitted("alice", 2, core.DifficultyHard, at))
	d.OnEvent(submitted("bob", 3, core.DifficultyEasy, at))
	assert.Equal(t, 2, d.Count("2024-03-03"))
	assert.Equal(t, 0, d.Count("2024-03-04"))
}

func TestBridgeHandler(t *testing.T) {
	stats := NewStats()
	players := NewDailyPlayers()
	handler := NewBridge(stats, players).Handler()

	at := time.Now().UTC()
	handler(context.Background(), submitted("zed", 42, core.DifficultyMedium, at))
	assert.Equal(t, int64(1), stats.Total())
	assert.Equal(t, 1, players.Count(at.Format(dayLayout)))
}

func TestHTTPExporter(t *testing.T) {
	var got Snapshot
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
	}))
	defer srv.Close()

	stats := NewStats()
	stats.OnEvent(submitted("a", 10, core.DifficultyEasy, time.Now()))

	exp := NewHTTPExporter(srv.URL, "k1")
	require.NoError(t, exp.Export(context.Background(), stats.Snapshot()))
	assert.Equal(t, "Bearer k1", auth)
	assert.Equal(t, int64(1), got.TotalSubmissions)
	assert.NoError(t, exp.Close())
}

func TestHTTPExporter_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewHTTPExporter(srv.URL, "").Export(context.Background(), NewStats().Snapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

type countingExporter struct{ n atomic.Int32 }

func (c *countingExporter) Export(context.Context, Snapshot) error { c.n.Add(1); return nil }
func (c *countingExporter) Close() error                           { return nil }

func TestRunExport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exp := &countingExporter{}
	done := make(chan struct{})
	go func() {
		RunExport(ctx, NewStats(), NewMultiExporter(exp, NewLogExporter(nil)), 5*time.Millisecond, nil)
		close(done)
	}()

	require.Eventually(t, func() bool { return exp.n.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
