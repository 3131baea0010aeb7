package analytics

import (
	"sort"
	"sync"
	"time"

	"minesweeper/core"
)

const dayLayout = "2006-01-02"

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// DailyPlayers tracks distinct player names per UTC day.
type DailyPlayers struct {
	mu   sync.Mutex
	days map[string]map[string]struct{}
}

func NewDailyPlayers() *DailyPlayers { return &DailyPlayers{days: map[string]map[string]struct{}{}} }

func (d *DailyPlayers) OnEvent(e core.Event) {
	if e.Type != core.EventEntrySubmitted {
		return
	}
	day := e.Time.UTC().Format(dayLayout)
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.days[day]
	if m == nil {
		m = map[string]struct{}{}
		d.days[day] = m
	}
	m[e.Entry.PlayerName] = struct{}{}
}

func (d *DailyPlayers) Count(day string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.days[day])
}

// DifficultyStats summarizes accepted entries for one difficulty.
type DifficultyStats struct {
	Submissions int64   `json:"submissions"`
	BestTime    int     `json:"best_time_seconds"`
	BestPlayer  string  `json:"best_player"`
	AverageTime float64 `json:"average_time_seconds"`

	totalTime int64
}

// Snapshot is a point-in-time copy of Stats, served at /stats.
type Snapshot struct {
	TotalSubmissions int64                               `json:"total_submissions"`
	Difficulties     map[core.Difficulty]DifficultyStats `json:"difficulties"`
	SubmissionsByDay map[string]int64                    `json:"submissions_by_day"`
	LastSubmission   *time.Time                          `json:"last_submission,omitempty"`
	GeneratedAt      time.Time                           `json:"generated_at"`
}

// Stats aggregates accepted submissions. It holds counters only; the
// leaderboard itself stays in storage.
type Stats struct {
	mu     sync.RWMutex
	total  int64
	byDiff map[core.Difficulty]*DifficultyStats
	byDay  map[string]int64
	last   time.Time
	now    func() time.Time
}

func NewStats() *Stats {
	return &Stats{
		byDiff: map[core.Difficulty]*DifficultyStats{},
		byDay:  map[string]int64{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Stats) OnEvent(e core.Event) {
	if e.Type != core.EventEntrySubmitted {
		return
	}
	when := e.Time
	if when.IsZero() {
		when = s.now()
	}
	entry := e.Entry

	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.byDay[when.UTC().Format(dayLayout)]++
	if when.After(s.last) {
		s.last = when
	}

	ds := s.byDiff[entry.Difficulty]
	if ds == nil {
		ds = &DifficultyStats{BestTime: entry.TimeSeconds, BestPlayer: entry.PlayerName}
		s.byDiff[entry.Difficulty] = ds
	}
	ds.Submissions++
	ds.totalTime += int64(entry.TimeSeconds)
	if entry.TimeSeconds < ds.BestTime {
		ds.BestTime = entry.TimeSeconds
		ds.BestPlayer = entry.PlayerName
	}
	ds.AverageTime = float64(ds.totalTime) / float64(ds.Submissions)
}

// Total returns the number of accepted submissions seen.
func (s *Stats) Total() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

func (s *Stats) SubmissionsOn(day string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byDay[day]
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		TotalSubmissions: s.total,
		Difficulties:     make(map[core.Difficulty]DifficultyStats, len(s.byDiff)),
		SubmissionsByDay: make(map[string]int64, len(s.byDay)),
		GeneratedAt:      s.now(),
	}
	for d, ds := range s.byDiff {
		snap.Difficulties[d] = *ds
	}
	for day, n := range s.byDay {
		snap.SubmissionsByDay[day] = n
	}
	if !s.last.IsZero() {
		last := s.last
		snap.LastSubmission = &last
	}
	return snap
}

// Days returns the days with submissions, oldest first.
func (s Snapshot) Days() []string {
	days := make([]string, 0, len(s.SubmissionsByDay))
	for d := range s.SubmissionsByDay {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}
