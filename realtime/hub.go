// Package realtime fans accepted leaderboard entries out to live listeners.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"minesweeper/core"
)

type subscriber struct {
	ch    chan core.Event
	board map[core.Difficulty]struct{}
}

// wants reports whether the subscriber listens to d; no boards means all.
func (s subscriber) wants(d core.Difficulty) bool {
	if len(s.board) == 0 {
		return true
	}
	_, ok := s.board[d]
	return ok
}

// Hub broadcasts entry events to buffered subscriber channels.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]subscriber
	next    int
	dropped atomic.Int64
}

func NewHub() *Hub { return &Hub{subs: map[int]subscriber{}} }

// Subscribe registers a listener with the given channel buffer. When
// difficulties are given only entries on those boards are delivered; empty
// tags normalize to core.DefaultDifficulty.
func (h *Hub) Subscribe(buffer int, difficulties ...core.Difficulty) (int, <-chan core.Event) {
	sub := subscriber{ch: make(chan core.Event, buffer)}
	if len(difficulties) > 0 {
		sub.board = make(map[core.Difficulty]struct{}, len(difficulties))
		for _, d := range difficulties {
			sub.board[core.NormalizeDifficulty(d)] = struct{}{}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.subs[h.next] = sub
	return h.next, sub.ch
}

// Unsubscribe removes the listener and closes its channel. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped counts events lost to full subscriber buffers.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Broadcast delivers ev to every interested subscriber without blocking; a
// subscriber whose buffer is full misses the event.
func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.wants(ev.Entry.Difficulty) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// EncodeEvent renders ev as the JSON frame sent to stream clients.
func EncodeEvent(ev core.Event) ([]byte, error) {
	return json.Marshal(ev)
}
