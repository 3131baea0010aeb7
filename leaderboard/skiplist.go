package leaderboard

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"

	"minesweeper/core"
)

// A skip list keyed by (time asc, id asc) to achieve O(log n) inserts.

const maxLevel = 16
const pFactor = 0.25

type node struct {
	e    core.Entry
	next [maxLevel]*node
}

type SkipList struct {
	mu   sync.RWMutex
	head *node
	lvl  int
	size int
	rng  *rand.Rand
}

func NewSkipList() *SkipList {
	var seed [16]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		seed = [16]byte{}
	}
	seed1 := binary.BigEndian.Uint64(seed[:8])
	seed2 := binary.BigEndian.Uint64(seed[8:])

	return &SkipList{
		head: &node{},
		lvl:  1,
		rng:  rand.New(rand.NewPCG(seed1, seed2)),
	}
}

func (s *SkipList) randomLevel() int {
	lvl := 1
	for lvl < maxLevel && s.rng.Float64() < pFactor {
		lvl++
	}
	return lvl
}

// less orders faster times first; equal times keep submission order.
func less(a, b core.Entry) bool {
	if a.TimeSeconds == b.TimeSeconds {
		return a.ID < b.ID
	}
	return a.TimeSeconds < b.TimeSeconds
}

// Insert adds e at its rank. Entries are never moved or removed.
func (s *SkipList) Insert(e core.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update := [maxLevel]*node{}
	cur := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for cur.next[i] != nil && less(cur.next[i].e, e) {
			cur = cur.next[i]
		}
		update[i] = cur
	}
	lvl := s.randomLevel()
	if lvl > s.lvl {
		for i := s.lvl; i < lvl; i++ {
			update[i] = s.head
		}
		s.lvl = lvl
	}
	n := &node{e: e}
	for i := 0; i < lvl; i++ {
		n.next[i] = update[i].next[i]
		update[i].next[i] = n
	}
	s.size++
}

// TopN returns up to n entries, fastest first.
func (s *SkipList) TopN(n int) []core.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	if n > s.size {
		n = s.size
	}
	out := make([]core.Entry, 0, n)
	cur := s.head.next[0]
	for cur != nil && len(out) < n {
		out = append(out, cur.e)
		cur = cur.next[0]
	}
	return out
}

func (s *SkipList) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

var _ Board = (*SkipList)(nil)
