package network

import (
	"sync"
	"time"
)

// Stats counts what a running listener has seen. Safe for concurrent use;
// all methods tolerate a nil receiver so wiring it up is optional.
type Stats struct {
	mu           sync.Mutex
	started      time.Time
	received     uint64
	dispatched   uint64
	authFailures uint64
	lastMessage  time.Time
}

// Snapshot is a point-in-time copy of listener counters.
type Snapshot struct {
	Started      time.Time
	Received     uint64
	Dispatched   uint64
	AuthFailures uint64
	LastMessage  time.Time
}

func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

func (s *Stats) MessageReceived() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received++
	s.lastMessage = time.Now()
}

func (s *Stats) Dispatched() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatched++
}

func (s *Stats) AuthFailure() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authFailures++
}

func (s *Stats) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Started:      s.started,
		Received:     s.received,
		Dispatched:   s.dispatched,
		AuthFailures: s.authFailures,
		LastMessage:  s.lastMessage,
	}
}
