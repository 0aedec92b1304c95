package common

import (
	"sync"
	"time"
)

// IDSource issues record ids from the wall clock in Unix milliseconds.
// Two ids issued within the same millisecond are bumped so that ids stay
// unique and strictly increasing for the life of the source.
type IDSource struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDSource returns an IDSource reading the given clock (time.Now if nil).
func NewIDSource(now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{now: now}
}

// Next returns the next id.
func (s *IDSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// Observe raises the floor so ids issued later exceed id.
// Used after loading a collection written by an earlier process.
func (s *IDSource) Observe(id int64) {
	s.mu.Lock()
	if id > s.last {
		s.last = id
	}
	s.mu.Unlock()
}
