package assoc

import (
	"sync"
	"time"

	"github.com/go-dnp3/dnp3master/master/internal/task"
)

// Poll is one configured periodic read (spec §3 "Poll", §4.4 add_poll).
// The (association address, ID) pair is the external identity; PollSet keys
// directly on ID (spec §9 "Poll identity").
type Poll struct {
	ID       uint64
	Template task.RequestTemplate
	Period   time.Duration
	NextDue  time.Time
}

// PollSet owns the monotonic poll_id counter and the live poll records for
// one association.
type PollSet struct {
	mu      sync.Mutex
	nextID  uint64
	polls   map[uint64]*Poll
}

func NewPollSet() *PollSet {
	return &PollSet{polls: make(map[uint64]*Poll)}
}

// Add registers a new poll due immediately (first run happens as soon as the
// scheduler reaches it) and returns its ID.
func (s *PollSet) Add(tmpl task.RequestTemplate, period time.Duration, now time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.polls[id] = &Poll{ID: id, Template: tmpl, Period: period, NextDue: now}
	return id
}

// Remove is idempotent: removing an unknown or already-removed poll is a
// no-op (spec §4.4 remove_poll).
func (s *PollSet) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.polls, id)
}

// Demand resets the poll's next-due to now; unknown IDs are a no-op (spec
// §4.4 demand_poll).
func (s *PollSet) Demand(id uint64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.polls[id]; ok {
		p.NextDue = now
	}
}

// Reschedule pushes a poll's next-due forward by its period, called once the
// poll's task completes (spec §8 "|actual_period - configured_period| <
// epsilon under no-load").
func (s *PollSet) Reschedule(id uint64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.polls[id]; ok {
		p.NextDue = now.Add(p.Period)
	}
}

// DueBefore returns a copy of every poll whose NextDue has arrived, in
// ascending ID order for a deterministic tie-break (spec §4.3).
func (s *PollSet) DueBefore(now time.Time) []Poll {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []Poll
	for id := uint64(1); id <= s.nextID; id++ {
		if p, ok := s.polls[id]; ok && !p.NextDue.After(now) {
			due = append(due, *p)
		}
	}
	return due
}

// NextDeadline returns the earliest NextDue across all live polls, used by
// the runner to size its idle wait (spec §4.2 step 1).
func (s *PollSet) NextDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var earliest time.Time
	found := false
	for _, p := range s.polls {
		if !found || p.NextDue.Before(earliest) {
			earliest = p.NextDue
			found = true
		}
	}
	return earliest, found
}
