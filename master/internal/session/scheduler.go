// Package session implements the per-channel session runner, scheduler, and
// connection supervisor of spec §4.1/§4.2/§4.3: the cooperative,
// single-threaded loop that multiplexes every kind of task against one
// half-duplex transport. Grounded on the reconnect/run loop in
// `_examples/original_source/src/master/tcp/mod.rs` and on the channel-based
// goroutine supervision style of `_examples/marmos91-dittofs`'s server
// command (errgroup-driven lifecycle).
package session

import (
	"time"

	"github.com/go-dnp3/dnp3master/master/internal/assoc"
	"github.com/go-dnp3/dnp3master/master/internal/task"
)

// Scheduler selects the next runnable task across every association on a
// channel, honoring the priority order of spec §4.3: armed automatic
// reactions, then user requests round-robin per association, then due
// polls, then keep-alive.
type Scheduler struct {
	order   []uint16 // association addresses, insertion order (tie-break)
	byAddr  map[uint16]*assoc.Association
	rrIndex int
}

func NewScheduler() *Scheduler {
	return &Scheduler{byAddr: make(map[uint16]*assoc.Association)}
}

func (s *Scheduler) Add(a *assoc.Association) {
	if _, exists := s.byAddr[a.Address]; exists {
		return
	}
	s.order = append(s.order, a.Address)
	s.byAddr[a.Address] = a
}

// Remove drops the association from scheduling after the caller has called
// its Remove() to drain pending work with AssociationRemoved.
func (s *Scheduler) Remove(address uint16) {
	delete(s.byAddr, address)
	for i, addr := range s.order {
		if addr == address {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Scheduler) Get(address uint16) (*assoc.Association, bool) {
	a, ok := s.byAddr[address]
	return a, ok
}

func (s *Scheduler) Associations() []*assoc.Association {
	out := make([]*assoc.Association, 0, len(s.order))
	for _, addr := range s.order {
		if a, ok := s.byAddr[addr]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Next returns the highest-priority task ready to run, along with its owning
// association, or ok=false if nothing is runnable right now.
func (s *Scheduler) Next(now time.Time) (t task.Task, owner *assoc.Association, ok bool) {
	assocs := s.Associations()

	// 1. Automatic reactions, in address order (deterministic tie-break).
	for _, a := range assocs {
		if t, _, ok := a.NextAutoTask(); ok {
			return t, a, true
		}
	}

	// 2. User requests, round-robin across associations.
	if n := len(assocs); n > 0 {
		for i := 0; i < n; i++ {
			idx := (s.rrIndex + i) % n
			a := assocs[idx]
			if t, ok := a.NextUserRequest(); ok {
				s.rrIndex = (idx + 1) % n
				return t, a, true
			}
		}
	}

	// 3. Due periodic polls.
	for _, a := range assocs {
		due := a.DuePolls(now)
		if len(due) > 0 {
			return due[0], a, true
		}
	}

	// 4. Keep-alive.
	for _, a := range assocs {
		if a.NeedsKeepAlive(now) {
			return a.BuildKeepAliveTask(now), a, true
		}
	}

	return nil, nil, false
}

// NextDeadline returns the earliest instant at which the scheduler expects
// new work to become runnable — the minimum of every association's next
// poll deadline and keep-alive deadline — so the runner can size its idle
// wait (spec §4.2 step 1, §4.3 "the runner waits on the minimum").
func (s *Scheduler) NextDeadline(now time.Time) (time.Time, bool) {
	var earliest time.Time
	found := false
	consider := func(t time.Time) {
		if !found || t.Before(earliest) {
			earliest = t
			found = true
		}
	}
	for _, a := range s.Associations() {
		if d, ok := a.Polls.NextDeadline(); ok {
			consider(d)
		}
		if d, ok := a.NextKeepAliveDeadline(); ok {
			consider(d)
		}
	}
	return earliest, found
}
