package assoc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-dnp3/dnp3master/master/internal/task"
)

func TestPollSetAddIsDueImmediately(t *testing.T) {
	s := NewPollSet()
	now := time.Unix(1000, 0)

	id := s.Add(task.ClassesRequest{}, time.Minute, now)
	require.EqualValues(t, 1, id)

	due := s.DueBefore(now)
	require.Len(t, due, 1)
	require.Equal(t, id, due[0].ID)
}

func TestPollSetRescheduleMovesNextDueForward(t *testing.T) {
	s := NewPollSet()
	now := time.Unix(1000, 0)
	id := s.Add(task.ClassesRequest{}, time.Minute, now)

	s.Reschedule(id, now)

	require.Empty(t, s.DueBefore(now), "just-rescheduled poll is not due until its period elapses")
	require.Len(t, s.DueBefore(now.Add(time.Minute)), 1)
}

func TestPollSetDemandForcesImmediateDue(t *testing.T) {
	s := NewPollSet()
	now := time.Unix(1000, 0)
	id := s.Add(task.ClassesRequest{}, time.Minute, now)
	s.Reschedule(id, now)
	require.Empty(t, s.DueBefore(now))

	s.Demand(id, now)
	require.Len(t, s.DueBefore(now), 1, "demand_poll overrides the schedule")
}

func TestPollSetRemoveIsIdempotent(t *testing.T) {
	s := NewPollSet()
	now := time.Unix(1000, 0)
	id := s.Add(task.ClassesRequest{}, time.Minute, now)

	s.Remove(id)
	require.Empty(t, s.DueBefore(now))

	require.NotPanics(t, func() { s.Remove(id) }, "removing twice is a no-op")
	require.NotPanics(t, func() { s.Demand(999, now) }, "demand on unknown id is a no-op")
}

func TestPollSetNextDeadlineIsEarliestAcrossPolls(t *testing.T) {
	s := NewPollSet()
	now := time.Unix(1000, 0)

	_, ok := s.NextDeadline()
	require.False(t, ok, "no polls registered yet")

	id1 := s.Add(task.ClassesRequest{}, time.Minute, now)
	s.Reschedule(id1, now) // due at now+1m

	id2 := s.Add(task.ClassesRequest{}, 30*time.Second, now.Add(10*time.Second))
	s.Reschedule(id2, now.Add(10*time.Second)) // due at now+40s, earlier than id1

	earliest, ok := s.NextDeadline()
	require.True(t, ok)
	require.Equal(t, now.Add(40*time.Second), earliest)
}
