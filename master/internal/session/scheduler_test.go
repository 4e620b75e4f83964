package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-dnp3/dnp3master/master/internal/assoc"
	"github.com/go-dnp3/dnp3master/master/internal/task"
)

func newTestAssoc(address uint16) *assoc.Association {
	cfg := assoc.DefaultConfig()
	cfg.KeepAliveTimeout = 0 // disabled, keeps priority tests from racing the idle timer
	return assoc.New(address, cfg, nil, nil)
}

func drainStartupIntegrity(t *testing.T, a *assoc.Association) {
	t.Helper()
	tsk, _, ok := a.NextAutoTask()
	require.True(t, ok)
	require.Equal(t, "startup-integrity", tsk.Name(), "a freshly added association arms startup-integrity by default")
}

func TestSchedulerAutoTaskOutranksEverything(t *testing.T) {
	now := time.Unix(1000, 0)
	a := newTestAssoc(1)
	s := NewScheduler()
	s.Add(a)

	require.NoError(t, a.EnqueueRead(task.ClassesRequest{}, nil))
	a.EnqueuePoll(task.ClassesRequest{}, time.Second, now)

	tsk, owner, ok := s.Next(now)
	require.True(t, ok)
	require.Equal(t, a, owner)
	require.Equal(t, "startup-integrity", tsk.Name(), "armed auto reaction runs before queued user requests or due polls")
}

func TestSchedulerUserRequestOutranksPoll(t *testing.T) {
	now := time.Unix(1000, 0)
	a := newTestAssoc(1)
	drainStartupIntegrity(t, a)

	s := NewScheduler()
	s.Add(a)

	a.EnqueuePoll(task.ClassesRequest{}, time.Second, now)
	require.NoError(t, a.EnqueueRead(task.ClassesRequest{}, nil))

	tsk, _, ok := s.Next(now)
	require.True(t, ok)
	require.Equal(t, "single-read", tsk.Name())
}

func TestSchedulerFallsBackToDuePoll(t *testing.T) {
	now := time.Unix(1000, 0)
	a := newTestAssoc(1)
	drainStartupIntegrity(t, a)

	s := NewScheduler()
	s.Add(a)
	a.EnqueuePoll(task.ClassesRequest{}, time.Second, now)

	tsk, _, ok := s.Next(now)
	require.True(t, ok)
	require.Equal(t, "periodic-poll", tsk.Name())
}

func TestSchedulerRoundRobinsUserRequestsAcrossAssociations(t *testing.T) {
	now := time.Unix(1000, 0)
	a1 := newTestAssoc(1)
	a2 := newTestAssoc(2)
	drainStartupIntegrity(t, a1)
	drainStartupIntegrity(t, a2)

	s := NewScheduler()
	s.Add(a1)
	s.Add(a2)

	require.NoError(t, a1.EnqueueRead(task.ClassesRequest{}, nil))
	require.NoError(t, a2.EnqueueRead(task.ClassesRequest{}, nil))

	_, owner1, ok := s.Next(now)
	require.True(t, ok)

	require.NoError(t, owner1.EnqueueRead(task.ClassesRequest{}, nil))
	_, owner2, ok := s.Next(now)
	require.True(t, ok)
	require.NotEqual(t, owner1.Address, owner2.Address, "round robin moves to the other association before revisiting the first")
}

func TestSchedulerNoRunnableTaskReturnsFalse(t *testing.T) {
	now := time.Unix(1000, 0)
	a := newTestAssoc(1)
	drainStartupIntegrity(t, a)

	s := NewScheduler()
	s.Add(a)

	_, _, ok := s.Next(now)
	require.False(t, ok)
}
