package session

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeDialer returns a connect error for its first failCount calls, then
// succeeds by handing out one side of a net.Pipe (closing the other side
// immediately so the runner's first read fails and the session ends quickly).
type fakeDialer struct {
	mu        sync.Mutex
	failCount int
	calls     int
}

func (d *fakeDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.calls <= d.failCount {
		return nil, errors.New("connect refused")
	}
	client, server := net.Pipe()
	_ = server.Close() // any subsequent read on client observes a closed pipe
	return client, nil
}

func recordStates(mu *sync.Mutex, states *[]ClientState) func(ClientState) {
	return func(s ClientState) {
		mu.Lock()
		defer mu.Unlock()
		*states = append(*states, s)
	}
}

func TestSupervisorStaysDisabledUntilEnabled(t *testing.T) {
	var mu sync.Mutex
	var states []ClientState
	d := &fakeDialer{}
	strategy := ConnectStrategy{MinConnectDelay: 5 * time.Millisecond, MaxConnectDelay: 20 * time.Millisecond, ReconnectDelay: 5 * time.Millisecond}
	sup := NewSupervisor(d, strategy, NewScheduler(), 2048, 2048, nil, recordStates(&mu, &states))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() { sup.Run(ctx); close(done) }()

	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []ClientState{StateDisabled, StateShutdown}, states, "never enabled, so the dialer is never invoked")
	require.Equal(t, 0, d.calls)
}

func TestSupervisorRetriesConnectFailureBeforeConnecting(t *testing.T) {
	var mu sync.Mutex
	var states []ClientState
	d := &fakeDialer{failCount: 2}
	strategy := ConnectStrategy{MinConnectDelay: 5 * time.Millisecond, MaxConnectDelay: 20 * time.Millisecond, ReconnectDelay: 5 * time.Millisecond}
	sup := NewSupervisor(d, strategy, NewScheduler(), 2048, 2048, nil, recordStates(&mu, &states))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() { sup.Run(ctx); close(done) }()

	sup.Enable()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, s := range states {
			if s == StateConnected {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond, "eventually connects after the dialer stops failing")

	sup.Shutdown()
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, countState(states, StateWaitAfterFailedConnect), 2, "two dial failures each wait before retrying")
	require.Equal(t, StateShutdown, states[len(states)-1])
}

func TestSupervisorDisableStopsActiveCycleWithoutShuttingDown(t *testing.T) {
	var mu sync.Mutex
	var states []ClientState
	d := &fakeDialer{}
	strategy := ConnectStrategy{MinConnectDelay: 5 * time.Millisecond, MaxConnectDelay: 20 * time.Millisecond, ReconnectDelay: time.Hour}
	sup := NewSupervisor(d, strategy, NewScheduler(), 2048, 2048, nil, recordStates(&mu, &states))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() { sup.Run(ctx); close(done) }()

	sup.Enable()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return countState(states, StateConnected) > 0
	}, time.Second, 5*time.Millisecond)

	sup.Disable()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) > 0 && states[len(states)-1] == StateDisabled
	}, time.Second, 5*time.Millisecond, "disable stops the cycle and returns to Disabled, not Shutdown")

	sup.Shutdown()
	<-done
}

func countState(states []ClientState, target ClientState) int {
	n := 0
	for _, s := range states {
		if s == target {
			n++
		}
	}
	return n
}
