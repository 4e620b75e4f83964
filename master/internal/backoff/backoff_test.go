package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExponentialBackoffDoublesAndSaturates(t *testing.T) {
	b := New(Strategy{MinDelay: time.Second, MaxDelay: 10 * time.Second})

	require.Equal(t, time.Second, b.OnFailure())
	require.Equal(t, 2*time.Second, b.OnFailure())
	require.Equal(t, 4*time.Second, b.OnFailure())
	require.Equal(t, 8*time.Second, b.OnFailure())
	require.Equal(t, 10*time.Second, b.OnFailure(), "doubling past MaxDelay saturates")
	require.Equal(t, 10*time.Second, b.OnFailure(), "stays saturated")
}

func TestExponentialBackoffResetsOnSuccess(t *testing.T) {
	b := New(Strategy{MinDelay: time.Second, MaxDelay: 10 * time.Second})

	b.OnFailure()
	b.OnFailure()
	b.OnSuccess()

	require.Equal(t, time.Second, b.OnFailure(), "next failure after success restarts at MinDelay")
}

func TestMinDelayDoesNotParticipateInDoubling(t *testing.T) {
	b := New(Strategy{MinDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second})

	b.OnFailure()
	b.OnFailure()

	require.Equal(t, 500*time.Millisecond, b.MinDelay(), "MinDelay reports the strategy minimum, unaffected by OnFailure's own state")
}
