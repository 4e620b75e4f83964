package assoc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/merr"
	"github.com/go-dnp3/dnp3master/master/internal/task"
)

func newTestAssociation() *Association {
	cfg := DefaultConfig()
	cfg.KeepAliveTimeout = time.Minute
	return New(1024, cfg, nil, nil)
}

func drainInitialStartupIntegrity(t *testing.T, a *Association) {
	t.Helper()
	_, kind, ok := a.NextAutoTask()
	require.True(t, ok)
	require.Equal(t, task.AutoStartupIntegrity, kind)
}

func TestNewAssociationArmsStartupIntegrityByDefault(t *testing.T) {
	a := newTestAssociation()

	_, kind, ok := a.NextAutoTask()
	require.True(t, ok)
	require.Equal(t, task.AutoStartupIntegrity, kind)

	_, _, ok = a.NextAutoTask()
	require.False(t, ok, "the flag is cleared once consumed")
}

func TestApplyIINArmsFlagsInPriorityOrder(t *testing.T) {
	a := newTestAssociation()
	drainInitialStartupIntegrity(t, a)
	a.Config.AutoTimeSync = dnp3.AutoTimeSyncLan

	a.ApplyIIN(dnp3.IIN{IIN1: dnp3.IIN1Restart | dnp3.IIN1NeedTime | dnp3.IIN1Class1Events})

	_, kind, ok := a.NextAutoTask()
	require.True(t, ok)
	require.Equal(t, task.AutoClearRestart, kind, "restart outranks need-time and event-scan")

	_, kind, ok = a.NextAutoTask()
	require.True(t, ok)
	require.Equal(t, task.AutoStartupIntegrity, kind, "a restart also re-arms the startup integrity scan")

	_, kind, ok = a.NextAutoTask()
	require.True(t, ok)
	require.Equal(t, task.AutoNeedTime, kind, "need-time outranks event-scan")

	_, kind, ok = a.NextAutoTask()
	require.True(t, ok)
	require.Equal(t, task.AutoEventScan, kind)

	_, _, ok = a.NextAutoTask()
	require.False(t, ok)
}

func TestApplyIINNeedTimeIgnoredWhenAutoSyncDisabled(t *testing.T) {
	a := newTestAssociation()
	drainInitialStartupIntegrity(t, a)
	require.Equal(t, dnp3.AutoTimeSyncNone, a.Config.AutoTimeSync)

	a.ApplyIIN(dnp3.IIN{IIN1: dnp3.IIN1NeedTime})

	_, _, ok := a.NextAutoTask()
	require.False(t, ok, "NEED_TIME is ignored unless AutoTimeSync is configured")
}

func TestApplyIINEventBufferOverflowRearmsStartupIntegrityWhenConfigured(t *testing.T) {
	a := newTestAssociation()
	drainInitialStartupIntegrity(t, a)
	require.True(t, a.Config.AutoIntegrityScanOnEventBufferOverflow)

	a.ApplyIIN(dnp3.IIN{IIN2: dnp3.IIN2EventBufferOverflow})

	_, kind, ok := a.NextAutoTask()
	require.True(t, ok)
	require.Equal(t, task.AutoStartupIntegrity, kind)
}

func TestAutoTaskFailureRearmsItsOwnFlag(t *testing.T) {
	a := newTestAssociation()

	autoTsk, kind, ok := a.NextAutoTask()
	require.True(t, ok)
	require.Equal(t, task.AutoStartupIntegrity, kind)

	_, _, ok = a.NextAutoTask()
	require.False(t, ok, "flag consumed, nothing else armed yet")

	autoTsk.OnTaskError(merr.NewTaskError(merr.ErrResponseTimeout))

	_, kind, ok = a.NextAutoTask()
	require.True(t, ok, "failure re-arms the same flag for the next scheduler pass")
	require.Equal(t, task.AutoStartupIntegrity, kind)
}

func TestKeepAliveFiresOnlyAfterIdleTimeoutElapsed(t *testing.T) {
	a := newTestAssociation()
	a.Config.KeepAliveTimeout = time.Minute
	now := time.Unix(1000, 0)
	a.RecordActivity(now)

	require.False(t, a.NeedsKeepAlive(now.Add(30*time.Second)))
	require.True(t, a.NeedsKeepAlive(now.Add(90*time.Second)))
}

func TestKeepAliveDisabledWhenTimeoutIsZero(t *testing.T) {
	a := newTestAssociation()
	a.Config.KeepAliveTimeout = 0
	now := time.Unix(1000, 0)
	a.RecordActivity(now)

	require.False(t, a.NeedsKeepAlive(now.Add(time.Hour)))
}

func TestRemoveDrainsQueueWithAssociationRemoved(t *testing.T) {
	a := newTestAssociation()

	var gotErr merr.TaskError
	require.NoError(t, a.EnqueueLinkStatus(func(r merr.LinkStatusResult) { gotErr = r.TaskError }))

	a.Remove()

	require.True(t, a.Removed())
	require.ErrorIs(t, gotErr, merr.ErrAssociationRemoved)

	_, ok := a.NextUserRequest()
	require.False(t, ok, "Remove drains the queue")
}

func TestShutdownDrainsQueueWithShutdown(t *testing.T) {
	a := newTestAssociation()

	var gotErr merr.TaskError
	require.NoError(t, a.EnqueueLinkStatus(func(r merr.LinkStatusResult) { gotErr = r.TaskError }))

	a.Shutdown()

	require.ErrorIs(t, gotErr, merr.ErrShutdown)
	_, ok := a.NextUserRequest()
	require.False(t, ok)
}
