package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/merr"
)

type fakeKnownTime struct {
	ms int64
	ok bool
}

func (f *fakeKnownTime) Get() (int64, bool) { return f.ms, f.ok }
func (f *fakeKnownTime) Set(ms int64)       { f.ms = ms; f.ok = true }

func TestTimeSyncTaskNonLanHandshakeWritesComputedTime(t *testing.T) {
	known := &fakeKnownTime{}
	provider := func() (int64, bool) { return 5_000_000, true }

	var result merr.TimeSyncResult
	done := false
	tsk := NewTimeSyncTask(1, dnp3.NonLan, provider, known, func(r merr.TimeSyncResult) { done = true; result = r })

	require.Equal(t, dnp3.FuncDelayMeasure, tsk.Function())
	require.Equal(t, "time-sync-delay-measure", tsk.Name())

	tx := time.Unix(0, 0)
	arrival := tx.Add(100 * time.Millisecond)

	delayResp := dnp3.ResponseFragment{Headers: []dnp3.ObjectHeader{
		{Group: 52, Variation: 2, Objects: []dnp3.PrefixedObject{{Data: uint16leBytes(40)}}},
	}}

	next, complete := tsk.HandleTimed(delayResp, tx, arrival)
	require.False(t, complete, "delay-measure response hands off to the write step")
	require.NotNil(t, next)
	require.False(t, done)

	writeTask := next.(*TimeSyncTask)
	require.Equal(t, dnp3.FuncWrite, writeTask.Function())
	require.Equal(t, "time-sync-write", writeTask.Name())

	require.EqualValues(t, 5_000_030, known.ms, "one-way delay is (roundtrip-outstationDelay)/2 = (100-40)/2 = 30ms added to the provider's current time")

	writeResp := dnp3.ResponseFragment{}
	final, complete := writeTask.HandleTimed(writeResp, tx, arrival)
	require.Nil(t, final)
	require.True(t, complete)
	require.True(t, done)
	require.True(t, result.Ok())
}

func TestTimeSyncTaskStillNeedsTimeAfterWriteFails(t *testing.T) {
	known := &fakeKnownTime{}
	provider := func() (int64, bool) { return 5_000_000, true }

	var result merr.TimeSyncResult
	tsk := NewTimeSyncTask(1, dnp3.Lan, provider, known, func(r merr.TimeSyncResult) { result = r })

	recordResp := dnp3.ResponseFragment{}
	next, complete := tsk.Handle(recordResp)
	require.False(t, complete)
	writeTask := next.(*TimeSyncTask)

	stillNeedsTime := dnp3.ResponseFragment{IIN: dnp3.IIN{IIN1: dnp3.IIN1NeedTime}}
	final, complete := writeTask.Handle(stillNeedsTime)
	require.Nil(t, final)
	require.True(t, complete)
	require.ErrorIs(t, result.TaskError, merr.ErrStillNeedsTime)
}

func TestTimeSyncTaskClockRollbackRejected(t *testing.T) {
	known := &fakeKnownTime{ms: 10_000_000, ok: true}
	provider := func() (int64, bool) { return 1_000_000, true }

	var result merr.TimeSyncResult
	tsk := NewTimeSyncTask(1, dnp3.Lan, provider, known, func(r merr.TimeSyncResult) { result = r })

	next, complete := tsk.Handle(dnp3.ResponseFragment{})
	require.Nil(t, next)
	require.True(t, complete)
	require.ErrorIs(t, result.TaskError, merr.ErrClockRollback)
}

func TestTimeSyncTaskBadOutstationDelayRejected(t *testing.T) {
	known := &fakeKnownTime{}
	provider := func() (int64, bool) { return 5_000_000, true }

	var result merr.TimeSyncResult
	tsk := NewTimeSyncTask(1, dnp3.NonLan, provider, known, func(r merr.TimeSyncResult) { result = r })

	tx := time.Unix(0, 0)
	arrival := tx.Add(10 * time.Millisecond)

	resp := dnp3.ResponseFragment{Headers: []dnp3.ObjectHeader{
		{Group: 52, Variation: 2, Objects: []dnp3.PrefixedObject{{Data: uint16leBytes(50)}}},
	}}

	next, complete := tsk.HandleTimed(resp, tx, arrival)
	require.Nil(t, next)
	require.True(t, complete)
	require.ErrorIs(t, result.TaskError, merr.ErrBadOutstationTimeDelay)
}
