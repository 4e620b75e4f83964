package task

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/merr"
)

func uint16leBytes(v uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	return buf
}

func TestRestartTaskColdRestartMillisDelay(t *testing.T) {
	var gotErr merr.RestartError
	var gotDelay dnp3.RestartDelay
	tsk := NewRestartTask(1, ColdRestart, func(e merr.RestartError, d dnp3.RestartDelay) { gotErr = e; gotDelay = d })

	require.Equal(t, dnp3.FuncColdRestart, tsk.Function())
	require.Equal(t, "cold-restart", tsk.Name())

	resp := dnp3.ResponseFragment{Headers: []dnp3.ObjectHeader{
		{Group: 52, Variation: 2, Objects: []dnp3.PrefixedObject{{Data: uint16leBytes(1500)}}},
	}}

	next, done := tsk.Handle(resp)
	require.Nil(t, next)
	require.True(t, done)
	require.True(t, gotErr.Ok)
	require.EqualValues(t, 1500, gotDelay.Milliseconds)
}

func TestRestartTaskWarmRestartSecondsDelay(t *testing.T) {
	var gotErr merr.RestartError
	var gotDelay dnp3.RestartDelay
	tsk := NewRestartTask(1, WarmRestart, func(e merr.RestartError, d dnp3.RestartDelay) { gotErr = e; gotDelay = d })

	require.Equal(t, dnp3.FuncWarmRestart, tsk.Function())
	require.Equal(t, "warm-restart", tsk.Name())

	resp := dnp3.ResponseFragment{Headers: []dnp3.ObjectHeader{
		{Group: 52, Variation: 1, Objects: []dnp3.PrefixedObject{{Data: uint16leBytes(7)}}},
	}}

	next, done := tsk.Handle(resp)
	require.Nil(t, next)
	require.True(t, done)
	require.True(t, gotErr.Ok)
	require.EqualValues(t, 7000, gotDelay.Milliseconds)
}

func TestRestartTaskMissingDelayHeaderFails(t *testing.T) {
	var gotErr merr.RestartError
	tsk := NewRestartTask(1, ColdRestart, func(e merr.RestartError, d dnp3.RestartDelay) { gotErr = e })

	resp := dnp3.ResponseFragment{}

	next, done := tsk.Handle(resp)
	require.Nil(t, next)
	require.True(t, done)
	require.False(t, gotErr.Ok)
	require.ErrorIs(t, gotErr.TaskError, merr.ErrBadResponse)
}
