package task

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/merr"
)

func successObjects() []dnp3.PrefixedObject {
	return []dnp3.PrefixedObject{{Index: 7, Data: []byte{0x00, byte(dnp3.CommandStatusSuccess)}}}
}

func badStatusObjects() []dnp3.PrefixedObject {
	return []dnp3.PrefixedObject{{Index: 7, Data: []byte{0x00, 0x01}}}
}

func TestCommandTaskDirectOperateSuccess(t *testing.T) {
	headers := []dnp3.CommandHeader{{Group: 12, Variation: 1, Objects: successObjects()}}

	var result merr.CommandResult
	got := false
	tsk := NewCommandTask(1, dnp3.DirectOperate, headers, func(r merr.CommandResult) { got = true; result = r })

	require.Equal(t, dnp3.FuncDirectOperate, tsk.Function())
	require.Equal(t, "command-direct-operate", tsk.Name())

	resp := dnp3.ResponseFragment{Headers: []dnp3.ObjectHeader{
		{Group: 12, Variation: 1, Qualifier: dnp3.QualCountAndPrefix16, Objects: successObjects()},
	}}

	next, done := tsk.Handle(resp)
	require.Nil(t, next)
	require.True(t, done)
	require.True(t, got)
	require.True(t, result.Ok())
}

func TestCommandTaskDirectOperateBadStatus(t *testing.T) {
	headers := []dnp3.CommandHeader{{Group: 12, Variation: 1, Objects: successObjects()}}

	var result merr.CommandResult
	tsk := NewCommandTask(1, dnp3.DirectOperate, headers, func(r merr.CommandResult) { result = r })

	resp := dnp3.ResponseFragment{Headers: []dnp3.ObjectHeader{
		{Group: 12, Variation: 1, Qualifier: dnp3.QualCountAndPrefix16, Objects: badStatusObjects()},
	}}

	next, done := tsk.Handle(resp)
	require.Nil(t, next)
	require.True(t, done)
	require.False(t, result.Ok())
	require.ErrorIs(t, result.TaskError, merr.ErrBadStatus)
}

func TestCommandTaskSelectBeforeOperateAdvancesThenSucceeds(t *testing.T) {
	headers := []dnp3.CommandHeader{{Group: 12, Variation: 1, Objects: successObjects()}}

	var result merr.CommandResult
	done := false
	tsk := NewCommandTask(1, dnp3.SelectBeforeOperate, headers, func(r merr.CommandResult) { done = true; result = r })

	require.Equal(t, dnp3.FuncSelect, tsk.Function())
	require.Equal(t, "command-select", tsk.Name())

	selectResp := dnp3.ResponseFragment{Headers: []dnp3.ObjectHeader{
		{Group: 12, Variation: 1, Qualifier: dnp3.QualCountAndPrefix16, Objects: successObjects()},
	}}

	next, complete := tsk.Handle(selectResp)
	require.False(t, complete, "select success hands off to operate, task is not yet complete")
	require.NotNil(t, next)
	require.False(t, done, "callback not yet invoked after select")

	operateTask := next.(*CommandTask)
	require.Equal(t, dnp3.FuncOperate, operateTask.Function())
	require.Equal(t, "command-operate", operateTask.Name())

	operateResp := dnp3.ResponseFragment{Headers: []dnp3.ObjectHeader{
		{Group: 12, Variation: 1, Qualifier: dnp3.QualCountAndPrefix16, Objects: successObjects()},
	}}

	final, complete := operateTask.Handle(operateResp)
	require.Nil(t, final)
	require.True(t, complete)
	require.True(t, done)
	require.True(t, result.Ok())
}

func TestCommandTaskSelectHeaderMismatchFailsImmediately(t *testing.T) {
	headers := []dnp3.CommandHeader{{Group: 12, Variation: 1, Objects: successObjects()}}

	var result merr.CommandResult
	tsk := NewCommandTask(1, dnp3.SelectBeforeOperate, headers, func(r merr.CommandResult) { result = r })

	mismatched := dnp3.ResponseFragment{Headers: []dnp3.ObjectHeader{
		{Group: 13, Variation: 1, Qualifier: dnp3.QualCountAndPrefix16, Objects: successObjects()},
	}}

	next, done := tsk.Handle(mismatched)
	require.Nil(t, next)
	require.True(t, done)
	require.ErrorIs(t, result.TaskError, merr.ErrHeaderMismatch)
}

func TestCommandTaskSelectBadStatusFailsImmediately(t *testing.T) {
	headers := []dnp3.CommandHeader{{Group: 12, Variation: 1, Objects: successObjects()}}

	var result merr.CommandResult
	tsk := NewCommandTask(1, dnp3.SelectBeforeOperate, headers, func(r merr.CommandResult) { result = r })

	resp := dnp3.ResponseFragment{Headers: []dnp3.ObjectHeader{
		{Group: 12, Variation: 1, Qualifier: dnp3.QualCountAndPrefix16, Objects: badStatusObjects()},
	}}

	next, done := tsk.Handle(resp)
	require.Nil(t, next)
	require.True(t, done)
	require.ErrorIs(t, result.TaskError, merr.ErrBadStatus)
}
