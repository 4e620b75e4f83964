package task

import (
	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/merr"
)

// commandPhase distinguishes the SELECT and OPERATE/DirectOperate steps of
// a command task (spec §4.4 operate()).
type commandPhase int

const (
	phaseOperateDirect commandPhase = iota
	phaseSelect
	phaseOperateAfterSelect
)

// CommandTask implements both DirectOperate and Select-Before-Operate
// control sequences. Grounded on `master/task.rs`'s NonReadTask::Command,
// whose handle() may return a follow-up NonReadTask to continue the SBO
// handshake.
type CommandTask struct {
	base
	mode     dnp3.CommandMode
	headers  []dnp3.CommandHeader
	callback CommandCallback
	phase    commandPhase
}

// NewCommandTask builds the initial task for operate(); for
// SelectBeforeOperate this is the SELECT step, for DirectOperate the one and
// only step.
func NewCommandTask(address uint16, mode dnp3.CommandMode, headers []dnp3.CommandHeader, cb CommandCallback) *CommandTask {
	t := &CommandTask{mode: mode, headers: headers, callback: cb}
	t.address = address
	t.onError = func(err merr.TaskError) { cb.Invoke(merr.CommandFailure(err)) }
	if mode == dnp3.SelectBeforeOperate {
		t.phase = phaseSelect
	} else {
		t.phase = phaseOperateDirect
	}
	return t
}

func (t *CommandTask) Function() dnp3.FunctionCode {
	switch t.phase {
	case phaseSelect:
		return dnp3.FuncSelect
	case phaseOperateAfterSelect:
		return dnp3.FuncOperate
	default:
		return dnp3.FuncDirectOperate
	}
}

func (t *CommandTask) Name() string {
	switch t.phase {
	case phaseSelect:
		return "command-select"
	case phaseOperateAfterSelect:
		return "command-operate"
	default:
		return "command-direct-operate"
	}
}

func (t *CommandTask) WriteRequest(w *dnp3.HeaderWriter) error {
	for _, h := range t.headers {
		if err := w.WriteCountAndPrefix16(h.Group, h.Variation, h.Objects); err != nil {
			return err
		}
	}
	return nil
}

// wantedHeaders returns the headers this task sent, in the ObjectHeader
// shape used for echo comparison.
func (t *CommandTask) wantedHeaders() []dnp3.ObjectHeader {
	out := make([]dnp3.ObjectHeader, len(t.headers))
	for i, h := range t.headers {
		out[i] = dnp3.ObjectHeader{Group: h.Group, Variation: h.Variation, Qualifier: dnp3.QualCountAndPrefix16, Objects: h.Objects}
	}
	return out
}

func (t *CommandTask) Handle(resp dnp3.ResponseFragment) (NonReadTask, bool) {
	switch t.phase {
	case phaseSelect:
		if !dnp3.CommandHeadersEqual(t.wantedHeaders(), resp.Headers) {
			t.callback.Invoke(merr.CommandFailure(merr.ErrHeaderMismatch))
			return nil, true
		}
		if !dnp3.AllStatusesSuccess(resp.Headers) {
			t.callback.Invoke(merr.CommandFailure(merr.ErrBadStatus))
			return nil, true
		}
		next := &CommandTask{
			base:     base{address: t.address, onError: t.onError},
			mode:     t.mode,
			headers:  t.headers,
			callback: t.callback,
			phase:    phaseOperateAfterSelect,
		}
		return next, false
	default: // phaseOperateDirect or phaseOperateAfterSelect
		if !dnp3.AllStatusesSuccess(resp.Headers) {
			t.callback.Invoke(merr.CommandFailure(merr.ErrBadStatus))
			return nil, true
		}
		t.callback.Invoke(merr.CommandSuccess())
		return nil, true
	}
}

func (*CommandTask) isNonReadTask() {}
