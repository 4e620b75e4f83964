package task

import (
	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/merr"
)

// RestartKind distinguishes cold_restart() from warm_restart() (spec §4.4).
type RestartKind int

const (
	ColdRestart RestartKind = iota
	WarmRestart
)

// RestartTask implements cold_restart()/warm_restart(): a single-fragment
// request carrying no object headers, whose response echoes a restart delay
// in either Group 52 Variation 1 (seconds) or Variation 2 (milliseconds)
// (spec §4.4, §8 scenario 2; grounded on
// `_examples/original_source/ffi/dnp3-schema/src/master.rs`'s RestartDelay).
type RestartTask struct {
	base
	kind     RestartKind
	callback RestartCallback
}

func NewRestartTask(address uint16, kind RestartKind, cb RestartCallback) *RestartTask {
	t := &RestartTask{kind: kind, callback: cb}
	t.address = address
	t.onError = func(err merr.TaskError) { cb.Invoke(merr.RestartFailure(err), dnp3.RestartDelay{}) }
	return t
}

func (t *RestartTask) Function() dnp3.FunctionCode {
	if t.kind == WarmRestart {
		return dnp3.FuncWarmRestart
	}
	return dnp3.FuncColdRestart
}

func (t *RestartTask) Name() string {
	if t.kind == WarmRestart {
		return "warm-restart"
	}
	return "cold-restart"
}

func (t *RestartTask) WriteRequest(w *dnp3.HeaderWriter) error { return nil }

func (t *RestartTask) Handle(resp dnp3.ResponseFragment) (NonReadTask, bool) {
	if header, ok := dnp3.FindHeader(resp.Headers, 52, 2); ok && len(header.Objects) > 0 {
		if ms, err := dnp3.DecodeUint16LE(header.Objects[0].Data); err == nil {
			t.callback.Invoke(merr.RestartSuccess(), dnp3.RestartDelayFromMillis(ms))
			return nil, true
		}
	}
	if header, ok := dnp3.FindHeader(resp.Headers, 52, 1); ok && len(header.Objects) > 0 {
		if secs, err := dnp3.DecodeUint16LE(header.Objects[0].Data); err == nil {
			t.callback.Invoke(merr.RestartSuccess(), dnp3.RestartDelayFromSeconds(secs))
			return nil, true
		}
	}
	t.callback.Invoke(merr.RestartFailure(merr.ErrBadResponse), dnp3.RestartDelay{})
	return nil, true
}

func (*RestartTask) isNonReadTask() {}
