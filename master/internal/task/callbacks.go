package task

import (
	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/merr"
)

// ReadResult is the outcome delivered to a read() callback; the measurement
// data itself is streamed separately through the association's ReadHandler
// (spec §4.4) — the callback only reports completion status.
type ReadResult struct {
	Err error // nil on success, otherwise a merr.TaskError
}

type (
	ReadCallback       func(ReadResult)
	CommandCallback    func(merr.CommandResult)
	TimeSyncCallback   func(merr.TimeSyncResult)
	RestartCallback    func(merr.RestartError, dnp3.RestartDelay)
	LinkStatusCallback func(merr.LinkStatusResult)
)

// Invoke delivers a callback exactly once; a nil callback is a safe no-op,
// so every task variant can unconditionally call its callback field on
// completion, error, or shutdown (spec §9 "each user-provided callback is
// delivered exactly once").
func (f ReadCallback) Invoke(r ReadResult) {
	if f != nil {
		f(r)
	}
}

func (f CommandCallback) Invoke(r merr.CommandResult) {
	if f != nil {
		f(r)
	}
}

func (f TimeSyncCallback) Invoke(r merr.TimeSyncResult) {
	if f != nil {
		f(r)
	}
}

func (f RestartCallback) Invoke(r merr.RestartError, d dnp3.RestartDelay) {
	if f != nil {
		f(r, d)
	}
}

func (f LinkStatusCallback) Invoke(r merr.LinkStatusResult) {
	if f != nil {
		f(r)
	}
}
