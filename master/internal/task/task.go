// Package task implements the tagged-variant task model of spec §3/§4.2/§9:
// every unit of work the session runner executes — reads, automatic
// reactions, commands, time synchronization — is one of a closed set of
// concrete types satisfying either ReadTask or NonReadTask. Grounded on
// `_examples/original_source/src/master/task.rs`'s TaskType/ReadTask/
// NonReadTask split; expressed here as Go interfaces with unexported marker
// methods rather than a vtable-style open hierarchy, matching spec §9's
// "prefer a closed sum type" design note.
package task

import (
	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/merr"
)

// Task is the common surface every task variant implements so the session
// runner can transmit it without knowing its concrete kind.
type Task interface {
	// Address is the destination outstation address this task targets.
	Address() uint16
	// Function is the application-layer function code to send.
	Function() dnp3.FunctionCode
	// WriteRequest serializes this task's object headers into w.
	WriteRequest(w *dnp3.HeaderWriter) error
	// OnTaskError is invoked exactly once if this task fails before
	// completing, with the terminal TaskError (spec §7).
	OnTaskError(err merr.TaskError)
	// Name is a short human-readable label for logging.
	Name() string
}

// ReadTask is a task whose response may arrive as multiple fragments,
// reassembled via FIR/FIN bits (spec §3).
type ReadTask interface {
	Task
	// ProcessFragment delivers one fragment's object headers to h. Called
	// once per received fragment, in order, before Complete.
	ProcessFragment(h dnp3.ReadHandler, resp dnp3.ResponseFragment)
	// Complete is invoked once, after the FIN=1 fragment has been processed.
	Complete()

	isReadTask()
}

// NonReadTask is a task whose response must be exactly one fragment with
// FIR=FIN=1 (spec §3). Handle may return a follow-up NonReadTask to continue
// a multi-round protocol (SELECT→OPERATE, Delay-Measure→Write,
// Record-Current-Time→Write).
type NonReadTask interface {
	Task
	Handle(resp dnp3.ResponseFragment) (next NonReadTask, done bool)

	isNonReadTask()
}

// AutoKind enumerates the automatic reactions the association can arm in
// response to IIN bits (spec §4.2 step 6, §4.3 priority 1).
type AutoKind int

const (
	AutoClearRestart AutoKind = iota
	AutoDisableUnsolicited
	AutoStartupIntegrity
	AutoEnableUnsolicited
	AutoNeedTime
	AutoEventScan
	AutoLinkStatus
)

func (k AutoKind) String() string {
	switch k {
	case AutoClearRestart:
		return "clear-restart"
	case AutoDisableUnsolicited:
		return "disable-unsolicited"
	case AutoStartupIntegrity:
		return "startup-integrity"
	case AutoEnableUnsolicited:
		return "enable-unsolicited"
	case AutoNeedTime:
		return "need-time"
	case AutoEventScan:
		return "event-scan"
	case AutoLinkStatus:
		return "link-status"
	default:
		return "unknown-auto"
	}
}

// base supplies the Address/OnTaskError boilerplate common to every variant.
type base struct {
	address  uint16
	onError  func(merr.TaskError)
}

func (b base) Address() uint16 { return b.address }

func (b base) OnTaskError(err merr.TaskError) {
	if b.onError != nil {
		b.onError(err)
	}
}
