package task

import (
	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/merr"
)

// RequestTemplate describes the object headers a Read task writes. It is
// the closed set of request shapes the master itself builds (class reads,
// single-object range reads); arbitrary free-form object headers are out of
// scope per spec §1.
type RequestTemplate interface {
	Write(w *dnp3.HeaderWriter) error
}

// ClassesRequest requests some subset of Class 0 (static) / 1/2/3 (event)
// data, used for startup integrity and periodic polls.
type ClassesRequest struct {
	Classes dnp3.Classes
}

func (r ClassesRequest) Write(w *dnp3.HeaderWriter) error {
	if r.Classes.Class0 {
		if err := w.WriteAllObjects(60, 1); err != nil {
			return err
		}
	}
	if r.Classes.Class1 {
		if err := w.WriteAllObjects(60, 2); err != nil {
			return err
		}
	}
	if r.Classes.Class2 {
		if err := w.WriteAllObjects(60, 3); err != nil {
			return err
		}
	}
	if r.Classes.Class3 {
		if err := w.WriteAllObjects(60, 4); err != nil {
			return err
		}
	}
	return nil
}

// EventClassesRequest requests only event classes 1/2/3 (no static data),
// used for event-driven rescans after IIN class-event bits are set.
type EventClassesRequest struct {
	Classes dnp3.EventClasses
}

func (r EventClassesRequest) Write(w *dnp3.HeaderWriter) error {
	return w.WriteEventClasses(r.Classes)
}

// RangeRequest requests a single Group/Variation over an explicit index
// range, used for SingleRead and range-based polls.
type RangeRequest struct {
	Group, Variation uint8
	Start, Stop      uint16
}

func (r RangeRequest) Write(w *dnp3.HeaderWriter) error {
	return w.WriteRange16(r.Group, r.Variation, r.Start, r.Stop)
}

// StartupIntegrityTask performs the Class1230 integrity scan run once on
// connect and again after a detected outstation restart (spec §2, §4.2 step 6).
type StartupIntegrityTask struct {
	base
	OnDone func()
}

func NewStartupIntegrityTask(address uint16, onDone func(), onError func(merr.TaskError)) *StartupIntegrityTask {
	return &StartupIntegrityTask{base: base{address: address, onError: onError}, OnDone: onDone}
}

func (t *StartupIntegrityTask) Function() dnp3.FunctionCode { return dnp3.FuncRead }
func (t *StartupIntegrityTask) Name() string                { return "startup-integrity" }
func (t *StartupIntegrityTask) WriteRequest(w *dnp3.HeaderWriter) error {
	return w.WriteClass1230()
}
func (t *StartupIntegrityTask) ProcessFragment(h dnp3.ReadHandler, resp dnp3.ResponseFragment) {
	dispatchFragment(h, resp)
}
func (t *StartupIntegrityTask) Complete() {
	if t.OnDone != nil {
		t.OnDone()
	}
}
func (*StartupIntegrityTask) isReadTask() {}

// PeriodicPollTask is one execution of a configured Poll (spec §3, §4.4).
type PeriodicPollTask struct {
	base
	PollID   uint64
	Template RequestTemplate
	OnDone   func(pollID uint64)
}

func NewPeriodicPollTask(address uint16, pollID uint64, tmpl RequestTemplate, onDone func(uint64), onError func(merr.TaskError)) *PeriodicPollTask {
	return &PeriodicPollTask{base: base{address: address, onError: onError}, PollID: pollID, Template: tmpl, OnDone: onDone}
}

func (t *PeriodicPollTask) Function() dnp3.FunctionCode { return dnp3.FuncRead }
func (t *PeriodicPollTask) Name() string                { return "periodic-poll" }
func (t *PeriodicPollTask) WriteRequest(w *dnp3.HeaderWriter) error {
	return t.Template.Write(w)
}
func (t *PeriodicPollTask) ProcessFragment(h dnp3.ReadHandler, resp dnp3.ResponseFragment) {
	dispatchFragment(h, resp)
}
func (t *PeriodicPollTask) Complete() {
	if t.OnDone != nil {
		t.OnDone(t.PollID)
	}
}
func (*PeriodicPollTask) isReadTask() {}

// SingleReadTask is a one-time user-initiated read (spec §4.4 read()).
type SingleReadTask struct {
	base
	Template RequestTemplate
	Callback ReadCallback
}

func NewSingleReadTask(address uint16, tmpl RequestTemplate, cb ReadCallback) *SingleReadTask {
	t := &SingleReadTask{Template: tmpl, Callback: cb}
	t.address = address
	t.onError = func(err merr.TaskError) { cb.Invoke(ReadResult{Err: err}) }
	return t
}

func (t *SingleReadTask) Function() dnp3.FunctionCode { return dnp3.FuncRead }
func (t *SingleReadTask) Name() string                { return "single-read" }
func (t *SingleReadTask) WriteRequest(w *dnp3.HeaderWriter) error {
	return t.Template.Write(w)
}
func (t *SingleReadTask) ProcessFragment(h dnp3.ReadHandler, resp dnp3.ResponseFragment) {
	dispatchFragment(h, resp)
}
func (t *SingleReadTask) Complete() {
	t.Callback.Invoke(ReadResult{})
}
func (*SingleReadTask) isReadTask() {}

func dispatchFragment(h dnp3.ReadHandler, resp dnp3.ResponseFragment) {
	info := dnp3.ResponseInfo{IIN: resp.IIN, IsUnsolicited: resp.Control.UNS, HasMoreFragments: !resp.Control.FIN}
	h.BeginFragment(info)
	for _, header := range resp.Headers {
		dnp3.DispatchHeader(h, header)
	}
	h.EndFragment(info)
}
