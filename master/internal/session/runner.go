package session

import (
	"context"
	"errors"
	"time"

	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/internal/logx"
	"github.com/go-dnp3/dnp3master/master/internal/assoc"
	"github.com/go-dnp3/dnp3master/master/internal/merr"
	"github.com/go-dnp3/dnp3master/master/internal/task"
	"github.com/go-dnp3/dnp3master/master/internal/transport"
)

// Command is one message posted by the handle API (spec §4.5); the session
// package stays agnostic of the full message taxonomy by letting the master
// package hand it a closure to run with exclusive access to the runner,
// mirroring spec §5's "embedder threads mutate nothing directly — they post
// messages".
type Command func(r *Runner)

// errShutdown signals that the session itself must stop (as opposed to a
// single task failing); the connection supervisor treats it as terminal.
var errShutdown = errors.New("session: shutdown")

// Observer receives lifecycle notifications for metrics/tracing; both
// methods are called unconditionally so a nil Observer must not be passed —
// use NopObserver instead (spec's "nil-receiver-safe" ambient metrics
// pattern is implemented one level up, in the master package's Metrics
// type).
type Observer interface {
	TaskStarted(address uint16, name string)
	TaskCompleted(address uint16, name string, err error)
}

type NopObserver struct{}

func (NopObserver) TaskStarted(uint16, string)        {}
func (NopObserver) TaskCompleted(uint16, string, error) {}

// Runner drives one connected session (spec §4.2): it owns the scheduler,
// pulls one task at a time, transmits it, awaits and correlates the
// response, and hands measurement data to the owning association.
type Runner struct {
	Scheduler *Scheduler
	Observer  Observer
	Level     *DecodeLevelBox

	unsolBuffer []dnp3.ResponseFragment
}

func NewRunner(scheduler *Scheduler, level *DecodeLevelBox, observer Observer) *Runner {
	if level == nil {
		level = NewDecodeLevelBox(dnp3.DecodeNothing)
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Runner{Scheduler: scheduler, Observer: observer, Level: level}
}

// RunError is returned by Run when the session must hand control back to
// the connection supervisor.
type RunError struct {
	Shutdown bool
	Link     error
}

func (e RunError) Error() string {
	if e.Shutdown {
		return "session shutdown"
	}
	return "link error: " + e.Link.Error()
}

// Run executes the main loop of spec §4.2 until shutdown or a link-layer
// error. tr is owned exclusively by this call for its duration; on return
// (for any reason) the caller (the connection supervisor) is responsible
// for closing it.
func (r *Runner) Run(ctx context.Context, tr transport.Transport, commands <-chan Command) RunError {
	for _, a := range r.Scheduler.Associations() {
		a.ArmAfterConnect(time.Now())
	}

	for {
		r.drainUnsolicited()

		select {
		case <-ctx.Done():
			return RunError{Shutdown: true}
		case cmd := <-commands:
			cmd(r)
			continue
		default:
		}

		now := time.Now()
		t, owner, ok := r.Scheduler.Next(now)
		if !ok {
			if linkErr, shutdown := r.idle(ctx, tr, commands, now); shutdown || linkErr != nil {
				if shutdown {
					return RunError{Shutdown: true}
				}
				return RunError{Link: linkErr}
			}
			continue
		}

		if linkErr, shutdown := r.runTask(ctx, tr, owner, t); shutdown || linkErr != nil {
			if shutdown {
				return RunError{Shutdown: true}
			}
			return RunError{Link: linkErr}
		}
	}
}

// idle waits for the earliest of: a command, an incoming (necessarily
// unsolicited, since nothing is in flight) frame, or the next scheduler
// deadline (spec §4.2 step 1).
func (r *Runner) idle(ctx context.Context, tr transport.Transport, commands <-chan Command, now time.Time) (linkErr error, shutdown bool) {
	var timerC <-chan time.Time
	if deadline, ok := r.Scheduler.NextDeadline(now); ok {
		d := time.Until(deadline)
		if d < 0 {
			d = 0
		}
		timerC = time.After(d)
	} else {
		timerC = time.After(time.Second)
	}

	select {
	case <-ctx.Done():
		return nil, true
	case cmd := <-commands:
		cmd(r)
		return nil, false
	case inc := <-tr.Incoming():
		if inc.Err != nil {
			return inc.Err, false
		}
		r.handleUnsolicited(inc.Data)
		return nil, false
	case <-timerC:
		return nil, false
	}
}

// handleUnsolicited parses and dispatches a frame received with nothing in
// flight: per spec §4.2 step 2, UNS=1 FIR=FIN=1 frames go straight to the
// addressed association's ReadHandler.
func (r *Runner) handleUnsolicited(data []byte) {
	resp, err := dnp3.ParseResponseFragment(0, data)
	if err != nil {
		logx.Warn("dropping unparseable unsolicited frame", logx.KeyError, err.Error())
		return
	}
	r.dispatchUnsolicited(resp)
}

func (r *Runner) dispatchUnsolicited(resp dnp3.ResponseFragment) {
	owner, ok := r.Scheduler.Get(resp.Source)
	if !ok {
		return
	}
	owner.ApplyIIN(resp.IIN)
	info := dnp3.ResponseInfo{IIN: resp.IIN, IsUnsolicited: true}
	owner.ReadHandler.BeginFragment(info)
	for _, h := range resp.Headers {
		dnp3.DispatchHeader(owner.ReadHandler, h)
	}
	owner.ReadHandler.EndFragment(info)
}

// bufferUnsolicited defers a stray/unsolicited frame observed while awaiting
// a specific solicited response (spec §9 open question (i): "a conservative
// implementation buffers unsolicited fragments for post-dispatch").
func (r *Runner) bufferUnsolicited(resp dnp3.ResponseFragment) {
	r.unsolBuffer = append(r.unsolBuffer, resp)
}

func (r *Runner) drainUnsolicited() {
	buffered := r.unsolBuffer
	r.unsolBuffer = nil
	for _, resp := range buffered {
		r.dispatchUnsolicited(resp)
	}
}

// runTask transmits t and awaits its response(s), looping over any
// follow-up NonReadTask a multi-round protocol produces (spec §4.2 steps
// 4-6).
func (r *Runner) runTask(ctx context.Context, tr transport.Transport, owner *assoc.Association, t task.Task) (linkErr error, shutdown bool) {
	r.Observer.TaskStarted(owner.Address, t.Name())

	for {
		if linkTask, isLink := t.(interface{ IsLinkStatusRequest() bool }); isLink && linkTask.IsLinkStatusRequest() {
			// The real REQUEST_LINK_STATUS primitive belongs to the
			// out-of-scope link layer (spec §1); here a successful write is
			// itself the observation.
			if err := tr.WriteFragment(ctx, nil); err != nil {
				t.OnTaskError(merr.NewTaskError(merr.ErrWriteError))
				r.Observer.TaskCompleted(owner.Address, t.Name(), err)
				return err, false
			}
			if completer, ok := t.(interface{ Complete() }); ok {
				completer.Complete()
			}
			owner.RecordActivity(time.Now())
			r.Observer.TaskCompleted(owner.Address, t.Name(), nil)
			return nil, false
		}

		seq := owner.NextSeq()
		w := dnp3.NewHeaderWriter()
		if err := t.WriteRequest(w); err != nil {
			t.OnTaskError(merr.NewTaskError(merr.ErrWriteError))
			r.Observer.TaskCompleted(owner.Address, t.Name(), err)
			return nil, false
		}

		req := dnp3.RequestFragment{
			Destination: owner.Address,
			Function:    t.Function(),
			Control:     dnp3.AppControl{FIR: true, FIN: true, Seq: seq},
			Objects:     w.Bytes(),
		}

		txTime := time.Now()
		if ts, ok := t.(*task.TimeSyncTask); ok {
			ts.SetRequestTx(txTime)
		}

		if err := tr.WriteFragment(ctx, req.Encode()); err != nil {
			t.OnTaskError(merr.NewTaskError(merr.ErrWriteError))
			r.Observer.TaskCompleted(owner.Address, t.Name(), err)
			return err, false
		}

		if r.Level.Get() >= dnp3.DecodeHeader {
			logx.Debug("transmitted request", logx.KeyAddress, owner.Address, logx.KeyFunction, t.Function().String(), logx.KeySequence, seq)
		}

		deadline := txTime.Add(owner.Config.ResponseTimeout)

		switch tt := t.(type) {
		case task.ReadTask:
			le, sd := r.awaitRead(ctx, tr, owner, seq, tt, deadline)
			r.Observer.TaskCompleted(owner.Address, t.Name(), le)
			return le, sd
		case task.NonReadTask:
			next, le, sd := r.awaitNonRead(ctx, tr, owner, seq, tt, deadline, txTime)
			if le != nil || sd {
				r.Observer.TaskCompleted(owner.Address, t.Name(), le)
				return le, sd
			}
			if next == nil {
				r.Observer.TaskCompleted(owner.Address, t.Name(), nil)
				return nil, false
			}
			t = next // follow-up round: SELECT→OPERATE, DelayMeasure→Write, etc.
			continue
		default:
			r.Observer.TaskCompleted(owner.Address, t.Name(), nil)
			return nil, false
		}
	}
}

func (r *Runner) awaitRead(ctx context.Context, tr transport.Transport, owner *assoc.Association, seq uint8, t task.ReadTask, deadline time.Time) (linkErr error, shutdown bool) {
	first := true
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.OnTaskError(merr.NewTaskError(merr.ErrResponseTimeout))
			return nil, false
		}
		select {
		case <-ctx.Done():
			t.OnTaskError(merr.NewTaskError(merr.ErrShutdown))
			return nil, true
		case inc := <-tr.Incoming():
			if inc.Err != nil {
				t.OnTaskError(merr.NewTaskError(merr.ErrNoConnection))
				return inc.Err, false
			}
			resp, err := dnp3.ParseResponseFragment(owner.Address, inc.Data)
			if err != nil {
				t.OnTaskError(merr.NewTaskError(merr.ErrBadResponse))
				return nil, false
			}
			if !r.isMatchingSolicited(resp, seq) {
				r.bufferUnsolicited(resp)
				continue
			}
			if first && !resp.Control.FIR {
				t.OnTaskError(merr.NewTaskError(merr.ErrBadResponse))
				return nil, false
			}
			if !first && resp.Control.FIR {
				t.OnTaskError(merr.NewTaskError(merr.ErrBadResponse))
				return nil, false
			}
			first = false
			owner.ApplyIIN(resp.IIN)
			t.ProcessFragment(owner.ReadHandler, resp)
			if resp.Control.FIN {
				t.Complete()
				owner.RecordActivity(time.Now())
				return nil, false
			}
		case <-time.After(remaining):
			t.OnTaskError(merr.NewTaskError(merr.ErrResponseTimeout))
			return nil, false
		}
	}
}

func (r *Runner) awaitNonRead(ctx context.Context, tr transport.Transport, owner *assoc.Association, seq uint8, t task.NonReadTask, deadline time.Time, txTime time.Time) (next task.NonReadTask, linkErr error, shutdown bool) {
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.OnTaskError(merr.NewTaskError(merr.ErrResponseTimeout))
			return nil, nil, false
		}
		select {
		case <-ctx.Done():
			t.OnTaskError(merr.NewTaskError(merr.ErrShutdown))
			return nil, nil, true
		case inc := <-tr.Incoming():
			if inc.Err != nil {
				t.OnTaskError(merr.NewTaskError(merr.ErrNoConnection))
				return nil, inc.Err, false
			}
			resp, err := dnp3.ParseResponseFragment(owner.Address, inc.Data)
			if err != nil {
				t.OnTaskError(merr.NewTaskError(merr.ErrBadResponse))
				return nil, nil, false
			}
			if !r.isMatchingSolicited(resp, seq) || !resp.Control.FIR || !resp.Control.FIN {
				r.bufferUnsolicited(resp)
				continue
			}
			owner.ApplyIIN(resp.IIN)
			var nt task.NonReadTask
			var done bool
			if ts, ok := t.(*task.TimeSyncTask); ok {
				nt, done = ts.HandleTimed(resp, txTime, time.Now())
			} else {
				nt, done = t.Handle(resp)
			}
			owner.RecordActivity(time.Now())
			if done {
				return nil, nil, false
			}
			return nt, nil, false
		case <-time.After(remaining):
			t.OnTaskError(merr.NewTaskError(merr.ErrResponseTimeout))
			return nil, nil, false
		}
	}
}

// isMatchingSolicited reports whether resp correlates with the outstanding
// request's sequence number (spec §3 invariant: "sequence number of a
// solicited response must equal the request sequence, else the response is
// treated as unsolicited/stale and ignored for correlation").
func (r *Runner) isMatchingSolicited(resp dnp3.ResponseFragment, seq uint8) bool {
	if resp.Control.UNS || resp.Function == dnp3.FuncUnsolicitedResponse {
		return false
	}
	if resp.Function != dnp3.FuncResponse {
		return false
	}
	return resp.Control.Seq == seq
}
