package assoc

import (
	"time"

	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/merr"
	"github.com/go-dnp3/dnp3master/master/internal/task"
)

// autoFlags are the six per-association automatic-task states. ApplyIIN arms
// clear-restart, startup-integrity, need-time and event-scan from IIN bits
// during post-response processing (spec §3, §4.2 step 6); ArmAfterConnect
// arms startup-integrity and unsolicited disable/enable for each new session.
type autoFlags struct {
	needsClearRestart   bool
	needsUnsolDisable   bool
	needsStartupIntegrity bool
	needsUnsolEnable    bool
	needsTimeSync       bool
	needsEventScan      bool
}

// Association is the per-outstation state described by spec §3/§4.4: a
// channel owns one Association per configured 16-bit outstation address.
// All mutation happens from the single session runner goroutine (spec §5 —
// no internal locking beyond the request queue, which embedder threads may
// also touch via the channel's command path).
type Association struct {
	Address     uint16
	Config      Config
	Handler     Handler
	ReadHandler dnp3.ReadHandler

	Polls *PollSet
	queue *requestQueue
	known *knownTime

	flags        autoFlags
	seq          uint8
	lastActivity time.Time

	removed bool
}

func New(address uint16, cfg Config, handler Handler, readHandler dnp3.ReadHandler) *Association {
	if handler == nil {
		handler = SystemClockHandler{}
	}
	if readHandler == nil {
		readHandler = dnp3.NopReadHandler{}
	}
	return &Association{
		Address:     address,
		Config:      cfg,
		Handler:     handler,
		ReadHandler: readHandler,
		Polls:       NewPollSet(),
		queue:       newRequestQueue(cfg.MaxQueuedUserRequests),
		known:       &knownTime{},
		flags: autoFlags{
			needsStartupIntegrity: true, // first connect always runs Class1230 (spec §8 scenario 1)
		},
	}
}

// NextSeq allocates the next 4-bit application sequence number, incremented
// modulo 16 regardless of the previous request's outcome (spec §4.2 step 4,
// §8 "sequence numbers of consecutive solicited requests are (s, (s+1) mod
// 16)").
func (a *Association) NextSeq() uint8 {
	s := a.seq
	a.seq = dnp3.NextSeq(a.seq)
	return s
}

// TimeProvider adapts Handler to task.TimeProvider.
func (a *Association) TimeProvider() task.TimeProvider { return a.Handler.CurrentTime }

// KnownTime exposes the association's last-synchronized-time tracker.
func (a *Association) KnownTime() task.KnownTime { return a.known }

// ApplyIIN updates the automatic-reaction flags from a response's IIN field
// (spec §4.2 step 6). Called once per received response, solicited or
// unsolicited.
func (a *Association) ApplyIIN(iin dnp3.IIN) {
	if iin.Restart() {
		a.flags.needsClearRestart = true
		a.flags.needsStartupIntegrity = true
	}
	if iin.NeedTime() && a.Config.AutoTimeSync != dnp3.AutoTimeSyncNone {
		a.flags.needsTimeSync = true
	}
	if iin.EventBufferOverflow() && a.Config.AutoIntegrityScanOnEventBufferOverflow {
		a.flags.needsStartupIntegrity = true
	}
	if iin.HasClassEvents() {
		a.flags.needsEventScan = true
	}
}

// ArmAfterConnect sets the flags that must run once per new session: startup
// integrity, plus unsolicited disable/enable per configuration. now seeds the
// keep-alive timer so it does not fire immediately on connect.
func (a *Association) ArmAfterConnect(now time.Time) {
	a.flags.needsUnsolDisable = !a.Config.EventClassesToDisable.None()
	a.flags.needsUnsolEnable = !a.Config.EventClassesToEnable.None()
	a.flags.needsStartupIntegrity = true
	a.lastActivity = now
}

// RecordActivity rearms the keep-alive timer, called after every successful
// request/response on this association (spec §3 "Keep-alive timer is
// rearmed on every successful request/response").
func (a *Association) RecordActivity(now time.Time) { a.lastActivity = now }

// NeedsKeepAlive reports whether the idle interval has elapsed without
// traffic (spec §4.3 priority 4, "Keep-alive (link-status) when idle for
// keep_alive_timeout"). A zero KeepAliveTimeout disables keep-alive.
func (a *Association) NeedsKeepAlive(now time.Time) bool {
	if a.Config.KeepAliveTimeout <= 0 {
		return false
	}
	return now.Sub(a.lastActivity) >= a.Config.KeepAliveTimeout
}

// NextKeepAliveDeadline returns the instant at which this association's
// keep-alive will next become due, so the scheduler can size the runner's
// idle wait instead of falling back to a fixed poll interval. ok is false
// when keep-alive is disabled (KeepAliveTimeout <= 0).
func (a *Association) NextKeepAliveDeadline() (time.Time, bool) {
	if a.Config.KeepAliveTimeout <= 0 {
		return time.Time{}, false
	}
	return a.lastActivity.Add(a.Config.KeepAliveTimeout), true
}

// BuildKeepAliveTask constructs the automatic link-status check and resets
// the idle timer so it is not immediately re-armed next scheduler pass.
func (a *Association) BuildKeepAliveTask(now time.Time) task.Task {
	a.lastActivity = now
	return task.NewLinkStatusTask(a.Address, nil)
}

// NextAutoTask returns the highest-priority armed automatic reaction, if
// any, in the order fixed by spec §4.3: ClearRestart > DisableUnsol >
// StartupIntegrity > EnableUnsol > NeedTime > EventScan. Link status
// (keep-alive) is scheduled separately by the scheduler's idle-timeout path,
// not as an association-armed flag.
//
// The returned value is either a task.ReadTask (StartupIntegrity, EventScan)
// or a task.NonReadTask (everything else); callers type-switch on Task.
func (a *Association) NextAutoTask() (task.Task, task.AutoKind, bool) {
	switch {
	case a.flags.needsClearRestart:
		a.flags.needsClearRestart = false
		return task.NewClearRestartTask(a.Address, func() {}, a.onAutoError(task.AutoClearRestart)),
			task.AutoClearRestart, true
	case a.flags.needsUnsolDisable:
		a.flags.needsUnsolDisable = false
		return task.NewDisableUnsolicitedTask(a.Address, a.Config.EventClassesToDisable, func() {}, a.onAutoError(task.AutoDisableUnsolicited)),
			task.AutoDisableUnsolicited, true
	case a.flags.needsStartupIntegrity:
		a.flags.needsStartupIntegrity = false
		return task.NewStartupIntegrityTask(a.Address, func() {}, a.onAutoError(task.AutoStartupIntegrity)),
			task.AutoStartupIntegrity, true
	case a.flags.needsUnsolEnable:
		a.flags.needsUnsolEnable = false
		return task.NewEnableUnsolicitedTask(a.Address, a.Config.EventClassesToEnable, func() {}, a.onAutoError(task.AutoEnableUnsolicited)),
			task.AutoEnableUnsolicited, true
	case a.flags.needsTimeSync:
		a.flags.needsTimeSync = false
		mode := dnp3.Lan
		if a.Config.AutoTimeSync == dnp3.AutoTimeSyncNonLan {
			mode = dnp3.NonLan
		}
		cb := func(r merr.TimeSyncResult) {
			if !r.Ok() {
				a.onAutoError(task.AutoNeedTime)(r.TaskError)
			}
		}
		return task.NewTimeSyncTask(a.Address, mode, a.TimeProvider(), a.KnownTime(), cb),
			task.AutoNeedTime, true
	case a.flags.needsEventScan:
		a.flags.needsEventScan = false
		return task.NewEventScanReadTask(a.Address, a.Config.EventScanClasses, func() {}, a.onAutoError(task.AutoEventScan)),
			task.AutoEventScan, true
	default:
		return nil, 0, false
	}
}

// onAutoError re-arms the flag for kind at once, so the next scheduler pass
// retries the task (spec §4.2 step 7). Config.RetryStrategy is not consulted:
// no delay is applied between a failed auto task and its retry.
func (a *Association) onAutoError(kind task.AutoKind) func(merr.TaskError) {
	return func(merr.TaskError) {
		switch kind {
		case task.AutoClearRestart:
			a.flags.needsClearRestart = true
		case task.AutoDisableUnsolicited:
			a.flags.needsUnsolDisable = true
		case task.AutoStartupIntegrity:
			a.flags.needsStartupIntegrity = true
		case task.AutoEnableUnsolicited:
			a.flags.needsUnsolEnable = true
		case task.AutoNeedTime:
			a.flags.needsTimeSync = true
		case task.AutoEventScan:
			a.flags.needsEventScan = true
		}
	}
}

// --- user-initiated requests (spec §4.4) ---

func (a *Association) EnqueueRead(tmpl task.RequestTemplate, cb task.ReadCallback) error {
	return a.enqueue(task.NewSingleReadTask(a.Address, tmpl, cb))
}

func (a *Association) EnqueueCommand(mode dnp3.CommandMode, headers []dnp3.CommandHeader, cb task.CommandCallback) error {
	return a.enqueue(task.NewCommandTask(a.Address, mode, headers, cb))
}

func (a *Association) EnqueueTimeSync(mode dnp3.TimeSyncMode, cb task.TimeSyncCallback) error {
	return a.enqueue(task.NewTimeSyncTask(a.Address, mode, a.TimeProvider(), a.KnownTime(), cb))
}

func (a *Association) EnqueueRestart(kind task.RestartKind, cb task.RestartCallback) error {
	return a.enqueue(task.NewRestartTask(a.Address, kind, cb))
}

func (a *Association) EnqueueLinkStatus(cb task.LinkStatusCallback) error {
	return a.enqueue(task.NewLinkStatusTask(a.Address, cb))
}

func (a *Association) EnqueuePoll(tmpl task.RequestTemplate, period time.Duration, now time.Time) uint64 {
	return a.Polls.Add(tmpl, period, now)
}

func (a *Association) enqueue(t task.Task) error {
	if err := a.queue.Enqueue(t); err != nil {
		t.OnTaskError(merr.NewTaskError(merr.ErrTooManyRequests))
		return merr.ErrTooManyRequests
	}
	return nil
}

// NextUserRequest pops the oldest queued user task, if any.
func (a *Association) NextUserRequest() (task.Task, bool) {
	return a.queue.Pop()
}

// DuePolls returns every poll task ready to run, as Task values wrapping a
// PeriodicPollTask bound to this association.
func (a *Association) DuePolls(now time.Time) []task.Task {
	due := a.Polls.DueBefore(now)
	out := make([]task.Task, 0, len(due))
	for _, p := range due {
		pollID := p.ID
		out = append(out, task.NewPeriodicPollTask(a.Address, pollID, p.Template, func(id uint64) {
			a.Polls.Reschedule(id, time.Now())
		}, func(merr.TaskError) {
			// failed poll simply retries at its next natural period; no
			// separate retry state is tracked for polls (spec §4.3/§8).
			a.Polls.Reschedule(pollID, time.Now())
		}))
	}
	return out
}

// Remove marks the association removed and drains its queue with
// AssociationRemoved (spec §3 "removable mid-session ... must complete with
// AssociationRemoved").
func (a *Association) Remove() {
	a.removed = true
	a.queue.DrainWith(func(t task.Task) {
		t.OnTaskError(merr.NewTaskError(merr.ErrAssociationRemoved))
	})
}

func (a *Association) Removed() bool { return a.removed }

// Shutdown drains the queue with Shutdown (spec §5 "all queued tasks fail
// with Shutdown").
func (a *Association) Shutdown() {
	a.queue.DrainWith(func(t task.Task) {
		t.OnTaskError(merr.NewTaskError(merr.ErrShutdown))
	})
}
