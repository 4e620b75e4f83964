package master

import (
	"context"
	"io"
	"time"

	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/assoc"
	"github.com/go-dnp3/dnp3master/master/internal/session"
	"github.com/go-dnp3/dnp3master/master/internal/task"
)

// Channel is one DNP3 master-station endpoint: a connection supervisor plus
// the scheduler/associations it drives (spec §4, §6 `create_channel_*`).
// The association, poll and request methods post onto the supervisor's
// command channel rather than mutating the scheduler directly (spec §5).
// Enable, Disable and Destroy signal the supervisor's control channel,
// SetDecodeLevel updates a shared decode-level box, and Associations reads
// the scheduler directly.
type Channel struct {
	supervisor *session.Supervisor
	scheduler  *session.Scheduler
	cancel     context.CancelFunc
	metrics    *Metrics
}

// CreateChannelTCP opens a channel against an ordered endpoint list,
// rotated on each connect attempt (spec §6). The channel starts disabled;
// call Enable to begin connecting.
func CreateChannelTCP(endpoints []string, strategy ConnectStrategy, txBuffer, rxBuffer int, onState func(ClientState), metrics *Metrics) *Channel {
	scheduler := session.NewScheduler()
	dialer := session.NewTCPDialer(endpoints)
	level := session.NewDecodeLevelBox(dnp3.DecodeNothing)
	sup := session.NewSupervisor(dialer, strategy, scheduler, txBuffer, rxBuffer, level, onState)
	return newChannel(sup, scheduler, metrics)
}

// SerialOpener opens (or re-opens, after a disconnect) the configured
// serial port; concrete baud-rate/parity settings are the embedder's
// concern (spec §4.1 "substitute TcpStream::connect with
// open_serial(path, settings)" — settings live outside this module's
// scope).
type SerialOpener func(ctx context.Context) (io.ReadWriteCloser, error)

// CreateChannelSerial opens a channel over a serial port, retrying a failed
// open at the fixed delay openRetryDelay.MinConnectDelay in place of the TCP
// variant's doubling connect backoff (spec §4.1); after a link loss it waits
// openRetryDelay.ReconnectDelay. The channel starts disabled.
func CreateChannelSerial(open SerialOpener, openRetryDelay ConnectStrategy, txBuffer, rxBuffer int, onState func(PortState), metrics *Metrics) *Channel {
	scheduler := session.NewScheduler()
	dialer := session.NewSerialDialer(open)
	level := session.NewDecodeLevelBox(dnp3.DecodeNothing)
	fixed := openRetryDelay
	fixed.MaxConnectDelay = fixed.MinConnectDelay // caps doubling at the first delay
	sup := session.NewSupervisor(dialer, fixed, scheduler, txBuffer, rxBuffer, level, onState)
	return newChannel(sup, scheduler, metrics)
}

func newChannel(sup *session.Supervisor, scheduler *session.Scheduler, metrics *Metrics) *Channel {
	if metrics == nil {
		metrics = NopMetrics()
	}
	sup.Observer = observer{m: metrics}
	ctx, cancel := context.WithCancel(context.Background())
	ch := &Channel{supervisor: sup, scheduler: scheduler, cancel: cancel, metrics: metrics}
	go sup.Run(ctx)
	return ch
}

func (c *Channel) Enable()  { c.supervisor.Enable() }
func (c *Channel) Disable() { c.supervisor.Disable() }

// Destroy shuts the channel down permanently (spec §6 `destroy`): queued
// and in-flight tasks fail with Shutdown, the transport is closed, and the
// supervisor's goroutine exits.
func (c *Channel) Destroy() {
	c.supervisor.Shutdown()
	c.cancel()
}

func (c *Channel) SetDecodeLevel(level DecodeLevel) { c.supervisor.Level.Set(level) }
func (c *Channel) GetDecodeLevel() DecodeLevel       { return c.supervisor.Level.Get() }

// AddAssociation registers an outstation on this channel (spec §6
// `add_association`). The outstation address doubles as the association
// id: it already uniquely identifies the association within the channel
// (one association per address), so no separate id allocator is needed.
func (c *Channel) AddAssociation(address uint16, cfg AssociationConfig, handler AssociationHandler, readHandler ReadHandler) uint16 {
	a := assoc.New(address, cfg, handler, readHandler)
	c.supervisor.Commands <- func(r *session.Runner) { r.Scheduler.Add(a) }
	return address
}

// RemoveAssociation drops an association; queued and in-flight tasks on it
// complete with AssociationRemoved (spec §3, §5).
func (c *Channel) RemoveAssociation(address uint16) {
	c.supervisor.Commands <- func(r *session.Runner) {
		if a, ok := r.Scheduler.Get(address); ok {
			a.Remove()
			r.Scheduler.Remove(address)
		}
	}
}

func (c *Channel) AddPoll(address uint16, tmpl RequestTemplate, period time.Duration) (pollID uint64, ok bool) {
	done := make(chan uint64, 1)
	c.supervisor.Commands <- func(r *session.Runner) {
		if a, found := r.Scheduler.Get(address); found {
			done <- a.EnqueuePoll(tmpl, period, time.Now())
			return
		}
		done <- 0
	}
	id := <-done
	return id, id != 0
}

func (c *Channel) RemovePoll(address uint16, pollID uint64) {
	c.supervisor.Commands <- func(r *session.Runner) {
		if a, ok := r.Scheduler.Get(address); ok {
			a.Polls.Remove(pollID)
		}
	}
}

func (c *Channel) DemandPoll(address uint16, pollID uint64) {
	c.supervisor.Commands <- func(r *session.Runner) {
		if a, ok := r.Scheduler.Get(address); ok {
			a.Polls.Demand(pollID, time.Now())
		}
	}
}

// Read enqueues a one-time read request (spec §4.4 `read`).
func (c *Channel) Read(address uint16, tmpl RequestTemplate, cb ReadCallback) {
	c.dispatchEnqueue(address, func(a *assoc.Association) error {
		return a.EnqueueRead(tmpl, cb)
	})
}

// Operate enqueues a command (DirectOperate or Select-Before-Operate,
// spec §4.4 `operate`).
func (c *Channel) Operate(address uint16, mode CommandMode, headers []CommandHeader, cb CommandCallback) {
	c.dispatchEnqueue(address, func(a *assoc.Association) error {
		return a.EnqueueCommand(mode, headers, cb)
	})
}

// SyncTime enqueues a time-synchronization handshake (spec §4.4 `sync_time`).
func (c *Channel) SyncTime(address uint16, mode TimeSyncMode, cb TimeSyncCallback) {
	c.dispatchEnqueue(address, func(a *assoc.Association) error {
		return a.EnqueueTimeSync(mode, cb)
	})
}

func (c *Channel) ColdRestart(address uint16, cb RestartCallback) {
	c.dispatchEnqueue(address, func(a *assoc.Association) error {
		return a.EnqueueRestart(task.ColdRestart, cb)
	})
}

func (c *Channel) WarmRestart(address uint16, cb RestartCallback) {
	c.dispatchEnqueue(address, func(a *assoc.Association) error {
		return a.EnqueueRestart(task.WarmRestart, cb)
	})
}

func (c *Channel) CheckLinkStatus(address uint16, cb LinkStatusCallback) {
	c.dispatchEnqueue(address, func(a *assoc.Association) error {
		return a.EnqueueLinkStatus(cb)
	})
}

// dispatchEnqueue posts the enqueue onto the command channel; a
// TooManyRequests rejection is reported through the same callback path a
// successful completion would use (Association.enqueue invokes the task's
// OnTaskError itself before returning the error), so embedders never need a
// separate synchronous error return to observe queue overflow.
func (c *Channel) dispatchEnqueue(address uint16, enqueue func(*assoc.Association) error) {
	c.supervisor.Commands <- func(r *session.Runner) {
		a, ok := r.Scheduler.Get(address)
		if !ok {
			return
		}
		_ = enqueue(a)
	}
}

// Associations lists every configured outstation address.
func (c *Channel) Associations() []uint16 {
	addrs := make([]uint16, 0)
	for _, a := range c.scheduler.Associations() {
		addrs = append(addrs, a.Address)
	}
	return addrs
}
