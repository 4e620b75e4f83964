package session

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/internal/logx"
	"github.com/go-dnp3/dnp3master/master/internal/backoff"
	"github.com/go-dnp3/dnp3master/master/internal/transport"
)

// ClientState is the connection-lifecycle observation emitted to the
// embedder at every transition (spec §4.1). The serial variant reuses the
// same shape under the name PortState in the public master package.
type ClientState int

const (
	StateDisabled ClientState = iota
	StateConnecting
	StateConnected
	StateWaitAfterFailedConnect
	StateWaitAfterDisconnect
	StateShutdown
)

func (s ClientState) String() string {
	switch s {
	case StateDisabled:
		return "Disabled"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateWaitAfterFailedConnect:
		return "WaitAfterFailedConnect"
	case StateWaitAfterDisconnect:
		return "WaitAfterDisconnect"
	case StateShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// ConnectStrategy bounds the supervisor's reconnect pacing (spec §4.1,
// defaults 1s/10s/1s).
type ConnectStrategy struct {
	MinConnectDelay time.Duration
	MaxConnectDelay time.Duration
	ReconnectDelay  time.Duration
}

func DefaultConnectStrategy() ConnectStrategy {
	return ConnectStrategy{MinConnectDelay: time.Second, MaxConnectDelay: 10 * time.Second, ReconnectDelay: time.Second}
}

func (c ConnectStrategy) backoffStrategy() backoff.Strategy {
	return backoff.Strategy{MinDelay: c.MinConnectDelay, MaxDelay: c.MaxConnectDelay}
}

// Dialer opens the next byte-stream connection attempt; TCP and serial
// channels differ only in this.
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
}

// tcpDialer rotates through an ordered endpoint list, one attempt per call
// (spec §6 "the supervisor rotates through it on each connect attempt").
type tcpDialer struct {
	endpoints []string
	next      int
	dial      func(ctx context.Context, network, address string) (net.Conn, error)
}

func NewTCPDialer(endpoints []string) Dialer {
	d := net.Dialer{}
	return &tcpDialer{endpoints: endpoints, dial: d.DialContext}
}

func (d *tcpDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	endpoint := d.endpoints[d.next%len(d.endpoints)]
	d.next++
	return d.dial(ctx, "tcp", endpoint)
}

type serialDialer struct {
	open func(ctx context.Context) (io.ReadWriteCloser, error)
}

// NewSerialDialer wraps an already-configured serial port opener; the
// concrete termios/baud-rate settings live in the (not modeled here)
// embedder config, matching spec §4.1's "substitute TcpStream::connect with
// open_serial(path, settings)".
func NewSerialDialer(open func(ctx context.Context) (io.ReadWriteCloser, error)) Dialer {
	return &serialDialer{open: open}
}

func (d *serialDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) { return d.open(ctx) }

// signal is a supervisor-level control message, distinct from the
// session-level Command: it must be actable on even while no Runner exists
// (disconnected, mid-backoff-wait, or mid-connect).
type signal int

const (
	sigEnable signal = iota
	sigDisable
	sigShutdown
)

// Supervisor owns one channel's connect/run/reconnect lifecycle (spec
// §4.1), grounded on
// `_examples/original_source/src/master/tcp/mod.rs`'s run loop: dial, run
// the session to completion, classify the outcome (shutdown vs link loss),
// and either stop or wait and retry.
type Supervisor struct {
	Dialer    Dialer
	Strategy  ConnectStrategy
	Scheduler *Scheduler
	TxBuffer  int
	RxBuffer  int
	OnState   func(ClientState)
	Commands  chan Command
	Level     *DecodeLevelBox
	Observer  Observer

	control chan signal
}

func NewSupervisor(dialer Dialer, strategy ConnectStrategy, scheduler *Scheduler, txBuffer, rxBuffer int, level *DecodeLevelBox, onState func(ClientState)) *Supervisor {
	if onState == nil {
		onState = func(ClientState) {}
	}
	if level == nil {
		level = NewDecodeLevelBox(dnp3.DecodeNothing)
	}
	return &Supervisor{
		Dialer:    dialer,
		Strategy:  strategy,
		Scheduler: scheduler,
		TxBuffer:  txBuffer,
		RxBuffer:  rxBuffer,
		OnState:   onState,
		Commands:  make(chan Command, 100),
		Level:     level,
		Observer:  NopObserver{},
		control:   make(chan signal, 1),
	}
}

func (s *Supervisor) Enable()   { s.control <- sigEnable }
func (s *Supervisor) Disable()  { s.control <- sigDisable }
func (s *Supervisor) Shutdown() { s.control <- sigShutdown }

// Run blocks until Shutdown is signaled or ctx is canceled. It starts
// disabled (spec's channels are created disabled until the embedder calls
// enable, matching `create_channel_*`'s separate `enable` capability).
func (s *Supervisor) Run(ctx context.Context) {
	state := StateDisabled
	s.emit(&state, StateDisabled)
	enabled := false

	for {
		if !enabled {
			select {
			case <-ctx.Done():
				s.emit(&state, StateShutdown)
				return
			case sig := <-s.control:
				switch sig {
				case sigShutdown:
					s.emit(&state, StateShutdown)
					return
				case sigEnable:
					enabled = true
				case sigDisable:
					// already disabled
				}
			}
			continue
		}

		cycleCtx, cancel := context.WithCancel(ctx)
		outcome := make(chan cycleOutcome, 1)
		go func() { outcome <- s.runCycle(cycleCtx, &state) }()

		select {
		case o := <-outcome:
			cancel()
			if o.shutdown || ctx.Err() != nil {
				s.emit(&state, StateShutdown)
				return
			}
			// runCycle performs its own connect-failure and reconnect
			// waits (and their state emissions) and returns a non-shutdown
			// outcome only once its context ends; loop to retry unless
			// meanwhile disabled below.
		case sig := <-s.control:
			switch sig {
			case sigDisable:
				cancel()
				<-outcome
				enabled = false
				s.emit(&state, StateDisabled)
			case sigShutdown:
				cancel()
				<-outcome
				s.emit(&state, StateShutdown)
				return
			case sigEnable:
				// already enabled
			}
		}
	}
}

type cycleOutcome struct {
	shutdown bool
}

// runCycle dials repeatedly, waiting the backoff delay after each failed
// attempt; after a successful dial it runs the session to completion, waits
// the fixed reconnect_delay if the session ended in a link error, and dials
// again. It returns only when ctx is canceled (disable/shutdown) or the
// session reports Shutdown.
func (s *Supervisor) runCycle(ctx context.Context, state *ClientState) cycleOutcome {
	bo := backoff.New(s.Strategy.backoffStrategy())

	for {
		s.emit(state, StateConnecting)
		conn, err := s.Dialer.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return cycleOutcome{}
			}
			delay := bo.OnFailure()
			logx.Warn("connect failed", logx.KeyError, err.Error(), logx.KeyDelayMs, delay.Milliseconds())
			s.emit(state, StateWaitAfterFailedConnect)
			if !s.sleep(ctx, delay) {
				return cycleOutcome{}
			}
			continue
		}

		bo.OnSuccess()
		s.emit(state, StateConnected)

		tr := transport.NewStream(conn, s.TxBuffer, s.RxBuffer)
		runner := NewRunner(s.Scheduler, s.Level, s.Observer)
		result := runner.Run(ctx, tr, s.Commands)
		_ = tr.Close()

		if result.Shutdown {
			return cycleOutcome{shutdown: true}
		}

		logx.Warn("session ended with link error", logx.KeyError, errString(result.Link))
		s.emit(state, StateWaitAfterDisconnect)
		if !s.sleep(ctx, s.Strategy.ReconnectDelay) {
			return cycleOutcome{}
		}
		// Clean link loss does not count as a connect failure for backoff
		// purposes (spec §4.1: "no doubling" on this path); bo keeps its
		// post-OnSuccess reset state for the next genuine connect failure.
	}
}

func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Supervisor) emit(state *ClientState, next ClientState) {
	*state = next
	s.OnState(next)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
