package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/assoc"
	"github.com/go-dnp3/dnp3master/master/internal/task"
	"github.com/go-dnp3/dnp3master/master/internal/transport"
)

// fakeTransport is an in-memory transport.Transport for exercising the
// runner without a real socket, matching the half-duplex
// WriteFragment/Incoming shape `transport.Transport` defines.
type fakeTransport struct {
	incoming chan transport.Incoming
	written  [][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{incoming: make(chan transport.Incoming, 8)}
}

func (f *fakeTransport) WriteFragment(ctx context.Context, data []byte) error {
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}
func (f *fakeTransport) Incoming() <-chan transport.Incoming { return f.incoming }
func (f *fakeTransport) Close() error                        { return nil }

func (f *fakeTransport) push(resp []byte) { f.incoming <- transport.Incoming{Data: resp} }

func encodeResponse(seq uint8, fir, fin bool, iin dnp3.IIN) []byte {
	ctrl := dnp3.AppControl{FIR: fir, FIN: fin, Seq: seq}
	return []byte{ctrl.Byte(), byte(dnp3.FuncResponse), iin.IIN1, iin.IIN2}
}

// countingReadHandler only tracks fragment boundaries, enough to assert
// dispatch happened without decoding any object payloads.
type countingReadHandler struct {
	dnp3.NopReadHandler
	fragments int
}

func (h *countingReadHandler) BeginFragment(info dnp3.ResponseInfo) { h.fragments++ }

func newRunnerWithAssoc(address uint16, cfg assoc.Config, rh dnp3.ReadHandler) (*Runner, *assoc.Association, *fakeTransport) {
	a := assoc.New(address, cfg, nil, rh)
	s := NewScheduler()
	s.Add(a)
	r := NewRunner(s, nil, nil)
	return r, a, newFakeTransport()
}

func TestRunnerReassemblesMultiFragmentReadResponse(t *testing.T) {
	cfg := assoc.DefaultConfig()
	cfg.ResponseTimeout = time.Second
	r, a, tr := newRunnerWithAssoc(1, cfg, nil)

	readDone := make(chan task.ReadResult, 1)
	require.NoError(t, a.EnqueueRead(task.ClassesRequest{Classes: dnp3.Class1230()}, func(res task.ReadResult) { readDone <- res }))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	go func() {
		// The first three responses complete the auto tasks armed on
		// connect (disable-unsolicited, startup-integrity,
		// enable-unsolicited; seq 0-2); the fourth and fifth (FIR/FIN
		// split) complete the queued read (seq 3).
		for seq := uint8(0); seq < 3; seq++ {
			time.Sleep(10 * time.Millisecond)
			tr.push(encodeResponse(seq, true, true, dnp3.IIN{}))
		}
		time.Sleep(10 * time.Millisecond)
		tr.push(encodeResponse(3, true, false, dnp3.IIN{}))
		time.Sleep(10 * time.Millisecond)
		tr.push(encodeResponse(3, false, true, dnp3.IIN{}))
	}()

	r.Run(ctx, tr, make(chan Command))

	select {
	case res := <-readDone:
		require.NoError(t, res.Err)
	default:
		t.Fatal("read task never completed")
	}
}

func TestRunnerResponseTimeoutFailsTaskWithoutCrashing(t *testing.T) {
	cfg := assoc.DefaultConfig()
	cfg.ResponseTimeout = 20 * time.Millisecond
	r, a, tr := newRunnerWithAssoc(1, cfg, nil)

	var gotErr error
	done := make(chan struct{})
	require.NoError(t, a.EnqueueRead(task.ClassesRequest{}, func(res task.ReadResult) { gotErr = res.Err; close(done) }))

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	go func() {
		// the auto tasks armed on connect (disable-unsolicited,
		// startup-integrity, enable-unsolicited; seq 0-2) are answered
		// immediately; the queued single-read is left to time out under test.
		for seq := uint8(0); seq < 3; seq++ {
			time.Sleep(5 * time.Millisecond)
			tr.push(encodeResponse(seq, true, true, dnp3.IIN{}))
		}
	}()

	commands := make(chan Command)
	go r.Run(ctx, tr, commands)

	select {
	case <-done:
		require.Error(t, gotErr)
	case <-time.After(350 * time.Millisecond):
		t.Fatal("task callback never invoked after response timeout")
	}
}

func TestRunnerDispatchesUnsolicitedWhenIdle(t *testing.T) {
	cfg := assoc.DefaultConfig()
	cfg.KeepAliveTimeout = 0
	rh := &countingReadHandler{}
	r, _, tr := newRunnerWithAssoc(0, cfg, rh)

	ctx, cancel := context.WithCancel(context.Background())
	commands := make(chan Command)

	runDone := make(chan RunError, 1)
	go func() { runDone <- r.Run(ctx, tr, commands) }()

	time.Sleep(10 * time.Millisecond)
	// completes disable-unsolicited, startup-integrity and
	// enable-unsolicited (seq 0-2), runner goes idle
	for seq := uint8(0); seq < 3; seq++ {
		tr.push(encodeResponse(seq, true, true, dnp3.IIN{}))
	}

	time.Sleep(20 * time.Millisecond)
	unsolCtrl := dnp3.AppControl{FIR: true, FIN: true, UNS: true}
	tr.push([]byte{unsolCtrl.Byte(), byte(dnp3.FuncUnsolicitedResponse), 0, 0})

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 2, rh.fragments, "the startup-integrity response, then the unsolicited frame dispatched to the addressed association's ReadHandler while idle")

	cancel()
	res := <-runDone
	require.True(t, res.Shutdown)
}
