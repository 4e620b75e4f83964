// Package transport implements the frame-level read/write façade of spec §2
// ("Transport I/O adapter") and §6 ("the core is agnostic to link and
// transport framing (delegated), but must produce and consume
// application-layer fragments"). Real LPDU CRC framing and FT3
// transport-segment FIR/FIN reassembly are out of scope (spec §1); this
// package provides a length-prefixed stand-in sufficient to carry
// application fragments over any byte stream, grounded on the simple binary
// framing conventions used throughout
// `_examples/marmos91-dittofs/internal/protocol/nfs`'s RPC record marking.
package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrFragmentTooLarge is returned when an outgoing fragment exceeds the
// configured transmit buffer, or an incoming length prefix exceeds the
// configured receive buffer (spec §3 "must fit the configured transmit
// buffer").
var ErrFragmentTooLarge = errors.New("transport: fragment exceeds configured buffer size")

// Incoming is one frame (or terminal error) delivered off the wire. Once Err
// is non-nil the producing Transport's channel is closed.
type Incoming struct {
	Data []byte
	Err  error
}

// Transport is the byte-stream façade the session runner drives: one
// request fragment out, a continuous stream of incoming fragments (solicited
// responses and unsolicited frames alike — the runner tells them apart).
// Incoming is always being read in the background so an unsolicited frame
// can be observed even while the runner is otherwise idle (spec §4.2 step
// 1(d)); WriteFragment is the only operation callers explicitly sequence,
// matching the half-duplex invariant (spec §3: at most one request in
// flight).
type Transport interface {
	WriteFragment(ctx context.Context, data []byte) error
	Incoming() <-chan Incoming
	Close() error
}

// streamTransport frames fragments as a 2-byte little-endian length prefix
// followed by the fragment bytes, over an arbitrary io.ReadWriteCloser. Used
// by both the TCP and serial adapters.
type streamTransport struct {
	rw      io.ReadWriteCloser
	txLimit int
	rxLimit int

	incoming chan Incoming
}

func newStreamTransport(rw io.ReadWriteCloser, txLimit, rxLimit int) *streamTransport {
	t := &streamTransport{rw: rw, txLimit: txLimit, rxLimit: rxLimit, incoming: make(chan Incoming, 4)}
	go t.readLoop()
	return t
}

func (t *streamTransport) readLoop() {
	for {
		var hdr [2]byte
		if _, err := io.ReadFull(t.rw, hdr[:]); err != nil {
			t.incoming <- Incoming{Err: err}
			close(t.incoming)
			return
		}
		n := int(binary.LittleEndian.Uint16(hdr[:]))
		if n > t.rxLimit {
			t.incoming <- Incoming{Err: fmt.Errorf("%w: %d > %d", ErrFragmentTooLarge, n, t.rxLimit)}
			close(t.incoming)
			return
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(t.rw, buf); err != nil {
			t.incoming <- Incoming{Err: err}
			close(t.incoming)
			return
		}
		t.incoming <- Incoming{Data: buf}
	}
}

func (t *streamTransport) WriteFragment(ctx context.Context, data []byte) error {
	if len(data) > t.txLimit {
		return fmt.Errorf("%w: %d > %d", ErrFragmentTooLarge, len(data), t.txLimit)
	}
	done := make(chan error, 1)
	go func() {
		var hdr [2]byte
		binary.LittleEndian.PutUint16(hdr[:], uint16(len(data)))
		if _, err := t.rw.Write(hdr[:]); err != nil {
			done <- err
			return
		}
		_, err := t.rw.Write(data)
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (t *streamTransport) Incoming() <-chan Incoming { return t.incoming }

func (t *streamTransport) Close() error { return t.rw.Close() }

// NewStream wraps any byte stream as a Transport, regardless of its
// concrete kind; used by the connection supervisor, which dials TCP and
// serial endpoints through the same Dialer abstraction and so only ever
// holds an io.ReadWriteCloser. NewTCP/NewSerial remain as the
// kind-specific, more precisely typed entry points for callers that do
// know their concrete connection type.
func NewStream(rw io.ReadWriteCloser, txBufferSize, rxBufferSize int) Transport {
	return newStreamTransport(rw, txBufferSize, rxBufferSize)
}
