package session

import (
	"sync/atomic"

	"github.com/go-dnp3/dnp3master/dnp3"
)

// DecodeLevelBox is a concurrency-safe holder for the channel's current
// trace-decode verbosity (spec §6 `set_decode_level`/`get_decode_level`).
// It is shared by reference between the Channel (embedder-facing setter/
// getter) and every Runner across reconnects, so a decode-level change
// takes effect immediately on the live session and survives a reconnect
// without needing to round-trip through the command channel.
type DecodeLevelBox struct {
	v atomic.Int32
}

func NewDecodeLevelBox(initial dnp3.DecodeLevel) *DecodeLevelBox {
	b := &DecodeLevelBox{}
	b.v.Store(int32(initial))
	return b
}

func (b *DecodeLevelBox) Get() dnp3.DecodeLevel { return dnp3.DecodeLevel(b.v.Load()) }
func (b *DecodeLevelBox) Set(l dnp3.DecodeLevel) { b.v.Store(int32(l)) }
