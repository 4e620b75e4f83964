package assoc

import (
	"sync"
	"time"
)

// Handler supplies the embedder-provided callbacks an association needs
// beyond measurement dispatch (spec §3 "an association handler providing
// current UTC time", §9 "Time source").
type Handler interface {
	// CurrentTime returns the current UTC time in milliseconds since the
	// epoch, and whether that value is valid (non-negative, representable).
	CurrentTime() (ms int64, valid bool)
}

// SystemClockHandler is the default Handler, backed by the host clock.
type SystemClockHandler struct{}

func (SystemClockHandler) CurrentTime() (int64, bool) {
	ms := time.Now().UnixMilli()
	if ms < 0 {
		return 0, false
	}
	return ms, true
}

// knownTime tracks the last successfully synchronized outstation time for
// the ClockRollback check (spec §4.4 sync_time ClockRollback), satisfying
// task.KnownTime.
type knownTime struct {
	mu    sync.Mutex
	ms    int64
	valid bool
}

func (k *knownTime) Get() (int64, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ms, k.valid
}

func (k *knownTime) Set(ms int64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ms = ms
	k.valid = true
}
