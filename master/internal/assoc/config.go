// Package assoc implements the per-outstation association state of spec
// §3/§4.4: configuration, the automatic-reaction flags armed by IIN bits,
// the periodic poll set, and the bounded user-request queue. Grounded on
// the per-file FIFO waiter queue in
// `_examples/marmos91-dittofs/internal/protocol/nlm/blocking/queue.go`,
// adapted from "waiters blocked on a lock" to "user requests queued on an
// association".
package assoc

import (
	"time"

	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/backoff"
)

// Config is the per-association configuration (spec §3 "Association",
// §6 "Configuration defaults").
type Config struct {
	StartupIntegrityClasses dnp3.Classes
	EventClassesToEnable    dnp3.EventClasses
	EventClassesToDisable   dnp3.EventClasses
	EventScanClasses        dnp3.EventClasses
	AutoTimeSync            dnp3.AutoTimeSyncMode
	RetryStrategy           backoff.Strategy

	ResponseTimeout                       time.Duration
	KeepAliveTimeout                      time.Duration
	AutoIntegrityScanOnEventBufferOverflow bool
	MaxQueuedUserRequests                  int
}

// DefaultConfig returns the spec §6 defaults.
func DefaultConfig() Config {
	return Config{
		StartupIntegrityClasses: dnp3.Class1230(),
		EventClassesToEnable:    dnp3.AllEventClasses(),
		EventClassesToDisable:   dnp3.AllEventClasses(),
		EventScanClasses:        dnp3.AllEventClasses(),
		AutoTimeSync:            dnp3.AutoTimeSyncNone,
		RetryStrategy:           backoff.Strategy{MinDelay: time.Second, MaxDelay: 10 * time.Second},

		ResponseTimeout:                        5 * time.Second,
		KeepAliveTimeout:                        60 * time.Second,
		AutoIntegrityScanOnEventBufferOverflow: true,
		MaxQueuedUserRequests:                  16,
	}
}
