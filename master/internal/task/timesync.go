package task

import (
	"time"

	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/merr"
)

// TimeProvider supplies the association's current UTC time, modeling
// AssociationHandler.get_current_time() (spec §4.4, §9): value is only
// meaningful when valid is true.
type TimeProvider func() (ms int64, valid bool)

// KnownTime tracks/validates the previously synchronized time, used for the
// ClockRollback check (spec §4.4 sync_time()).
type KnownTime interface {
	Get() (ms int64, ok bool)
	Set(ms int64)
}

type timeSyncPhase int

const (
	phaseHandshake timeSyncPhase = iota
	phaseWriteTime
)

// TimeSyncTask implements both the NonLan (Delay-Measurement → Write) and
// Lan (Record-Current-Time → Write) handshakes (spec §4.4 sync_time(),
// glossary "LAN vs NonLAN time sync").
type TimeSyncTask struct {
	base
	mode      dnp3.TimeSyncMode
	phase     timeSyncPhase
	provider  TimeProvider
	known     KnownTime
	callback  TimeSyncCallback
	writeMs   uint64 // set once phase transitions to phaseWriteTime
	requestTx time.Time
}

func NewTimeSyncTask(address uint16, mode dnp3.TimeSyncMode, provider TimeProvider, known KnownTime, cb TimeSyncCallback) *TimeSyncTask {
	t := &TimeSyncTask{mode: mode, phase: phaseHandshake, provider: provider, known: known, callback: cb}
	t.address = address
	t.onError = func(err merr.TaskError) { cb.Invoke(merr.TimeSyncFailure(err)) }
	return t
}

func (t *TimeSyncTask) Function() dnp3.FunctionCode {
	if t.phase == phaseWriteTime {
		return dnp3.FuncWrite
	}
	if t.mode == dnp3.Lan {
		return dnp3.FuncRecordCurrentTime
	}
	return dnp3.FuncDelayMeasure
}

func (t *TimeSyncTask) Name() string {
	switch {
	case t.phase == phaseWriteTime:
		return "time-sync-write"
	case t.mode == dnp3.Lan:
		return "time-sync-record-current-time"
	default:
		return "time-sync-delay-measure"
	}
}

func (t *TimeSyncTask) WriteRequest(w *dnp3.HeaderWriter) error {
	if t.phase == phaseWriteTime {
		return w.WriteAbsoluteTime(t.writeMs)
	}
	return nil // DelayMeasure / RecordCurrentTime carry no object headers
}

// SetRequestTx records the wall-clock instant this fragment was transmitted,
// called by the session runner immediately before the write; required for
// the NonLan round-trip delay computation.
func (t *TimeSyncTask) SetRequestTx(tx time.Time) { t.requestTx = tx }

// Handle satisfies NonReadTask; TimeSyncTask always needs the response
// arrival instant too, so the runner must call HandleTimed instead. Handle
// exists for interface satisfaction and direct unit testing convenience,
// using time.Now() as the arrival instant.
func (t *TimeSyncTask) Handle(resp dnp3.ResponseFragment) (NonReadTask, bool) {
	return t.HandleTimed(resp, t.requestTx, time.Now())
}

// HandleTimed processes the response given the exact request-transmit and
// response-arrival instants (spec §4.4, §8 scenario 3).
func (t *TimeSyncTask) HandleTimed(resp dnp3.ResponseFragment, txTime, arrival time.Time) (NonReadTask, bool) {
	if t.phase == phaseWriteTime {
		if resp.IIN.NeedTime() {
			t.callback.Invoke(merr.TimeSyncFailure(merr.ErrStillNeedsTime))
			return nil, true
		}
		t.callback.Invoke(merr.TimeSyncSuccess())
		return nil, true
	}

	nowMs, valid := t.provider()
	if !valid {
		t.callback.Invoke(merr.TimeSyncFailure(merr.ErrSystemTimeNotUnix))
		return nil, true
	}

	var newTimeMs int64
	if t.mode == dnp3.Lan {
		newTimeMs = nowMs
	} else {
		header, ok := dnp3.FindHeader(resp.Headers, 52, 2)
		if !ok || len(header.Objects) == 0 {
			t.callback.Invoke(merr.TimeSyncFailure(merr.ErrBadResponse))
			return nil, true
		}
		delayMs, err := dnp3.DecodeUint16LE(header.Objects[0].Data)
		if err != nil {
			t.callback.Invoke(merr.TimeSyncFailure(merr.ErrBadResponse))
			return nil, true
		}
		roundTripMs := arrival.Sub(txTime).Milliseconds()
		if int64(delayMs) > roundTripMs {
			t.callback.Invoke(merr.TimeSyncFailure(merr.ErrBadOutstationTimeDelay))
			return nil, true
		}
		oneWayMs := (roundTripMs - int64(delayMs)) / 2
		newTimeMs = nowMs + oneWayMs
	}

	if known, ok := t.known.Get(); ok && newTimeMs < known {
		t.callback.Invoke(merr.TimeSyncFailure(merr.ErrClockRollback))
		return nil, true
	}
	if uint64(newTimeMs) > dnp3.MaxTimestampMillis {
		t.callback.Invoke(merr.TimeSyncFailure(merr.ErrOverflow))
		return nil, true
	}

	t.known.Set(newTimeMs)
	next := &TimeSyncTask{
		base:     base{address: t.address, onError: t.onError},
		mode:     t.mode,
		phase:    phaseWriteTime,
		provider: t.provider,
		known:    t.known,
		callback: t.callback,
		writeMs:  uint64(newTimeMs),
	}
	return next, false
}

func (*TimeSyncTask) isNonReadTask() {}
