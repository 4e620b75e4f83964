// Package archive durably records measurement events (binary/analog/counter
// input changes) delivered to a read handler, keyed by channel, association
// and point index, so an embedder can query history after the fact instead
// of only observing the live callback stream. This is a supplemented
// feature (spec §3 History/Archive) backed by an embedded KV store rather
// than the in-process handler alone.
//
// Grounded on `_examples/marmos91-dittofs/pkg/metadata/store/badger`'s
// badger.Txn-based transactional key/value access pattern.
package archive

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// PointKind names the DNP3 object group family of an archived point.
type PointKind string

const (
	KindBinary  PointKind = "binary"
	KindAnalog  PointKind = "analog"
	KindCounter PointKind = "counter"
)

// Event is one archived measurement change.
type Event struct {
	Channel     string    `json:"channel"`
	Association uint16    `json:"association"`
	Kind        PointKind `json:"kind"`
	Index       uint32    `json:"index"`
	Value       float64   `json:"value"`
	Flags       uint8     `json:"flags"`
	Time        time.Time `json:"time"`
}

// Archive is a badger-backed append-only event log, keyed so that a range
// scan over one channel/association/point naturally orders events by time.
type Archive struct {
	db *badger.DB
}

// Open opens (creating if necessary) the archive at path.
func Open(path string) (*Archive, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive at %q: %w", path, err)
	}
	return &Archive{db: db}, nil
}

// Close releases the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Record appends one event to the archive.
func (a *Archive) Record(ev Event) error {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode archive event: %w", err)
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(ev), data)
	})
}

// Query returns every archived event for one channel/association/point,
// in time order, between since and until (until zero means "now").
func (a *Archive) Query(channel string, association uint16, kind PointKind, index uint32, since, until time.Time) ([]Event, error) {
	if until.IsZero() {
		until = time.Now()
	}
	prefix := pointPrefix(channel, association, kind, index)

	var events []Event
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var ev Event
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return fmt.Errorf("failed to decode archive event: %w", err)
			}
			if ev.Time.Before(since) || ev.Time.After(until) {
				continue
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// eventKey lays out <channel>/<assoc>/<kind>/<index>/<unixnano> so that a
// prefix scan over one point yields events in ascending time order.
func eventKey(ev Event) []byte {
	key := pointPrefix(ev.Channel, ev.Association, ev.Kind, ev.Index)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(ev.Time.UnixNano()))
	return append(key, ts[:]...)
}

func pointPrefix(channel string, association uint16, kind PointKind, index uint32) []byte {
	key := []byte(fmt.Sprintf("%s/%05d/%s/", channel, association, kind))
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	return append(key, idx[:]...)
}
