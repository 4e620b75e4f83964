package dnp3

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Qualifier is the object header qualifier field (group/variation selector +
// range/count/prefix encoding).
type Qualifier uint8

const (
	QualStartStop8       Qualifier = 0x00
	QualStartStop16      Qualifier = 0x01
	QualAllObjects       Qualifier = 0x06
	QualCount8           Qualifier = 0x07
	QualCount16          Qualifier = 0x08
	QualCountAndPrefix8  Qualifier = 0x17
	QualCountAndPrefix16 Qualifier = 0x28
	QualFreeFormat       Qualifier = 0x5B
)

// PrefixedObject is one indexed object within a count-and-prefix header.
type PrefixedObject struct {
	Index uint32
	Data  []byte
}

// ObjectHeader is a single Group/Variation qualifier header plus its raw
// object payload, as produced by the (out-of-scope) object-variation parser.
type ObjectHeader struct {
	Group     uint8
	Variation uint8
	Qualifier Qualifier
	Start     uint32 // valid for range qualifiers
	Stop      uint32
	Objects   []PrefixedObject // valid for count/count+prefix qualifiers
}

// HeaderInfo is the (Group, Variation) pair surfaced to a ReadHandler's
// BeginHeader/EndHeader markers.
type HeaderInfo struct {
	Group     uint8
	Variation uint8
}

func (h ObjectHeader) Info() HeaderInfo {
	return HeaderInfo{Group: h.Group, Variation: h.Variation}
}

// HeaderWriter accumulates object headers into an outgoing request fragment.
// It is a minimal concrete stand-in for the real IEEE-1815 object-variation
// serializer, which is out of scope for this module (see SPEC_FULL.md Part
// E): it supports exactly the headers the master's own task writers need to
// produce (class reads, single-object reads, command headers).
type HeaderWriter struct {
	buf bytes.Buffer
}

func NewHeaderWriter() *HeaderWriter { return &HeaderWriter{} }

func (w *HeaderWriter) Bytes() []byte { return w.buf.Bytes() }

func (w *HeaderWriter) Len() int { return w.buf.Len() }

// WriteAllObjects writes a Group/Variation header with the all-objects (0x06)
// qualifier, used for class reads and startup integrity.
func (w *HeaderWriter) WriteAllObjects(group, variation uint8) error {
	w.buf.WriteByte(group)
	w.buf.WriteByte(variation)
	w.buf.WriteByte(byte(QualAllObjects))
	return nil
}

// WriteClass1230 writes the four class-read headers (Group 60 Var 1-4, all
// objects) that make up a startup integrity scan.
func (w *HeaderWriter) WriteClass1230() error {
	for v := uint8(1); v <= 4; v++ {
		if err := w.WriteAllObjects(60, v); err != nil {
			return err
		}
	}
	return nil
}

// WriteEventClasses writes class-read headers (Group 60 Var 2-4, all
// objects) for the given non-empty event class subset.
func (w *HeaderWriter) WriteEventClasses(classes EventClasses) error {
	if classes.Class1 {
		if err := w.WriteAllObjects(60, 2); err != nil {
			return err
		}
	}
	if classes.Class2 {
		if err := w.WriteAllObjects(60, 3); err != nil {
			return err
		}
	}
	if classes.Class3 {
		if err := w.WriteAllObjects(60, 4); err != nil {
			return err
		}
	}
	return nil
}

// WriteRange16 writes a Group/Variation header with a 16-bit start-stop
// range qualifier (0x01), used for single-object reads by index.
func (w *HeaderWriter) WriteRange16(group, variation uint8, start, stop uint16) error {
	w.buf.WriteByte(group)
	w.buf.WriteByte(variation)
	w.buf.WriteByte(byte(QualStartStop16))
	_ = binary.Write(&w.buf, binary.LittleEndian, start)
	_ = binary.Write(&w.buf, binary.LittleEndian, stop)
	return nil
}

// WriteCountAndPrefix16 writes a Group/Variation header with a 16-bit
// count-and-prefix qualifier (0x28), used for command requests (CROB,
// analog output) and their SELECT/OPERATE echoes.
func (w *HeaderWriter) WriteCountAndPrefix16(group, variation uint8, objects []PrefixedObject) error {
	w.buf.WriteByte(group)
	w.buf.WriteByte(variation)
	w.buf.WriteByte(byte(QualCountAndPrefix16))
	_ = binary.Write(&w.buf, binary.LittleEndian, uint16(len(objects)))
	for _, obj := range objects {
		_ = binary.Write(&w.buf, binary.LittleEndian, uint16(obj.Index))
		w.buf.Write(obj.Data)
	}
	return nil
}

// WriteAbsoluteTime writes a Group 50 Variation 1 header carrying a single
// 48-bit millisecond timestamp, used by the Write (0x02) step of both time
// synchronization handshakes.
func (w *HeaderWriter) WriteAbsoluteTime(ms uint64) error {
	w.buf.WriteByte(50)
	w.buf.WriteByte(1)
	w.buf.WriteByte(byte(QualCount8))
	w.buf.WriteByte(1)
	w.buf.Write(EncodeAbsoluteTime(ms))
	return nil
}

// EncodeCROB serializes a Group 12 Variation 1 CROB payload (11 bytes).
func EncodeCROB(c CROB) []byte {
	var b bytes.Buffer
	b.WriteByte(byte(c.Code))
	b.WriteByte(c.Count)
	_ = binary.Write(&b, binary.LittleEndian, uint32(c.OnTime.Milliseconds()))
	_ = binary.Write(&b, binary.LittleEndian, uint32(c.OffTime.Milliseconds()))
	b.WriteByte(byte(c.Status))
	return b.Bytes()
}

// DecodeCROB parses a Group 12 Variation 1 CROB payload.
func DecodeCROB(data []byte) (CROB, error) {
	if len(data) < 11 {
		return CROB{}, fmt.Errorf("dnp3: short CROB payload: %d bytes", len(data))
	}
	return CROB{
		Code:    ControlCode(data[0]),
		Count:   data[1],
		OnTime:  msDuration(binary.LittleEndian.Uint32(data[2:6])),
		OffTime: msDuration(binary.LittleEndian.Uint32(data[6:10])),
		Status:  CommandStatus(data[10]),
	}, nil
}

func msDuration(ms uint32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
