package dnp3

import "fmt"

// RequestFragment is an outgoing application-layer PDU addressed from the
// master to an outstation.
type RequestFragment struct {
	Destination uint16
	Source      uint16
	Function    FunctionCode
	Control     AppControl
	Objects     []byte // pre-serialized object headers (see HeaderWriter)
}

// Encode serializes the fragment: destination/source are carried by the
// (out-of-scope) transport segment addressing, so the application fragment
// itself is just control-octet + function + objects.
func (f RequestFragment) Encode() []byte {
	out := make([]byte, 0, 2+len(f.Objects))
	out = append(out, f.Control.Byte(), byte(f.Function))
	out = append(out, f.Objects...)
	return out
}

// ResponseFragment is a parsed incoming application-layer PDU.
type ResponseFragment struct {
	Source   uint16
	Control  AppControl
	Function FunctionCode
	IIN      IIN
	Headers  []ObjectHeader
}

// ParseResponseFragment decodes the control octet, function code, IIN (for
// Response/UnsolicitedResponse only), and any remaining object headers.
// Full object-variation decoding is delegated to the (out-of-scope) parser;
// here headers are decoded only insofar as their qualifier class is
// understood by HeaderWriter's counterpart encodings, which is sufficient
// for the engine's own correlation and ReadHandler dispatch.
func ParseResponseFragment(source uint16, raw []byte) (ResponseFragment, error) {
	if len(raw) < 2 {
		return ResponseFragment{}, fmt.Errorf("dnp3: fragment too short: %d bytes", len(raw))
	}
	ctrl := ParseAppControl(raw[0])
	fn := FunctionCode(raw[1])
	rest := raw[2:]

	resp := ResponseFragment{Source: source, Control: ctrl, Function: fn}

	switch fn {
	case FuncResponse, FuncUnsolicitedResponse:
		if len(rest) < 2 {
			return ResponseFragment{}, fmt.Errorf("dnp3: response missing IIN bytes")
		}
		resp.IIN = ParseIIN(rest[0], rest[1])
		rest = rest[2:]
	}

	headers, err := parseObjectHeaders(rest)
	if err != nil {
		return ResponseFragment{}, fmt.Errorf("dnp3: %w", err)
	}
	resp.Headers = headers
	return resp, nil
}

func parseObjectHeaders(data []byte) ([]ObjectHeader, error) {
	var headers []ObjectHeader
	for len(data) > 0 {
		if len(data) < 3 {
			return nil, fmt.Errorf("truncated object header")
		}
		h := ObjectHeader{Group: data[0], Variation: data[1], Qualifier: Qualifier(data[2])}
		data = data[3:]
		switch h.Qualifier {
		case QualAllObjects:
			// no further payload
		case QualStartStop16:
			if len(data) < 4 {
				return nil, fmt.Errorf("truncated range qualifier")
			}
			h.Start = uint32(data[0]) | uint32(data[1])<<8
			h.Stop = uint32(data[2]) | uint32(data[3])<<8
			data = data[4:]
		case QualStartStop8:
			if len(data) < 2 {
				return nil, fmt.Errorf("truncated range qualifier")
			}
			h.Start = uint32(data[0])
			h.Stop = uint32(data[1])
			data = data[2:]
		case QualCount8:
			if len(data) < 1 {
				return nil, fmt.Errorf("truncated count qualifier")
			}
			count := int(data[0])
			data = data[1:]
			size := fixedObjectSize(h.Group, h.Variation)
			for i := 0; i < count; i++ {
				if len(data) < size {
					return nil, fmt.Errorf("truncated fixed object")
				}
				payload := append([]byte(nil), data[:size]...)
				h.Objects = append(h.Objects, PrefixedObject{Index: uint32(i), Data: payload})
				data = data[size:]
			}
		case QualCountAndPrefix16:
			if len(data) < 2 {
				return nil, fmt.Errorf("truncated count qualifier")
			}
			count := int(uint16(data[0]) | uint16(data[1])<<8)
			data = data[2:]
			size := objectSize(h.Group, h.Variation)
			for i := 0; i < count; i++ {
				if len(data) < 2+size {
					return nil, fmt.Errorf("truncated prefixed object")
				}
				idx := uint32(data[0]) | uint32(data[1])<<8
				payload := append([]byte(nil), data[2:2+size]...)
				h.Objects = append(h.Objects, PrefixedObject{Index: idx, Data: payload})
				data = data[2+size:]
			}
		default:
			return nil, fmt.Errorf("unsupported qualifier 0x%02x", byte(h.Qualifier))
		}
		headers = append(headers, h)
	}
	return headers, nil
}

// objectSize returns the fixed payload size, in bytes, for the object
// variations the engine itself must be able to round-trip (command echoes
// and the small set of measurement types exercised by tests). Variations
// outside this set are not expected to appear in count-and-prefix headers
// the engine parses itself.
func objectSize(group, variation uint8) int {
	switch {
	case group == 12 && variation == 1: // CROB
		return 11
	case group == 41 && variation == 1: // analog output, 32-bit
		return 5
	case group == 41 && variation == 2: // analog output, 16-bit
		return 3
	case group == 41 && variation == 3: // analog output, float32
		return 5
	case group == 41 && variation == 4: // analog output, double64
		return 9
	default:
		return 0
	}
}
