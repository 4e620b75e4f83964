package dnp3

// DecodeLevel controls how verbosely the session runner traces wire
// fragments, independent of the embedder's own logging severity (SPEC_FULL.md
// Part D.8; restored from the original implementation's DecodeLogLevel,
// which the distilled spec dropped).
type DecodeLevel int

const (
	// DecodeNothing traces nothing beyond what the ambient logger already
	// emits for task lifecycle events.
	DecodeNothing DecodeLevel = iota
	// DecodeHeader traces function code, IIN, and application control only.
	DecodeHeader
	// DecodeObjectHeaders additionally traces each object header's
	// Group/Variation/qualifier.
	DecodeObjectHeaders
	// DecodeObjectValues additionally traces each object's raw payload.
	DecodeObjectValues
)

func (d DecodeLevel) String() string {
	switch d {
	case DecodeHeader:
		return "header"
	case DecodeObjectHeaders:
		return "object-headers"
	case DecodeObjectValues:
		return "object-values"
	default:
		return "nothing"
	}
}
