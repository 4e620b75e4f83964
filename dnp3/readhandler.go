package dnp3

// ResponseInfo is surfaced to a ReadHandler's BeginFragment/EndFragment
// markers: whether this fragment is part of a multi-fragment reassembly and
// whether it carries broadcast/unsolicited framing.
type ResponseInfo struct {
	IIN            IIN
	IsUnsolicited  bool
	HasMoreFragments bool // false on the FIN=1 fragment
}

// ReadHandler is the opaque capability an association exposes to the
// session runner for delivering measurement data, one callback per object
// class, bracketed by fragment/header start and end markers. Out-of-scope
// byte-level decoding is assumed to have already produced the typed values
// passed to each method; this module only defines the method set.
type ReadHandler interface {
	BeginFragment(info ResponseInfo)
	EndFragment(info ResponseInfo)

	BeginHeader(header HeaderInfo)
	EndHeader(header HeaderInfo)

	BinaryInput(index uint32, value BinaryValue)
	AnalogInput(index uint32, value AnalogValue)
	Counter(index uint32, value CounterValue)
	FrozenCounter(index uint32, value CounterValue)
	BinaryOutputStatus(index uint32, value BinaryValue)
	AnalogOutputStatus(index uint32, value AnalogValue)
	OctetString(index uint32, value []byte)
	BinaryCommandEvent(index uint32, value CommandEventValue)
	AnalogCommandEvent(index uint32, value AnalogCommandEventValue)

	// UnknownObject is invoked for any Group/Variation this ReadHandler does
	// not specifically enumerate; embedders that only care about a subset
	// of object classes can leave it a no-op.
	UnknownObject(header HeaderInfo)
}

// NopReadHandler is a ReadHandler that discards everything; useful as an
// embedding default and in tests that only care about task-level outcomes.
type NopReadHandler struct{}

func (NopReadHandler) BeginFragment(ResponseInfo)                        {}
func (NopReadHandler) EndFragment(ResponseInfo)                          {}
func (NopReadHandler) BeginHeader(HeaderInfo)                            {}
func (NopReadHandler) EndHeader(HeaderInfo)                              {}
func (NopReadHandler) BinaryInput(uint32, BinaryValue)                   {}
func (NopReadHandler) AnalogInput(uint32, AnalogValue)                   {}
func (NopReadHandler) Counter(uint32, CounterValue)                      {}
func (NopReadHandler) FrozenCounter(uint32, CounterValue)                {}
func (NopReadHandler) BinaryOutputStatus(uint32, BinaryValue)            {}
func (NopReadHandler) AnalogOutputStatus(uint32, AnalogValue)            {}
func (NopReadHandler) OctetString(uint32, []byte)                       {}
func (NopReadHandler) BinaryCommandEvent(uint32, CommandEventValue)       {}
func (NopReadHandler) AnalogCommandEvent(uint32, AnalogCommandEventValue) {}
func (NopReadHandler) UnknownObject(HeaderInfo)                         {}

// DispatchHeader routes a parsed ObjectHeader's objects to the appropriate
// ReadHandler callback by Group/Variation. It is the minimal bridge between
// the out-of-scope object-variation decoder and the ReadHandler surface;
// only the groups relevant to this module's tests and task model are wired.
func DispatchHeader(h ReadHandler, header ObjectHeader) {
	h.BeginHeader(header.Info())
	switch {
	case header.Group == 12 && header.Variation == 1:
		for _, obj := range header.Objects {
			if crob, err := DecodeCROB(obj.Data); err == nil {
				h.BinaryCommandEvent(obj.Index, CommandEventValue{Status: crob.Status})
			}
		}
	default:
		h.UnknownObject(header.Info())
	}
	h.EndHeader(header.Info())
}
