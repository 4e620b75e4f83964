// Package dnp3 defines the application-layer wire types the master's session
// engine depends on: function codes, IIN bits, object header qualifiers, and
// the small set of object variations the engine itself must recognize to
// drive its state machines (Group 52 restart delay, Group 50 time, Group 12
// CROBs, Group 41 analog outputs). Byte-level encode/decode of the full
// object variation set (Groups 1/2/3/4/10/.../111) is out of scope; this
// package supplies only the shapes the engine reads and writes.
package dnp3

// FunctionCode is the DNP3 application-layer function code (IEEE 1815).
type FunctionCode uint8

const (
	FuncConfirm              FunctionCode = 0x00
	FuncRead                 FunctionCode = 0x01
	FuncWrite                FunctionCode = 0x02
	FuncSelect                FunctionCode = 0x03
	FuncOperate               FunctionCode = 0x04
	FuncDirectOperate         FunctionCode = 0x05
	FuncDirectOperateNoAck    FunctionCode = 0x06
	FuncColdRestart           FunctionCode = 0x0D
	FuncWarmRestart           FunctionCode = 0x0E
	FuncDelayMeasure          FunctionCode = 0x17
	FuncRecordCurrentTime     FunctionCode = 0x18
	FuncEnableUnsolicited     FunctionCode = 0x14
	FuncDisableUnsolicited    FunctionCode = 0x15
	FuncResponse              FunctionCode = 0x81
	FuncUnsolicitedResponse   FunctionCode = 0x82
)

func (f FunctionCode) String() string {
	switch f {
	case FuncConfirm:
		return "CONFIRM"
	case FuncRead:
		return "READ"
	case FuncWrite:
		return "WRITE"
	case FuncSelect:
		return "SELECT"
	case FuncOperate:
		return "OPERATE"
	case FuncDirectOperate:
		return "DIRECT_OPERATE"
	case FuncDirectOperateNoAck:
		return "DIRECT_OPERATE_NO_ACK"
	case FuncColdRestart:
		return "COLD_RESTART"
	case FuncWarmRestart:
		return "WARM_RESTART"
	case FuncDelayMeasure:
		return "DELAY_MEASURE"
	case FuncRecordCurrentTime:
		return "RECORD_CURRENT_TIME"
	case FuncEnableUnsolicited:
		return "ENABLE_UNSOLICITED"
	case FuncDisableUnsolicited:
		return "DISABLE_UNSOLICITED"
	case FuncResponse:
		return "RESPONSE"
	case FuncUnsolicitedResponse:
		return "UNSOLICITED_RESPONSE"
	default:
		return "UNKNOWN"
	}
}
