package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for master-station spans.
const (
	AttrChannel       = "dnp3.channel"
	AttrAssociation    = "dnp3.association"
	AttrFunctionCode   = "dnp3.function_code"
	AttrTaskType       = "dnp3.task_type"
	AttrSequence       = "dnp3.sequence"
	AttrEndpoint       = "dnp3.endpoint"
	AttrConnectAttempt = "dnp3.connect_attempt"
	AttrCommandStatus  = "dnp3.command_status"
)

// Span names for master-station operations.
const (
	SpanChannelConnect     = "channel.connect"
	SpanSessionTransmit    = "session.transmit"
	SpanSessionAwaitReply  = "session.await_reply"
	SpanTaskRead           = "task.read"
	SpanTaskOperate        = "task.operate"
	SpanTaskTimeSync       = "task.time_sync"
	SpanTaskRestart        = "task.restart"
)

// Channel returns an attribute for the channel name.
func Channel(name string) attribute.KeyValue {
	return attribute.String(AttrChannel, name)
}

// Association returns an attribute for the outstation address.
func Association(address uint16) attribute.KeyValue {
	return attribute.Int64(AttrAssociation, int64(address))
}

// FunctionCode returns an attribute for the DNP3 application function code.
func FunctionCode(code uint8) attribute.KeyValue {
	return attribute.Int64(AttrFunctionCode, int64(code))
}

// TaskType returns an attribute naming the task variant being run.
func TaskType(kind string) attribute.KeyValue {
	return attribute.String(AttrTaskType, kind)
}

// Sequence returns an attribute for the application-layer sequence number.
func Sequence(seq uint8) attribute.KeyValue {
	return attribute.Int64(AttrSequence, int64(seq))
}

// Endpoint returns an attribute for a TCP/serial endpoint string.
func Endpoint(endpoint string) attribute.KeyValue {
	return attribute.String(AttrEndpoint, endpoint)
}

// CommandStatus returns an attribute for a CROB/analog-output command status code.
func CommandStatus(status uint8) attribute.KeyValue {
	return attribute.Int64(AttrCommandStatus, int64(status))
}

// StartTaskSpan starts a span around running one task to completion
// (transmit, await response, reassemble, post-process).
func StartTaskSpan(ctx context.Context, channel string, association uint16, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Channel(channel), Association(association), TaskType(kind)}, attrs...)
	spanName := SpanTaskRead
	switch kind {
	case "operate":
		spanName = SpanTaskOperate
	case "time_sync":
		spanName = SpanTaskTimeSync
	case "restart":
		spanName = SpanTaskRestart
	}
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartChannelSpan starts a span around establishing one transport connection.
func StartChannelSpan(ctx context.Context, channel, endpoint string, attempt int) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanChannelConnect, trace.WithAttributes(
		Channel(channel), Endpoint(endpoint), attribute.Int(AttrConnectAttempt, attempt),
	))
}
