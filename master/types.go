// Package master is the embedder-facing capability surface of spec §6:
// create a channel (TCP or serial), add associations, issue asynchronous
// operations, and receive measurement data and lifecycle observations. It
// is a thin façade over master/internal/{session,assoc,task}; the flat set
// of type aliases below lets an embedder import a single package rather
// than reaching into internal/ (which the Go toolchain forbids outside
// this module anyway), mirroring how
// `_examples/marmos91-dittofs/cli.go` exposes one embedder-facing surface
// over its internal protocol packages.
package master

import (
	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/assoc"
	"github.com/go-dnp3/dnp3master/master/internal/merr"
	"github.com/go-dnp3/dnp3master/master/internal/session"
	"github.com/go-dnp3/dnp3master/master/internal/task"
)

// Lifecycle and configuration.
type (
	ClientState     = session.ClientState
	PortState       = session.ClientState // serial variant, same shape (spec §4.1)
	ConnectStrategy = session.ConnectStrategy
	AssociationConfig = assoc.Config
	DecodeLevel     = dnp3.DecodeLevel
)

const (
	StateDisabled               = session.StateDisabled
	StateConnecting             = session.StateConnecting
	StateConnected              = session.StateConnected
	StateWaitAfterFailedConnect = session.StateWaitAfterFailedConnect
	StateWaitAfterDisconnect    = session.StateWaitAfterDisconnect
	StateShutdown               = session.StateShutdown
)

const (
	DecodeNothing       = dnp3.DecodeNothing
	DecodeHeader        = dnp3.DecodeHeader
	DecodeObjectHeaders = dnp3.DecodeObjectHeaders
	DecodeObjectValues  = dnp3.DecodeObjectValues
)

func DefaultConnectStrategy() ConnectStrategy   { return session.DefaultConnectStrategy() }
func DefaultAssociationConfig() AssociationConfig { return assoc.DefaultConfig() }

// Measurement delivery and DNP3 vocabulary the embedder needs to build
// requests and implement ReadHandler.
type (
	ReadHandler        = dnp3.ReadHandler
	NopReadHandler      = dnp3.NopReadHandler
	ResponseInfo        = dnp3.ResponseInfo
	HeaderInfo          = dnp3.HeaderInfo
	BinaryValue         = dnp3.BinaryValue
	AnalogValue         = dnp3.AnalogValue
	CounterValue        = dnp3.CounterValue
	CommandEventValue   = dnp3.CommandEventValue
	AnalogCommandEventValue = dnp3.AnalogCommandEventValue

	Classes      = dnp3.Classes
	EventClasses = dnp3.EventClasses

	CommandMode      = dnp3.CommandMode
	TimeSyncMode     = dnp3.TimeSyncMode
	AutoTimeSyncMode = dnp3.AutoTimeSyncMode
	CommandHeader    = dnp3.CommandHeader
	RestartDelay     = dnp3.RestartDelay

	RequestTemplate     = task.RequestTemplate
	ClassesRequest      = task.ClassesRequest
	EventClassesRequest = task.EventClassesRequest
	RangeRequest        = task.RangeRequest

	RestartKind = task.RestartKind
)

const (
	DirectOperate      = dnp3.DirectOperate
	SelectBeforeOperate = dnp3.SelectBeforeOperate

	Lan    = dnp3.Lan
	NonLan = dnp3.NonLan

	AutoTimeSyncNone   = dnp3.AutoTimeSyncNone
	AutoTimeSyncLan    = dnp3.AutoTimeSyncLan
	AutoTimeSyncNonLan = dnp3.AutoTimeSyncNonLan

	ColdRestart = task.ColdRestart
	WarmRestart = task.WarmRestart
)

func AllEventClasses() EventClasses { return dnp3.AllEventClasses() }
func NoEventClasses() EventClasses  { return dnp3.NoEventClasses() }
func Class1230() Classes            { return dnp3.Class1230() }

// AssociationHandler supplies the per-association clock the sync_time()
// operation reads (spec §4.4).
type AssociationHandler = assoc.Handler

// SystemClockHandler is the default AssociationHandler, backed by the
// process wall clock.
type SystemClockHandler = assoc.SystemClockHandler

// Errors and asynchronous-operation results (spec §7).
type (
	TaskError        = merr.TaskError
	ReadResult       = task.ReadResult
	CommandResult    = merr.CommandResult
	TimeSyncResult   = merr.TimeSyncResult
	RestartError     = merr.RestartError
	LinkStatusResult = merr.LinkStatusResult
)

var (
	ErrTooManyRequests    = merr.ErrTooManyRequests
	ErrBadResponse        = merr.ErrBadResponse
	ErrResponseTimeout    = merr.ErrResponseTimeout
	ErrWriteError         = merr.ErrWriteError
	ErrNoConnection       = merr.ErrNoConnection
	ErrShutdown           = merr.ErrShutdown
	ErrAssociationRemoved = merr.ErrAssociationRemoved
	ErrBadStatus          = merr.ErrBadStatus
	ErrHeaderMismatch     = merr.ErrHeaderMismatch
	ErrClockRollback         = merr.ErrClockRollback
	ErrSystemTimeNotUnix     = merr.ErrSystemTimeNotUnix
	ErrBadOutstationTimeDelay = merr.ErrBadOutstationTimeDelay
	ErrOverflow              = merr.ErrOverflow
	ErrStillNeedsTime        = merr.ErrStillNeedsTime
	ErrUnexpectedResponse    = merr.ErrUnexpectedResponse
)

// Callback signatures for asynchronous operations.
type (
	ReadCallback       = task.ReadCallback
	CommandCallback    = task.CommandCallback
	TimeSyncCallback   = task.TimeSyncCallback
	RestartCallback    = task.RestartCallback
	LinkStatusCallback = task.LinkStatusCallback
)
