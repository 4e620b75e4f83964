package task

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-dnp3/dnp3master/dnp3"
)

// fakeReadHandler records fragment boundaries so reassembly behavior
// (HasMoreFragments tracking FIR/FIN) can be asserted without a real
// object-variation decoder.
type fakeReadHandler struct {
	fragments []dnp3.ResponseInfo
	unknown   int
}

func (f *fakeReadHandler) BeginFragment(info dnp3.ResponseInfo) { f.fragments = append(f.fragments, info) }
func (f *fakeReadHandler) EndFragment(info dnp3.ResponseInfo)   {}
func (f *fakeReadHandler) BeginHeader(h dnp3.HeaderInfo)        {}
func (f *fakeReadHandler) EndHeader(h dnp3.HeaderInfo)          {}
func (f *fakeReadHandler) BinaryInput(index uint32, v dnp3.BinaryValue)                    {}
func (f *fakeReadHandler) AnalogInput(index uint32, v dnp3.AnalogValue)                    {}
func (f *fakeReadHandler) Counter(index uint32, v dnp3.CounterValue)                       {}
func (f *fakeReadHandler) FrozenCounter(index uint32, v dnp3.CounterValue)                 {}
func (f *fakeReadHandler) BinaryOutputStatus(index uint32, v dnp3.BinaryValue)             {}
func (f *fakeReadHandler) AnalogOutputStatus(index uint32, v dnp3.AnalogValue)             {}
func (f *fakeReadHandler) OctetString(index uint32, v []byte)                             {}
func (f *fakeReadHandler) BinaryCommandEvent(index uint32, v dnp3.CommandEventValue)       {}
func (f *fakeReadHandler) AnalogCommandEvent(index uint32, v dnp3.AnalogCommandEventValue) {}
func (f *fakeReadHandler) UnknownObject(h dnp3.HeaderInfo)                                 { f.unknown++ }

func TestSingleReadTaskReassemblesMultipleFragmentsBeforeComplete(t *testing.T) {
	h := &fakeReadHandler{}
	completed := false
	tsk := NewSingleReadTask(1, RangeRequest{Group: 30, Variation: 1, Start: 0, Stop: 9}, func(r ReadResult) { completed = true })

	require.Equal(t, dnp3.FuncRead, tsk.Function())
	require.Equal(t, "single-read", tsk.Name())

	first := dnp3.ResponseFragment{Control: dnp3.AppControl{FIR: true, FIN: false}}
	tsk.ProcessFragment(h, first)
	require.False(t, completed, "Complete is only invoked once, after FIN")
	require.Len(t, h.fragments, 1)
	require.True(t, h.fragments[0].HasMoreFragments)

	last := dnp3.ResponseFragment{Control: dnp3.AppControl{FIR: false, FIN: true}}
	tsk.ProcessFragment(h, last)
	require.Len(t, h.fragments, 2)
	require.False(t, h.fragments[1].HasMoreFragments)

	tsk.Complete()
	require.True(t, completed)
}

func TestPeriodicPollTaskCompleteInvokesOnDoneWithPollID(t *testing.T) {
	var gotID uint64
	invoked := false
	tsk := NewPeriodicPollTask(1, 42, ClassesRequest{Classes: dnp3.Classes{Class0: true}}, func(id uint64) { invoked = true; gotID = id }, nil)

	require.Equal(t, "periodic-poll", tsk.Name())
	tsk.Complete()
	require.True(t, invoked)
	require.EqualValues(t, 42, gotID)
}

func TestStartupIntegrityTaskCompleteInvokesOnDone(t *testing.T) {
	invoked := false
	tsk := NewStartupIntegrityTask(1, func() { invoked = true }, nil)

	require.Equal(t, "startup-integrity", tsk.Name())
	tsk.Complete()
	require.True(t, invoked)
}
