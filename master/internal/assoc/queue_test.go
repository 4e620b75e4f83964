package assoc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-dnp3/dnp3master/dnp3"
	"github.com/go-dnp3/dnp3master/master/internal/merr"
	"github.com/go-dnp3/dnp3master/master/internal/task"
)

// fakeTask is a minimal task.Task stand-in for queue ordering/capacity tests.
type fakeTask struct {
	id int
}

func (f fakeTask) Address() uint16                   { return 1 }
func (f fakeTask) Function() dnp3.FunctionCode        { return dnp3.FuncRead }
func (f fakeTask) WriteRequest(w *dnp3.HeaderWriter) error { return nil }
func (f fakeTask) OnTaskError(err merr.TaskError)     {}
func (f fakeTask) Name() string                       { return "fake" }

func TestRequestQueueFIFOOrder(t *testing.T) {
	q := newRequestQueue(10)

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(fakeTask{id: i}))
	}
	require.Equal(t, 3, q.Len())

	for i := 0; i < 3; i++ {
		tsk, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, tsk.(fakeTask).id)
	}

	_, ok := q.Pop()
	require.False(t, ok, "empty queue pops (nil, false)")
}

func TestRequestQueueCapacity(t *testing.T) {
	q := newRequestQueue(2)

	require.NoError(t, q.Enqueue(fakeTask{id: 0}))
	require.NoError(t, q.Enqueue(fakeTask{id: 1}))

	err := q.Enqueue(fakeTask{id: 2})
	require.ErrorIs(t, err, ErrQueueFull)
	require.Equal(t, 2, q.Len(), "rejected enqueue does not grow the queue")
}

func TestRequestQueueDrainWithInvokesInFIFOOrderAndEmpties(t *testing.T) {
	q := newRequestQueue(5)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(fakeTask{id: i}))
	}

	var drained []int
	q.DrainWith(func(tsk task.Task) {
		drained = append(drained, tsk.(fakeTask).id)
	})

	require.Equal(t, []int{0, 1, 2}, drained)
	require.Equal(t, 0, q.Len())

	_, ok := q.Pop()
	require.False(t, ok)
}
