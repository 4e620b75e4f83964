package archive_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-dnp3/dnp3master/internal/archive"
)

func openTestArchive(t *testing.T) *archive.Archive {
	t.Helper()
	a, err := archive.Open(filepath.Join(t.TempDir(), "archive"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestArchiveQueryOrdersByTimeAndFiltersWindow(t *testing.T) {
	a := openTestArchive(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, value := range []float64{1, 2, 3} {
		ev := archive.Event{
			Channel: "substation-1", Association: 1024, Kind: archive.KindAnalog, Index: 7,
			Value: value, Time: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, a.Record(ev))
	}

	events, err := a.Query("substation-1", 1024, archive.KindAnalog, 7, base, base.Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, []float64{1, 2, 3}, []float64{events[0].Value, events[1].Value, events[2].Value})

	windowed, err := a.Query("substation-1", 1024, archive.KindAnalog, 7, base.Add(30*time.Second), base.Add(90*time.Second))
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	require.Equal(t, float64(2), windowed[0].Value)
}

func TestArchiveQueryDoesNotLeakAcrossPoints(t *testing.T) {
	a := openTestArchive(t)
	now := time.Now()

	require.NoError(t, a.Record(archive.Event{Channel: "ch-a", Association: 1, Kind: archive.KindBinary, Index: 1, Value: 1, Time: now}))
	require.NoError(t, a.Record(archive.Event{Channel: "ch-a", Association: 1, Kind: archive.KindBinary, Index: 2, Value: 0, Time: now}))
	require.NoError(t, a.Record(archive.Event{Channel: "ch-a", Association: 2, Kind: archive.KindBinary, Index: 1, Value: 0, Time: now}))
	require.NoError(t, a.Record(archive.Event{Channel: "ch-b", Association: 1, Kind: archive.KindBinary, Index: 1, Value: 0, Time: now}))

	events, err := a.Query("ch-a", 1, archive.KindBinary, 1, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, float64(1), events[0].Value)
}

func TestArchiveQueryEmptyForUnknownPoint(t *testing.T) {
	a := openTestArchive(t)

	events, err := a.Query("nope", 9999, archive.KindCounter, 0, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Empty(t, events)
}
