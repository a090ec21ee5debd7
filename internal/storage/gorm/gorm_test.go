package gormstorage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turbofuel/fueltwin/internal/database"
	"github.com/turbofuel/fueltwin/internal/model"
	"github.com/turbofuel/fueltwin/internal/storage"
	"github.com/turbofuel/fueltwin/pkg/core"
)

// newTestBackend creates a Backend with no DB (queue-only mode for unit testing).
func newTestBackend() *Backend {
	return New(Dependencies{FlushInterval: time.Hour})
}

// newSqliteBackend creates a Backend on a private in-memory database.
func newSqliteBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.SqliteDB("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func testRun() *core.Run {
	r := core.NewRun("bench", time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC), 500*time.Millisecond)
	r.Tag = "test"
	return r
}

func testFrame(step uint64) *core.Frame {
	s := core.InitialState(time.Time{})
	s.Step = step
	s.Time = float64(step) / 2
	s.Throttle = 60
	s.True.N1RPM = 1000 * float64(step)
	s.Sensed.N1RPM = 1000*float64(step) + 5
	f := core.FrameOf(s)
	return &f
}

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestNew(t *testing.T) {
	b := newTestBackend()
	require.NotNil(t, b)
	assert.Equal(t, time.Hour, b.deps.FlushInterval)
	assert.NotNil(t, b.deps.Logger)

	assert.Equal(t, DefaultFlushInterval, New(Dependencies{}).deps.FlushInterval)
}

func TestInitClose(t *testing.T) {
	b := newTestBackend()

	require.NoError(t, b.Init())
	require.NotNil(t, b.queues)
	require.NotNil(t, b.stopChan)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "second close is a no-op")
}

func TestRecordBeforeStartRun(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, b.Init())
	defer b.Close()

	assert.ErrorIs(t, b.RecordFrame(testFrame(1)), ErrNoActiveRun)
	assert.ErrorIs(t, b.RecordEvent(&core.LogEntry{Message: "x"}), ErrNoActiveRun)
}

func TestRecord_QueuesToInternalQueue(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.RecordFrame(testFrame(1)))
	require.NoError(t, b.RecordFrame(testFrame(2)))
	require.NoError(t, b.RecordEvent(&core.LogEntry{Step: 2, Message: "hello", Severity: core.SeverityInfo}))

	frames, events := b.QueueLengths()
	assert.Equal(t, 2, frames)
	assert.Equal(t, 1, events)

	// no DB: flush keeps the rows
	require.NoError(t, b.Flush())
	frames, _ = b.QueueLengths()
	assert.Equal(t, 2, frames)
}

func TestSqlite_FlushWritesRows(t *testing.T) {
	b := newSqliteBackend(t)
	run := testRun()

	require.NoError(t, b.StartRun(run))
	for step := uint64(1); step <= 3; step++ {
		require.NoError(t, b.RecordFrame(testFrame(step)))
	}
	require.NoError(t, b.RecordEvent(&core.LogEntry{Step: 3, SimTime: 1.5, Message: "Filter bypass pressure exceeded: 48.0 kPa", Severity: core.SeverityAlert}))

	require.NoError(t, b.Flush())
	frames, events := b.QueueLengths()
	assert.Zero(t, frames)
	assert.Zero(t, events)

	var count int64
	require.NoError(t, b.DB().Model(&model.Frame{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
	require.NoError(t, b.DB().Model(&model.Event{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSqlite_EndRunStampsRun(t *testing.T) {
	b := newSqliteBackend(t)
	run := testRun()

	require.NoError(t, b.StartRun(run))
	require.NoError(t, b.RecordFrame(testFrame(4)))
	require.NoError(t, b.RecordFrame(testFrame(7)))
	require.NoError(t, b.EndRun())

	var row model.Run
	require.NoError(t, b.DB().First(&row, "uuid = ?", run.ID.String()).Error)
	assert.Equal(t, uint(7), row.EndStep)
	assert.True(t, row.EndTime.Valid)
	assert.Equal(t, "test", row.Tag)

	assert.ErrorIs(t, b.RecordFrame(testFrame(8)), ErrNoActiveRun)
	require.NoError(t, b.EndRun(), "ending twice is a no-op")
}

func TestSqlite_TimesReadBack(t *testing.T) {
	b := newSqliteBackend(t)
	run := testRun()

	require.NoError(t, b.StartRun(run))
	logged := run.StartTime.Add(1500 * time.Millisecond)
	require.NoError(t, b.RecordEvent(&core.LogEntry{Timestamp: logged, Step: 1, Message: "hello", Severity: core.SeverityInfo}))
	require.NoError(t, b.EndRun())

	runs, err := ListRuns(b.DB())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, run.StartTime.Equal(runs[0].StartTime), "got %v", runs[0].StartTime)
	assert.True(t, runs[0].EndTime.Valid)
	assert.False(t, runs[0].EndTime.Time.IsZero())

	loaded, err := LoadRun(b.DB(), run.ID.String())
	require.NoError(t, err)
	assert.True(t, run.StartTime.Equal(loaded.Run.StartTime), "got %v", loaded.Run.StartTime)
	require.Len(t, loaded.Events, 1)
	assert.True(t, logged.Equal(loaded.Events[0].Timestamp), "got %v", loaded.Events[0].Timestamp)
}

func TestSqlite_CloseFlushesPending(t *testing.T) {
	db, err := database.SqliteDB("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())

	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.RecordFrame(testFrame(1)))
	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, db.Model(&model.Frame{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSqlite_WriterLoopFlushes(t *testing.T) {
	db, err := database.SqliteDB("")
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.RecordFrame(testFrame(1)))

	assert.Eventually(t, func() bool {
		frames, _ := b.QueueLengths()
		return frames == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSqlite_LoadRun(t *testing.T) {
	b := newSqliteBackend(t)

	first := testRun()
	require.NoError(t, b.StartRun(first))
	require.NoError(t, b.RecordFrame(testFrame(1)))
	require.NoError(t, b.EndRun())

	second := testRun()
	second.StartTime = first.StartTime.Add(time.Hour)
	require.NoError(t, b.StartRun(second))
	require.NoError(t, b.RecordFrame(testFrame(2)))
	require.NoError(t, b.RecordFrame(testFrame(1)))
	require.NoError(t, b.RecordEvent(&core.LogEntry{Step: 2, Message: "late", Severity: core.SeverityWarning}))
	require.NoError(t, b.EndRun())

	latest, err := LoadRun(b.DB(), "")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.Run.ID)
	require.Len(t, latest.Frames, 2)
	assert.Equal(t, uint64(1), latest.Frames[0].Step, "frames come back ordered by step")
	assert.Equal(t, *testFrame(2), latest.Frames[1])
	require.Len(t, latest.Events, 1)
	assert.Equal(t, core.SeverityWarning, latest.Events[0].Severity)
	assert.Equal(t, uint64(2), latest.EndStep)

	old, err := LoadRun(b.DB(), first.ID.String())
	require.NoError(t, err)
	assert.Len(t, old.Frames, 1)

	_, err = LoadRun(b.DB(), "00000000-0000-0000-0000-000000000000")
	assert.Error(t, err)

	runs, err := ListRuns(b.DB())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID.String(), runs[0].UUID)
}

func TestGetLastDBWriteDuration(t *testing.T) {
	b := newSqliteBackend(t)
	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.RecordFrame(testFrame(1)))
	require.NoError(t, b.Flush())
	assert.Greater(t, b.GetLastDBWriteDuration(), time.Duration(0))
}
