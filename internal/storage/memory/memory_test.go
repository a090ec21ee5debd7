// internal/storage/memory/memory_test.go
package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbofuel/fueltwin/internal/config"
	"github.com/turbofuel/fueltwin/internal/storage"
	"github.com/turbofuel/fueltwin/pkg/core"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

// Verify Backend implements storage.Uploadable interface
var _ storage.Uploadable = (*Backend)(nil)

func testRun() *core.Run {
	run := core.NewRun("clog study", time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC), 500*time.Millisecond)
	run.Tag = "bench"
	return run
}

func frame(step uint64, n1 float64) *core.Frame {
	f := &core.Frame{Step: step, Time: float64(step) * 0.5, Throttle: 80}
	f.True.N1RPM = n1
	f.Sensed.N1RPM = n1 + 10
	f.Health = core.FullHealth()
	return f
}

func TestInitAndClose(t *testing.T) {
	b := New(config.MemoryConfig{})
	assert.NoError(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestStartRunResets(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.RecordFrame(frame(1, 100)))
	require.NoError(t, b.RecordEvent(&core.LogEntry{Message: "stale"}))

	require.NoError(t, b.StartRun(testRun()))
	assert.Empty(t, b.Frames())
	assert.Empty(t, b.Events())
}

func TestEndRunWithoutRun(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.EndRun())
	assert.Empty(t, b.GetExportedFilePath())
}

func TestExportRoundTrip(t *testing.T) {
	for _, compress := range []bool{true, false} {
		t.Run(map[bool]string{true: "gzip", false: "plain"}[compress], func(t *testing.T) {
			dir := t.TempDir()
			b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: compress})
			run := testRun()

			require.NoError(t, b.StartRun(run))
			for i := uint64(1); i <= 4; i++ {
				require.NoError(t, b.RecordFrame(frame(i, float64(i)*1000)))
			}
			require.NoError(t, b.RecordEvent(&core.LogEntry{Step: 2, Message: "Potential injector issue detected (T45 deviation).", Severity: core.SeverityWarning}))
			require.NoError(t, b.EndRun())

			path := b.GetExportedFilePath()
			require.NotEmpty(t, path)
			assert.Equal(t, dir, filepath.Dir(path))
			assert.True(t, strings.HasPrefix(filepath.Base(path), "clog_study_20260401_093000.json"))
			assert.Equal(t, compress, strings.HasSuffix(path, ".gz"))
			_, err := os.Stat(path)
			require.NoError(t, err)

			export, err := ReadExport(path)
			require.NoError(t, err)
			assert.Equal(t, FormatVersion, export.Version)
			assert.Equal(t, run.ID.String(), export.RunID)
			assert.Equal(t, "2026-04-01T09:30:00Z", export.StartTime)
			assert.Equal(t, 0.5, export.TickSeconds)
			assert.Equal(t, uint64(4), export.EndStep)
			assert.Equal(t, 2.0, export.Duration)
			require.Len(t, export.Frames, 4)
			assert.Equal(t, 3010.0, export.Frames[2].Sensed.N1RPM)
			require.Len(t, export.Events, 1)
			assert.Equal(t, core.SeverityWarning, export.Events[0].Severity)
			assert.Equal(t, 4, export.Summary.Samples)

			meta := b.GetExportMetadata()
			assert.Equal(t, "clog study", meta.RunName)
			assert.Equal(t, 4, meta.Frames)
			assert.Equal(t, 2.0, meta.RunDuration)
			assert.Equal(t, "bench", meta.Tag)
		})
	}
}

func TestExportCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	b := New(config.MemoryConfig{OutputDir: dir})
	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.EndRun())

	_, err := os.Stat(dir)
	assert.NoError(t, err)
}

func TestReadExportMissing(t *testing.T) {
	_, err := ReadExport(filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
}
