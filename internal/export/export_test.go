package export

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/turbofuel/fueltwin/internal/database"
	gormstorage "github.com/turbofuel/fueltwin/internal/storage/gorm"
	"github.com/turbofuel/fueltwin/internal/storage/memory"
	"github.com/turbofuel/fueltwin/pkg/core"
)

func testRecording() *Recording {
	run := core.NewRun("clog study", time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC), 500*time.Millisecond)
	rec := &Recording{Run: *run}
	for i := uint64(1); i <= 4; i++ {
		f := core.Frame{Step: i, Time: float64(i) * 0.5, Throttle: 90, Health: core.FullHealth()}
		f.True.N1RPM = 1000 * float64(i)
		f.Sensed.N1RPM = 1000*float64(i) + 5
		f.Faults = f.Faults.With(core.ChannelN1, core.FaultConfig{Kind: core.FaultBias, Magnitude: 5})
		rec.Frames = append(rec.Frames, f)
	}
	rec.Events = []core.LogEntry{{
		Timestamp: run.StartTime.Add(time.Second),
		SimTime:   1,
		Step:      2,
		Message:   "High filter pressure drop: 40.0 kPa",
		Severity:  core.SeverityWarning,
	}}
	return rec
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, " CSV ": FormatCSV, "xlsx": FormatXLSX} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("parquet")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	rec := testRecording()
	assert.Equal(t, "clog_study_20260502_080000.json.gz", FileName(rec, FormatJSON))
	assert.Equal(t, "clog_study_20260502_080000.xlsx", FileName(rec, FormatXLSX))
}

func TestFrameRowMatchesHeaders(t *testing.T) {
	rec := testRecording()
	assert.Len(t, FrameRow(rec.Frames[0]), len(FrameHeaders()))
	assert.Equal(t, "n1:Bias/Offset:5", FrameRow(rec.Frames[0])[len(FrameHeaders())-1])
}

func TestWriteCSV(t *testing.T) {
	rec := testRecording()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rec.Frames))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, FrameHeaders(), rows[0])
	assert.Equal(t, []string{"1", "0.5", "90", "1000"}, rows[1][:4])
	assert.Equal(t, "1005", rows[1][3+core.ChannelCount])
}

func TestWrite_JSON(t *testing.T) {
	rec := testRecording()
	path := filepath.Join(t.TempDir(), "out", FileName(rec, FormatJSON))
	require.NoError(t, Write(path, FormatJSON, rec))

	back, err := memory.ReadExport(path)
	require.NoError(t, err)
	assert.Equal(t, rec.Run.ID.String(), back.RunID)
	assert.Len(t, back.Frames, 4)
	assert.Equal(t, uint64(4), back.EndStep)
	assert.Len(t, back.Events, 1)
}

func TestWrite_XLSX(t *testing.T) {
	rec := testRecording()
	path := filepath.Join(t.TempDir(), FileName(rec, FormatXLSX))
	require.NoError(t, Write(path, FormatXLSX, rec))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetFrames, SheetEvents, SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetFrames)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "step", rows[0][0])
	assert.Equal(t, "4", rows[4][0])

	events, err := f.GetRows(SheetEvents)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "warning", events[1][3])

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Len(t, summary, 5)
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.Error(t, Write(filepath.Join(t.TempDir(), "x"), Format("pdf"), testRecording()))
}

func TestFromSQLite(t *testing.T) {
	db, err := database.SqliteDB("")
	require.NoError(t, err)

	b := gormstorage.New(gormstorage.Dependencies{DB: db})
	require.NoError(t, b.Init())

	rec := testRecording()
	run := rec.Run
	require.NoError(t, b.StartRun(&run))
	for i := range rec.Frames {
		require.NoError(t, b.RecordFrame(&rec.Frames[i]))
	}
	require.NoError(t, b.RecordEvent(&rec.Events[0]))
	require.NoError(t, b.EndRun())
	require.NoError(t, b.Close())

	path := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, database.DumpMemoryDBToDisk(db, path))

	loaded, err := FromSQLite(path, "")
	require.NoError(t, err)
	assert.Equal(t, run.ID, loaded.Run.ID)
	require.Len(t, loaded.Frames, 4)
	assert.Equal(t, rec.Frames[3].True.N1RPM, loaded.Frames[3].True.N1RPM)
	require.Len(t, loaded.Events, 1)

	_, err = FromSQLite(filepath.Join(t.TempDir(), "missing.db"), "")
	assert.Error(t, err)
}
