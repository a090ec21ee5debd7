// Package export writes recorded runs to files for offline analysis.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/turbofuel/fueltwin/internal/storage/memory"
	"github.com/turbofuel/fueltwin/internal/util"
	"github.com/turbofuel/fueltwin/pkg/core"
)

// Format is an output file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Sheet names of the xlsx export.
const (
	SheetFrames  = "Frames"
	SheetEvents  = "Events"
	SheetSummary = "Summary"
)

// ParseFormat resolves a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json, csv or xlsx)", s)
	}
}

// Ext returns the file extension of f; json exports are gzipped.
func (f Format) Ext() string {
	if f == FormatJSON {
		return ".json.gz"
	}
	return "." + string(f)
}

// Recording is the data an export is built from.
type Recording struct {
	Run    core.Run
	Frames []core.Frame
	Events []core.LogEntry
}

// FileName returns <name>_<start>.<ext> for rec.
func FileName(rec *Recording, f Format) string {
	return fmt.Sprintf("%s_%s%s",
		util.SanitizeName(rec.Run.Name),
		rec.Run.StartTime.Format("20060102_150405"),
		f.Ext())
}

// Write exports rec to path in format f.
func Write(path string, f Format, rec *Recording) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	switch f {
	case FormatJSON:
		return writeJSON(path, rec)
	case FormatCSV:
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		if err := WriteCSV(file, rec.Frames); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	case FormatXLSX:
		return WriteXLSX(path, rec)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

func writeJSON(path string, rec *Recording) error {
	run := rec.Run
	data, err := memory.BuildExport(&run, rec.Frames, rec.Events)
	if err != nil {
		return err
	}
	return memory.WriteExport(path, data)
}

// FrameHeaders returns the column names of the frame table.
func FrameHeaders() []string {
	h := []string{"step", "time", "throttle"}
	for _, prefix := range []string{"true_", "sensed_"} {
		for _, c := range core.Channels() {
			h = append(h, prefix+c.String())
		}
	}
	return append(h,
		"health_boostPump",
		"health_hpPump",
		"health_fuelFilter",
		"health_injectors",
		"health_fadec",
		"health_overall",
		"faults")
}

// FrameRow returns the values of one frame in FrameHeaders order.
func FrameRow(f core.Frame) []any {
	row := []any{f.Step, f.Time, f.Throttle}
	for _, c := range core.Channels() {
		row = append(row, f.True.Get(c))
	}
	for _, c := range core.Channels() {
		row = append(row, f.Sensed.Get(c))
	}
	return append(row,
		f.Health.BoostPump,
		f.Health.HPPump,
		f.Health.FuelFilter,
		f.Health.Injectors,
		f.Health.FADEC,
		f.Health.Overall,
		faultsCell(f.Faults))
}

// faultsCell renders active faults as "channel:kind:magnitude" joined by ';'.
func faultsCell(f core.Faults) string {
	var parts []string
	for _, c := range f.Active() {
		fc := f.Get(c)
		parts = append(parts, fmt.Sprintf("%s:%s:%s", c, fc.Kind, strconv.FormatFloat(fc.Magnitude, 'g', -1, 64)))
	}
	return strings.Join(parts, ";")
}

// WriteCSV writes one header row and one row per frame.
func WriteCSV(w io.Writer, frames []core.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FrameHeaders()); err != nil {
		return fmt.Errorf("csv write header: %w", err)
	}
	for _, f := range frames {
		row := FrameRow(f)
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = csvValue(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("csv write step %d: %w", f.Step, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case uint64:
		return strconv.FormatUint(x, 10)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// WriteXLSX writes frames, events and a per-series summary to separate
// sheets.
func WriteXLSX(path string, rec *Recording) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetFrames); err != nil {
		return err
	}
	if err := writeSheet(f, SheetFrames, FrameHeaders(), len(rec.Frames), func(i int) []any {
		return FrameRow(rec.Frames[i])
	}); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetEvents); err != nil {
		return err
	}
	if err := writeSheet(f, SheetEvents, []string{"step", "simTime", "timestamp", "severity", "message"}, len(rec.Events), func(i int) []any {
		e := rec.Events[i]
		return []any{e.Step, e.SimTime, e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"), string(e.Severity), e.Message}
	}); err != nil {
		return err
	}

	run := rec.Run
	data, err := memory.BuildExport(&run, rec.Frames, rec.Events)
	if err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}
	names := sortedSeries(data.Summary.Series)
	if err := writeSheet(f, SheetSummary, []string{"series", "mean", "stdDev", "min", "max"}, len(names), func(i int) []any {
		st := data.Summary.Series[names[i]]
		return []any{names[i], st.Mean, st.StdDev, st.Min, st.Max}
	}); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, n int, row func(int) []any) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r := 0; r < n; r++ {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		values := row(r)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}
