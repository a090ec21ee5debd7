// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/turbofuel/fueltwin/internal/history"
	"github.com/turbofuel/fueltwin/internal/util"
	"github.com/turbofuel/fueltwin/pkg/core"
)

// FormatVersion is written into every export.
const FormatVersion = 1

// RunExport is the root JSON structure
type RunExport struct {
	Version     int             `json:"version"`
	RunID       string          `json:"runId"`
	Name        string          `json:"name"`
	Tag         string          `json:"tag,omitempty"`
	AppVersion  string          `json:"appVersion,omitempty"`
	StartTime   string          `json:"startTime"`
	TickSeconds float64         `json:"tickSeconds"`
	Seed        uint64          `json:"seed,omitempty"`
	EndStep     uint64          `json:"endStep"`
	Duration    float64         `json:"duration"`
	Frames      []FrameJSON     `json:"frames"`
	Events      []core.LogEntry `json:"events"`
	Summary     history.Summary `json:"summary"`
}

// FrameJSON is one recorded tick
type FrameJSON struct {
	Step     uint64               `json:"step"`
	Time     float64              `json:"time"`
	Throttle float64              `json:"throttle"`
	True     core.Readings        `json:"true"`
	Sensed   core.Readings        `json:"sensed"`
	Health   core.ComponentHealth `json:"health"`
	Faults   core.Faults          `json:"faults"`
}

// BuildExport assembles the export document for a run
func BuildExport(run *core.Run, frames []core.Frame, events []core.LogEntry) (RunExport, error) {
	export := RunExport{
		Version:     FormatVersion,
		RunID:       run.ID.String(),
		Name:        run.Name,
		Tag:         run.Tag,
		AppVersion:  run.AppVersion,
		StartTime:   run.StartTime.UTC().Format(time.RFC3339),
		TickSeconds: run.TickInterval.Seconds(),
		Seed:        run.Seed,
		Frames:      make([]FrameJSON, 0, len(frames)),
		Events:      append(make([]core.LogEntry, 0, len(events)), events...),
	}

	samples := make([]core.HistorySample, 0, len(frames))
	for _, f := range frames {
		export.Frames = append(export.Frames, FrameJSON{
			Step:     f.Step,
			Time:     f.Time,
			Throttle: f.Throttle,
			True:     f.True.Readings,
			Sensed:   f.Sensed.Readings,
			Health:   f.Health,
			Faults:   f.Faults,
		})
		samples = append(samples, history.SampleOf(f.Time, f.Step, f.Sensed))
		if f.Step > export.EndStep {
			export.EndStep = f.Step
		}
		if f.Time > export.Duration {
			export.Duration = f.Time
		}
	}

	summary, err := history.Summarize(samples)
	if err != nil {
		return export, fmt.Errorf("failed to summarize run: %w", err)
	}
	export.Summary = summary
	return export, nil
}

// exportJSON writes the run to a (gzipped) JSON file. Caller holds mu.
func (b *Backend) exportJSON() error {
	export, err := BuildExport(b.run, b.frames, b.events)
	if err != nil {
		return err
	}

	name := util.SanitizeName(b.run.Name)
	timestamp := b.run.StartTime.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", name, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := WriteExport(outputPath, export); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.lastExportMeta = core.UploadMetadata{
		RunID:       export.RunID,
		RunName:     export.Name,
		RunDuration: export.Duration,
		Frames:      len(export.Frames),
		Tag:         export.Tag,
	}
	return nil
}

// WriteExport writes data to path, gzipped when path ends in .gz.
func WriteExport(path string, data RunExport) error {
	if filepath.Ext(path) == ".gz" {
		return writeGzipJSON(path, data)
	}
	return writeJSON(path, data)
}

func writeJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}

// ReadExport loads an export written by this package, gzipped or not.
func ReadExport(path string) (RunExport, error) {
	var export RunExport

	f, err := os.Open(path)
	if err != nil {
		return export, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return export, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return export, fmt.Errorf("failed to decode export: %w", err)
	}
	return export, nil
}
