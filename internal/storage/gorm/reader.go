package gormstorage

import (
	"fmt"

	"github.com/turbofuel/fueltwin/internal/model"
	"github.com/turbofuel/fueltwin/internal/model/convert"
	"github.com/turbofuel/fueltwin/pkg/core"

	"gorm.io/gorm"
)

// RecordedRun is a run read back from the database.
type RecordedRun struct {
	Run     core.Run
	EndStep uint64
	Frames  []core.Frame
	Events  []core.LogEntry
}

// ListRuns returns all runs, newest first.
func ListRuns(db *gorm.DB) ([]model.Run, error) {
	var runs []model.Run
	if err := db.Order("start_time DESC, id DESC").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// LoadRun reads a run with its frames and events ordered by step. An empty
// uuid selects the most recent run.
func LoadRun(db *gorm.DB, uuid string) (*RecordedRun, error) {
	var run model.Run
	q := db.Order("start_time DESC, id DESC")
	if uuid != "" {
		q = q.Where("uuid = ?", uuid)
	}
	if err := q.First(&run).Error; err != nil {
		return nil, fmt.Errorf("load run %q: %w", uuid, err)
	}

	var frames []model.Frame
	if err := db.Where("run_id = ?", run.ID).Order("step ASC, id ASC").Find(&frames).Error; err != nil {
		return nil, fmt.Errorf("load frames: %w", err)
	}
	var events []model.Event
	if err := db.Where("run_id = ?", run.ID).Order("step ASC, id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	return &RecordedRun{
		Run:     convert.RunToCore(run),
		EndStep: uint64(run.EndStep),
		Frames:  convert.FramesToCore(frames),
		Events:  convert.EventsToCore(events),
	}, nil
}
