package export

import (
	"fmt"
	"os"
	"sort"

	"gorm.io/gorm"

	"github.com/turbofuel/fueltwin/internal/database"
	"github.com/turbofuel/fueltwin/internal/history"
	gormstorage "github.com/turbofuel/fueltwin/internal/storage/gorm"
)

// FromDB loads a run from a recorder database. An empty runID selects the
// newest run.
func FromDB(db *gorm.DB, runID string) (*Recording, error) {
	rr, err := gormstorage.LoadRun(db, runID)
	if err != nil {
		return nil, err
	}
	return &Recording{Run: rr.Run, Frames: rr.Frames, Events: rr.Events}, nil
}

// FromSQLite loads a run from a SQLite dump file.
func FromSQLite(path, runID string) (*Recording, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening dump: %w", err)
	}
	db, err := database.SqliteDB(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump %s: %w", path, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return FromDB(db, runID)
}

func sortedSeries(m map[string]history.Stats) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
