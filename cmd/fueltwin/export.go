package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/turbofuel/fueltwin/internal/database"
	"github.com/turbofuel/fueltwin/internal/export"
	"github.com/turbofuel/fueltwin/internal/model"
	gormstorage "github.com/turbofuel/fueltwin/internal/storage/gorm"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a recorded run from SQLite or Postgres",
		Long: `Reads a run from a SQLite dump (--sqlite) or from the Postgres database
configured under db.*, and writes it as gzipped JSON, CSV or XLSX.

With --list, prints the runs instead. With --dumps, prints the SQLite
dumps found in a directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			if dir, _ := cmd.Flags().GetString("dumps"); dir != "" {
				return listDumps(out, dir, jsonOut)
			}

			sqlitePath, _ := cmd.Flags().GetString("sqlite")
			db, closeDB, err := openRecordings(sqlitePath)
			if err != nil {
				return err
			}
			defer closeDB()

			if list, _ := cmd.Flags().GetBool("list"); list {
				return listRuns(out, db, jsonOut)
			}

			formatName, _ := cmd.Flags().GetString("format")
			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}
			runID, _ := cmd.Flags().GetString("run")
			rec, err := export.FromDB(db, runID)
			if err != nil {
				return err
			}

			outDir, _ := cmd.Flags().GetString("out")
			path := filepath.Join(outDir, export.FileName(rec, format))
			if err := export.Write(path, format, rec); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"path":   path,
					"runId":  rec.Run.ID.String(),
					"frames": len(rec.Frames),
					"events": len(rec.Events),
				})
			}
			fmt.Fprintf(out, "Exported %d frames of %q to %s\n", len(rec.Frames), rec.Run.Name, path)
			return nil
		},
	}

	cmd.Flags().String("sqlite", "", "SQLite dump to read (default: Postgres from db.*)")
	cmd.Flags().String("run", "", "Run UUID (default: newest run)")
	cmd.Flags().String("format", string(export.FormatJSON), "Output format: json, csv or xlsx")
	cmd.Flags().String("out", ".", "Output directory")
	cmd.Flags().Bool("list", false, "List recorded runs")
	cmd.Flags().String("dumps", "", "List SQLite dumps in a directory")
	return cmd
}

// openRecordings opens the SQLite file at path, or Postgres when path is empty.
func openRecordings(path string) (*gorm.DB, func(), error) {
	var (
		db  *gorm.DB
		err error
	)
	if path != "" {
		db, err = database.SqliteDB(path)
	} else {
		db, err = database.PostgresDB()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening recordings: %w", err)
	}
	return db, func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}, nil
}

func listRuns(w io.Writer, db *gorm.DB, jsonOut bool) error {
	runs, err := gormstorage.ListRuns(db)
	if err != nil {
		return err
	}
	if jsonOut {
		if runs == nil {
			runs = []model.Run{}
		}
		return json.NewEncoder(w).Encode(runs)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tNAME\tTAG\tSTART\tSTEPS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			r.UUID, r.Name, r.Tag, r.StartTime.Format("2006-01-02 15:04:05"), r.EndStep)
	}
	return tw.Flush()
}

func listDumps(w io.Writer, dir string, jsonOut bool) error {
	paths, err := database.GetBackupDBPaths(dir)
	if err != nil {
		return fmt.Errorf("listing dumps: %w", err)
	}
	if jsonOut {
		if paths == nil {
			paths = []string{}
		}
		return json.NewEncoder(w).Encode(paths)
	}
	for _, p := range paths {
		fmt.Fprintln(w, p)
	}
	return nil
}
