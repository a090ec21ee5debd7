package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbofuel/fueltwin/internal/config"
)

const testScenario = `name: short clog
ticks: 10
steps:
  - at: 0
    throttle: 80
  - at: 4
    fault:
      channel: filterDiffPressure
      kind: Progressive Clog
      magnitude: 200
`

// execute runs the root command with a config directory whose recordings
// and logs go below dir.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(viper.Reset)

	cfg := map[string]any{
		"logsDir": filepath.Join(dir, "logs"),
		"engine":  map[string]any{"seed": 7},
		"storage": map[string]any{
			"type":   "memory,sqlite",
			"memory": map[string]any{"outputDir": filepath.Join(dir, "recordings")},
			"sqlite": map[string]any{"outputDir": filepath.Join(dir, "dumps"), "dumpInterval": "1h"},
		},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), data, 0o644))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", dir))
	err = cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version", "--json")
	require.NoError(t, err)

	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, version, v["version"])
}

func TestRunThenExport(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "short.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(testScenario), 0o644))

	out, err := execute(t, dir, "run", scenarioPath, "--json", "--tag", "ci")
	require.NoError(t, err)

	var res struct {
		Name  string `json:"name"`
		Ticks int    `json:"ticks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "short clog", res.Name)
	assert.Equal(t, 10, res.Ticks)

	recordings, err := filepath.Glob(filepath.Join(dir, "recordings", "*.json.gz"))
	require.NoError(t, err)
	assert.Len(t, recordings, 1)

	dumps, err := filepath.Glob(filepath.Join(dir, "dumps", "*.db"))
	require.NoError(t, err)
	require.Len(t, dumps, 1)

	out, err = execute(t, dir, "export", "--sqlite", dumps[0], "--list", "--json")
	require.NoError(t, err)
	var runs []struct {
		Name    string `json:"name"`
		Tag     string `json:"tag"`
		EndStep uint   `json:"endStep"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "short clog", runs[0].Name)
	assert.Equal(t, "ci", runs[0].Tag)
	assert.Equal(t, uint(10), runs[0].EndStep)

	exportDir := filepath.Join(dir, "export")
	out, err = execute(t, dir, "export", "--sqlite", dumps[0], "--format", "csv", "--out", exportDir, "--json")
	require.NoError(t, err)
	var exported struct {
		Path   string `json:"path"`
		Frames int    `json:"frames"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	assert.Equal(t, 10, exported.Frames)
	assert.FileExists(t, exported.Path)
	assert.Equal(t, exportDir, filepath.Dir(exported.Path))
}

func TestRunRejectsInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bad\nticks: 0\n"), 0o644))

	_, err := execute(t, dir, "run", path)
	assert.Error(t, err)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "export", "--sqlite", filepath.Join(dir, "x.db"), "--format", "pdf")
	assert.ErrorContains(t, err, "unknown export format")
}
