package monitor

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbofuel/fueltwin/internal/session"
	"github.com/turbofuel/fueltwin/pkg/core"
)

type fakeSource struct {
	state core.SimulationState
}

func (f *fakeSource) Snapshot() core.SimulationState  { return f.state }
func (f *fakeSource) SubscriberCount() int            { return 2 }
func (f *fakeSource) LastTickDuration() time.Duration { return 1500 * time.Microsecond }

type fakeWriter struct{}

func (fakeWriter) GetLastDBWriteDuration() time.Duration { return 3 * time.Millisecond }

func newSource() *fakeSource {
	s := core.InitialState(time.Time{})
	s.IsRunning = true
	s.Step = 7
	s.Time = 3.5
	s.Throttle = 80
	s.Health.Overall = 92.5
	s.Faults = s.Faults.With(core.ChannelT45, core.FaultConfig{Kind: core.FaultStuck, Magnitude: 900})
	return &fakeSource{state: s}
}

func TestGetStatus(t *testing.T) {
	sess := session.NewContext()
	run := core.NewRun("bench", time.Now(), time.Second)
	sess.SetRun(run)

	svc := NewService(Dependencies{Source: newSource(), Session: sess, Writer: fakeWriter{}, OutputDir: t.TempDir()})
	st := svc.GetStatus()

	assert.True(t, st.Running)
	assert.Equal(t, uint64(7), st.Step)
	assert.Equal(t, 3.5, st.SimTime)
	assert.Equal(t, 80.0, st.Throttle)
	assert.Equal(t, 92.5, st.OverallHealth)
	assert.Equal(t, []string{"t45:Stuck-at-Value"}, st.ActiveFaults)
	assert.Equal(t, 2, st.Subscribers)
	assert.Equal(t, 1.5, st.LastTickMs)
	assert.Equal(t, 3.0, st.LastWriteMs)
	assert.Equal(t, run.ID.String(), st.RunID)
}

func TestWriteStatus(t *testing.T) {
	svc := NewService(Dependencies{Source: newSource(), OutputDir: t.TempDir()})

	_, err := svc.WriteStatus()
	require.NoError(t, err)

	data, err := os.ReadFile(svc.Path())
	require.NoError(t, err)

	var st Status
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, uint64(7), st.Step)
	assert.Empty(t, st.RunID)
	assert.Zero(t, st.LastWriteMs)
}

func TestStartStop(t *testing.T) {
	svc := NewService(Dependencies{Source: newSource(), OutputDir: t.TempDir(), Interval: 10 * time.Millisecond})

	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())
	require.NoError(t, svc.Start(), "second start is a no-op")

	assert.Eventually(t, func() bool {
		_, err := os.Stat(svc.Path())
		return err == nil
	}, time.Second, 10*time.Millisecond)

	svc.Stop()
	assert.False(t, svc.IsRunning())
	svc.Stop()
}
