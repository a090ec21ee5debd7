// Package influx records frames and log entries as InfluxDB points. When the
// server is unreachable the points go to a gzip line-protocol backup file.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/turbofuel/fueltwin/pkg/core"
)

// Bucket names written by the recorder.
const (
	BucketFrames = "twin_frames"
	BucketEvents = "twin_events"
)

// Measurement names.
const (
	MeasurementFrame = "fuel_system"
	MeasurementEvent = "twin_event"
)

// DefaultBucketNames are the buckets ensured on connect.
var DefaultBucketNames = []string{BucketFrames, BucketEvents}

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx.enabled is false")

// Manager handles InfluxDB connections and writes. It implements storage.Backend.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	backupFile *os.File
	mu         sync.Mutex
	run        *core.Run
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// ServerURL builds the server address from the influx.* config keys.
func ServerURL() string {
	return fmt.Sprintf(
		"%s://%s:%s",
		viper.GetString("influx.protocol"),
		viper.GetString("influx.host"),
		viper.GetString("influx.port"),
	)
}

// Init connects; it satisfies storage.Backend.
func (m *Manager) Init() error {
	return m.Connect()
}

// Connect establishes a connection to InfluxDB, falling back to the backup file.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		ServerURL(),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(context.Background())
	m.IsValid = err == nil && running

	if !m.IsValid {
		m.Logger.Warn().Str("backupPath", m.BackupPath).
			Msg("InfluxDB client failed to initialize, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBuckets(); err != nil {
		return err
	}
	m.CreateWriters()
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets() error {
	ctx := context.Background()
	orgName := viper.GetString("influx.org")

	// ensure org exists
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90, // 90 days
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, m.Writers[bucket].Errors())
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// StartRun sets the run whose id tags the following points.
func (m *Manager) StartRun(run *core.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.run = run
	return nil
}

// EndRun flushes pending points.
func (m *Manager) EndRun() error {
	m.mu.Lock()
	m.run = nil
	m.mu.Unlock()
	return m.flush()
}

func (m *Manager) currentRun() *core.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run
}

// RecordFrame writes one frame point.
func (m *Manager) RecordFrame(f *core.Frame) error {
	run := m.currentRun()
	if run == nil {
		return errors.New("no active run")
	}
	return m.WritePoint(BucketFrames, FramePoint(run, f))
}

// RecordEvent writes one log entry point.
func (m *Manager) RecordEvent(e *core.LogEntry) error {
	run := m.currentRun()
	if run == nil {
		return errors.New("no active run")
	}
	return m.WritePoint(BucketEvents, EventPoint(run, e))
}

func (m *Manager) flush() error {
	if m.IsValid {
		for _, w := range m.Writers {
			w.Flush()
		}
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return nil
	}
	return m.BackupWriter.Flush()
}

// Close flushes and releases the client and the backup file.
func (m *Manager) Close() error {
	err := m.flush()
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter != nil {
		err = errors.Join(err, m.BackupWriter.Close(), m.backupFile.Close())
		m.BackupWriter = nil
		m.backupFile = nil
	}
	return err
}

// FramePoint converts a frame into a point stamped at run start plus simulation time.
func FramePoint(run *core.Run, f *core.Frame) *influxdb2_write.Point {
	ts := run.StartTime.Add(time.Duration(f.Time * float64(time.Second)))
	p := influxdb2_write.NewPointWithMeasurement(MeasurementFrame).
		AddTag("run_id", run.ID.String()).
		AddTag("run_name", run.Name).
		SetTime(ts)
	if run.Tag != "" {
		p.AddTag("tag", run.Tag)
	}

	p.AddField("step", int64(f.Step)).
		AddField("sim_time", f.Time).
		AddField("throttle", f.Throttle).
		AddField("active_faults", len(f.Faults.Active()))
	for _, c := range core.Channels() {
		p.AddField("true_"+c.String(), f.True.Get(c))
		p.AddField("sensed_"+c.String(), f.Sensed.Get(c))
	}
	h := f.Health
	p.AddField("health_boost_pump", h.BoostPump).
		AddField("health_hp_pump", h.HPPump).
		AddField("health_fuel_filter", h.FuelFilter).
		AddField("health_injectors", h.Injectors).
		AddField("health_fadec", h.FADEC).
		AddField("health_overall", h.Overall)
	return p
}

// EventPoint converts a log entry into a point stamped at its wall-clock time.
func EventPoint(run *core.Run, e *core.LogEntry) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementEvent).
		AddTag("run_id", run.ID.String()).
		AddTag("severity", string(e.Severity)).
		AddField("message", e.Message).
		AddField("step", int64(e.Step)).
		AddField("sim_time", e.SimTime).
		SetTime(e.Timestamp)
}
