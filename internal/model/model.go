package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&TwinInfo{},
	&Run{},
	&Frame{},
	&Event{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// TwinInfo describes the engine this database records for
type TwinInfo struct {
	gorm.Model
	Name        string `json:"name" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
	EngineModel string `json:"engineModel" gorm:"size:127"`
}

func (*TwinInfo) TableName() string {
	return "twin_infos"
}

////////////////////////
// RECORDING
////////////////////////

// Run is one recorded simulation session
type Run struct {
	ID             uint         `json:"id" gorm:"primarykey;autoIncrement;"`
	UUID           string       `json:"uuid" gorm:"size:36;uniqueIndex:idx_run_uuid"`
	Name           string       `json:"name" gorm:"size:200"`
	Tag            string       `json:"tag" gorm:"size:127"`
	AppVersion     string       `json:"appVersion" gorm:"size:64"`
	StartTime      time.Time    `json:"startTime" gorm:"index:idx_run_start"`
	EndTime        sql.NullTime `json:"endTime"`
	TickIntervalMs float64      `json:"tickIntervalMs"`
	// Seed holds the uint64 noise seed bit-for-bit
	Seed    int64 `json:"seed"`
	EndStep uint  `json:"endStep"`
}

func (*Run) TableName() string {
	return "runs"
}

// Readings is the column set shared by the true and sensed views
type Readings struct {
	N1RPM                 float64 `json:"n1Rpm"`
	N2RPM                 float64 `json:"n2Rpm"`
	T45TempK              float64 `json:"t45TempK"`
	FuelFlowLPH           float64 `json:"fuelFlowLph"`
	LowPressureKPA        float64 `json:"lowPressureKpa"`
	HighPressureMPA       float64 `json:"highPressureMpa"`
	FuelQuantityL         float64 `json:"fuelQuantityL"`
	FilterDiffPressureKPA float64 `json:"filterDiffPressureKpa"`
}

// Health is the component health column set
type Health struct {
	BoostPump  float64 `json:"boostPump"`
	HPPump     float64 `json:"hpPump"`
	FuelFilter float64 `json:"fuelFilter"`
	Injectors  float64 `json:"injectors"`
	FADEC      float64 `json:"fadec"`
	Overall    float64 `json:"overall"`
}

// Frame is the state of the twin at one running tick
type Frame struct {
	ID       uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID    uint           `json:"runId" gorm:"index:idx_frame_run_step,priority:1"`
	Run      Run            `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Step     uint           `json:"step" gorm:"index:idx_frame_run_step,priority:2"`
	SimTime  float64        `json:"simTime"`
	Throttle float64        `json:"throttle"`
	True     Readings       `json:"true" gorm:"embedded;embeddedPrefix:true_"`
	Sensed   Readings       `json:"sensed" gorm:"embedded;embeddedPrefix:sensed_"`
	Health   Health         `json:"health" gorm:"embedded;embeddedPrefix:health_"`
	Faults   datatypes.JSON `json:"faults" gorm:"type:jsonb;default:'{}'"`
}

func (*Frame) TableName() string {
	return "frames"
}

// Event is one line of the simulation event log
type Event struct {
	ID       uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID    uint      `json:"runId" gorm:"index:idx_event_run_id"`
	Run      Run       `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Time     time.Time `json:"time"` // wall clock when logged
	Step     uint      `json:"step" gorm:"index:idx_event_step"`
	SimTime  float64   `json:"simTime"`
	Severity string    `json:"severity" gorm:"size:16"`
	Message  string    `json:"message"`
}

func (*Event) TableName() string {
	return "events"
}
