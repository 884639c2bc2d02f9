package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunStatus represents the lifecycle state of a simulation run.
type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunSuccess   RunStatus = "SUCCESS"
	RunFailed    RunStatus = "FAILED"
	RunCancelled RunStatus = "CANCELLED"
)

// CoreConfig is the fault-model and platform configuration a run was
// simulated under: core count, fault intensity, replication strategy.
type CoreConfig struct {
	NumCores          int     `json:"numCores"`
	NumFaulty         int     `json:"numFaulty"`
	ActiveBackups     int     `json:"activeBackups"`
	LambdaC           float64 `json:"lambdaC"`
	LambdaB           float64 `json:"lambdaB"`
	LambdaR           float64 `json:"lambdaR"`
	BurstyChance      float64 `json:"burstyChance"`
	FaultPeriodScaler int64   `json:"faultPeriodScaler"`
	Seed              uint64  `json:"seed"`
}

func (c *CoreConfig) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, c)
}

func (c CoreConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Run represents one simulated execution of a task set against a core
// configuration: the submitted inputs and, once complete, the resulting
// feasibility verdict and schedule summary.
type Run struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name    string    `json:"name"`
	OwnerID string    `json:"owner_id"`
	NodeID  *string   `json:"node_id"`

	TaskSetJSON json.RawMessage `json:"task_set" gorm:"type:jsonb;not null"`
	Config      CoreConfig      `json:"config" gorm:"type:jsonb;not null"`
	StartTime   int64           `json:"start_time"`
	EndTime     int64           `json:"end_time"`

	Status          RunStatus `json:"status" gorm:"type:varchar(20);default:'PENDING'"`
	Feasible        bool      `json:"feasible"`
	MissedJobCount  int       `json:"missed_job_count"`
	UnresolvedCount int       `json:"unresolved_count"`
	ScheduleURI     string    `json:"schedule_uri"`

	ScheduledAt time.Time  `json:"scheduled_at" gorm:"not null;index"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate generates a UUID if one was not already assigned.
func (r *Run) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// ScenarioRequest is the queue payload carried from submission (API or
// sweep daemon) to a worker: everything a worker needs to simulate a run
// without touching the database on the hot path.
type ScenarioRequest struct {
	RunID       uuid.UUID       `json:"run_id"`
	TaskSetJSON json.RawMessage `json:"task_set"`
	Config      CoreConfig      `json:"config"`
	StartTime   int64           `json:"start_time"`
	EndTime     int64           `json:"end_time"`
	Attempt     int             `json:"attempt"`
}
