package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Run statuses.
const (
	RunStatusOptimal    = "optimal"
	RunStatusFallback   = "fallback"
	RunStatusInfeasible = "infeasible"
	RunStatusTimedOut   = "timed_out"
	RunStatusError      = "error"
)

// OptimizationRun is one call to the optimizer, successful or not.
type OptimizationRun struct {
	ID          string  `gorm:"primaryKey;size:36" json:"id"`
	SchemaID    string  `gorm:"not null;index" json:"schema_id"`
	Sport       string  `json:"sport"`
	Platform    string  `json:"platform"`
	Backend     string  `json:"backend"`
	Status      string  `gorm:"not null;index" json:"status"`
	Reason      string  `json:"reason,omitempty"`
	PoolSize    int     `json:"pool_size"`
	SalaryCap   int     `json:"salary_cap"`
	TotalSalary int     `json:"total_salary"`
	TotalPoints float64 `json:"total_points"`
	Nodes       int     `json:"nodes"`
	ElapsedMs   int64   `json:"elapsed_ms"`
	// Params holds the locks, exclusions and limits the run was solved with.
	Params    datatypes.JSON `json:"params,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`

	Slots []RunSlot `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"slots,omitempty"`
}

// TableName specifies the table name for GORM
func (OptimizationRun) TableName() string {
	return "optimization_runs"
}

// BeforeCreate assigns an ID when the caller did not.
func (r *OptimizationRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// RunSlot is one filled slot of a run's lineup.
type RunSlot struct {
	ID         uint    `gorm:"primaryKey" json:"-"`
	RunID      string  `gorm:"size:36;not null;index" json:"-"`
	Position   int     `gorm:"not null" json:"position"`
	Slot       string  `gorm:"not null" json:"slot"`
	Label      string  `json:"label"`
	PlayerID   string  `gorm:"not null" json:"player_id"`
	PlayerName string  `json:"player_name,omitempty"`
	Salary     int     `json:"salary"`
	Points     float64 `json:"points"`
}

func (RunSlot) TableName() string {
	return "optimization_run_slots"
}
