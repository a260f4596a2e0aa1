package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ImportRunStatusRunning = "running"
	ImportRunStatusSuccess = "success"
	ImportRunStatusFailed  = "failed"
)

// ImportRun is the durable record of one listing import session, kept after
// the in-memory session itself is gone.
type ImportRun struct {
	ID            uint           `json:"run_id" gorm:"primaryKey;autoIncrement"`
	SessionID     string         `json:"session_id" gorm:"column:session_id;type:varchar(64);index;not null"`
	SourceFile    string         `json:"source_file" gorm:"column:source_file;type:varchar(255);not null"`
	TriggerSource string         `json:"trigger_source" gorm:"type:varchar(64);not null"`
	DryRun        bool           `json:"dry_run" gorm:"column:dry_run;not null;default:false"`
	Status        string         `json:"status" gorm:"type:enum('running','success','failed');not null;default:'running'"`
	ErrorMessage  *string        `json:"error_message,omitempty" gorm:"type:text"`
	StartedAt     time.Time      `json:"started_at" gorm:"column:started_at;autoCreateTime"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty" gorm:"column:finished_at"`
	Duration      *float64       `json:"duration_seconds,omitempty" gorm:"column:duration_seconds"`
	TotalRows     uint           `json:"total_rows" gorm:"column:total_rows;not null;default:0"`
	ImportedCount uint           `json:"imported_count" gorm:"column:imported_count;not null;default:0"`
	UpdatedCount  uint           `json:"updated_count" gorm:"column:updated_count;not null;default:0"`
	SkippedCount  uint           `json:"skipped_count" gorm:"column:skipped_count;not null;default:0"`
	ErrorCount    uint           `json:"error_count" gorm:"column:error_count;not null;default:0"`
	CreatedAt     time.Time      `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"column:deleted_at;index"`
}

func (ImportRun) TableName() string { return "import_runs" }
