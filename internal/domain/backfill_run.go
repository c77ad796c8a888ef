package domain

import "time"

// RunStatus represents the state of a backfill run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// BackfillRun is the audit record of one ml-backfill invocation.
type BackfillRun struct {
	ID          string     `gorm:"type:text;primaryKey" json:"id"`
	Force       bool       `json:"force"`
	Limit       int        `gorm:"column:limit_n" json:"limit"`
	Status      RunStatus  `gorm:"type:text;default:running" json:"status"`
	Total       int64      `json:"total"`
	Processed   int64      `json:"processed"`
	Updated     int64      `json:"updated"`
	Skipped     int64      `json:"skipped"`
	AltFailures int64      `json:"alt_failures"`
	TagFailures int64      `json:"tag_failures"`
	ErrorLog    string     `gorm:"type:text" json:"error_log,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (BackfillRun) TableName() string {
	return "backfill_runs"
}
