package models

import (
	"time"

	"gorm.io/datatypes"
)

// EvaluationRun captures one complete comparison of a homework set's AI
// grading against its baseline, including the per-item results and the
// aggregated summary.
type EvaluationRun struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	HomeworkSetID     uint              `gorm:"not null;index" json:"homework_set_id"`
	Status            string            `gorm:"size:32;not null" json:"status"`
	Provider          string            `gorm:"size:32" json:"provider"`
	Model             string            `gorm:"size:64" json:"model"`
	Results           datatypes.JSON    `json:"results"`
	Summary           datatypes.JSONMap `json:"summary"`
	Total             int               `json:"total"`
	PassRate          float64           `json:"pass_rate"`
	HallucinationRate float64           `json:"hallucination_rate"`
	TriggeredBy       *uint             `json:"triggered_by"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        *time.Time        `json:"finished_at"`
	CreatedAt         time.Time         `json:"created_at"`
	HomeworkSet       HomeworkSet       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"homework_set"`
}

const (
	// RunStatusRunning indicates the evaluation is in flight.
	RunStatusRunning = "running"
	// RunStatusCompleted indicates results and summary are final.
	RunStatusCompleted = "completed"
	// RunStatusFailed indicates the run aborted before producing results.
	RunStatusFailed = "failed"
)

// IsFinished reports whether the run reached a terminal status.
func (r EvaluationRun) IsFinished() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}
