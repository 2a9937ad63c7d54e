package dto

import (
	"encoding/json"
	"time"

	"github.com/penmark/hweval-api/internal/eval"
	"github.com/penmark/hweval-api/internal/models"
)

// EvaluationRunResponse serializes one evaluation run for API clients.
type EvaluationRunResponse struct {
	ID                uint                   `json:"id"`
	HomeworkSetID     uint                   `json:"homework_set_id"`
	Status            string                 `json:"status"`
	Provider          string                 `json:"provider"`
	Model             string                 `json:"model"`
	Total             int                    `json:"total"`
	PassRate          float64                `json:"pass_rate"`
	HallucinationRate float64                `json:"hallucination_rate"`
	Results           json.RawMessage        `json:"results,omitempty"`
	Summary           map[string]interface{} `json:"summary,omitempty"`
	StartedAt         time.Time              `json:"started_at"`
	FinishedAt        *time.Time             `json:"finished_at"`
	CreatedAt         time.Time              `json:"created_at"`
}

// NewEvaluationRunResponse maps the model to its API representation.
func NewEvaluationRunResponse(run models.EvaluationRun) EvaluationRunResponse {
	return EvaluationRunResponse{
		ID:                run.ID,
		HomeworkSetID:     run.HomeworkSetID,
		Status:            run.Status,
		Provider:          run.Provider,
		Model:             run.Model,
		Total:             run.Total,
		PassRate:          run.PassRate,
		HallucinationRate: run.HallucinationRate,
		Results:           json.RawMessage(run.Results),
		Summary:           run.Summary,
		StartedAt:         run.StartedAt,
		FinishedAt:        run.FinishedAt,
		CreatedAt:         run.CreatedAt,
	}
}

// EvaluationProgressEvent is pushed over the progress websocket while a run is
// in flight.
type EvaluationProgressEvent struct {
	RunID     uint                `json:"run_id"`
	Completed int                 `json:"completed"`
	Total     int                 `json:"total"`
	Item      eval.PairEvaluation `json:"item"`
	SentAt    time.Time           `json:"sent_at"`
}

// EvaluationCompletedEvent is published on the message bus when a run reaches
// a terminal status.
type EvaluationCompletedEvent struct {
	RunID         uint         `json:"run_id"`
	HomeworkSetID uint         `json:"homework_set_id"`
	Status        string       `json:"status"`
	Summary       eval.Summary `json:"summary"`
	FinishedAt    time.Time    `json:"finished_at"`
}
