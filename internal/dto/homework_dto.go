package dto

import (
	"time"

	"github.com/penmark/hweval-api/internal/models"
)

// HomeworkSetCreateRequest describes the payload for registering a homework set.
type HomeworkSetCreateRequest struct {
	Title        string `json:"title" validate:"required,min=1,max=255"`
	Subject      string `json:"subject" validate:"required,min=1,max=64"`
	GradeLevel   string `json:"grade_level" validate:"omitempty,max=32"`
	QuestionType string `json:"question_type" validate:"omitempty,max=64"`
}

// HomeworkSetUpdateRequest updates mutable homework set fields.
type HomeworkSetUpdateRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=1,max=255"`
	Subject      *string `json:"subject" validate:"omitempty,min=1,max=64"`
	GradeLevel   *string `json:"grade_level" validate:"omitempty,max=32"`
	QuestionType *string `json:"question_type" validate:"omitempty,max=64"`
}

// AnswerRecordRequest is one answer record in an ingest payload. Correct keeps
// its raw JSON shape (bool or string) and is parsed strictly by the service;
// the "required" tag is deliberately absent because false is a legal value.
type AnswerRecordRequest struct {
	Index      string      `json:"index" validate:"required"`
	TempIndex  int         `json:"tempIndex" validate:"gte=0"`
	UserAnswer string      `json:"userAnswer"`
	Correct    interface{} `json:"correct"`
	Answer     string      `json:"answer"`
}

// AnswerRecordsIngestRequest replaces one role's full record list for a set.
type AnswerRecordsIngestRequest struct {
	Records []AnswerRecordRequest `json:"records" validate:"required,min=1,dive"`
}

// HomeworkSetResponse is returned to API clients when viewing homework sets.
type HomeworkSetResponse struct {
	ID           uint             `json:"id"`
	Title        string           `json:"title"`
	Subject      string           `json:"subject"`
	GradeLevel   string           `json:"grade_level"`
	QuestionType string           `json:"question_type"`
	ScanURL      string           `json:"scan_url"`
	Status       string           `json:"status"`
	RecordCounts map[string]int64 `json:"record_counts,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewHomeworkSetResponse maps the model to its API representation.
func NewHomeworkSetResponse(set models.HomeworkSet, counts map[string]int64) HomeworkSetResponse {
	return HomeworkSetResponse{
		ID:           set.ID,
		Title:        set.Title,
		Subject:      set.Subject,
		GradeLevel:   set.GradeLevel,
		QuestionType: set.QuestionType,
		ScanURL:      set.ScanURL,
		Status:       set.Status,
		RecordCounts: counts,
		CreatedAt:    set.CreatedAt,
		UpdatedAt:    set.UpdatedAt,
	}
}
