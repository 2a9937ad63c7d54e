package models

import "time"

// HomeworkSet groups the answer records of one scanned homework page: the
// human-verified baseline and the AI grading result under test.
type HomeworkSet struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Title        string         `gorm:"size:255;not null" json:"title"`
	Subject      string         `gorm:"size:64;not null" json:"subject"`
	GradeLevel   string         `gorm:"size:32" json:"grade_level"`
	QuestionType string         `gorm:"size:64" json:"question_type"`
	ScanURL      string         `gorm:"size:512" json:"scan_url"`
	Status       string         `gorm:"size:32;not null" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Records      []AnswerRecord `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"records,omitempty"`
}

const (
	// HomeworkSetStatusDraft indicates records are still being ingested.
	HomeworkSetStatusDraft = "draft"
	// HomeworkSetStatusReady indicates both record sets are present.
	HomeworkSetStatusReady = "ready"
	// HomeworkSetStatusEvaluated indicates at least one completed run exists.
	HomeworkSetStatusEvaluated = "evaluated"
)

// HasScan reports whether a scanned page has been attached.
func (h HomeworkSet) HasScan() bool {
	return h.ScanURL != ""
}
