package models

import "time"

// AnswerRecord is one question's answer as read by either the baseline source
// or the AI grader. Correct stores the already-validated canonical flag as
// "true"/"false"; validation happens at ingest so the evaluation engine never
// sees an unparseable value from storage.
type AnswerRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	HomeworkSetID uint      `gorm:"not null;index" json:"homework_set_id"`
	Role          string    `gorm:"size:16;not null;index" json:"role"`
	Index         string    `gorm:"column:question_index;size:64;not null" json:"index"`
	TempIndex     int       `gorm:"not null" json:"tempIndex"`
	UserAnswer    string    `gorm:"type:text" json:"userAnswer"`
	Correct       string    `gorm:"size:8;not null" json:"correct"`
	Answer        string    `gorm:"type:text" json:"answer"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	// AnswerRoleBaseline marks human-verified records.
	AnswerRoleBaseline = "baseline"
	// AnswerRoleAI marks records produced by the AI grader under test.
	AnswerRoleAI = "ai"
)
