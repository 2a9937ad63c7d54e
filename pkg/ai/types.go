package ai

import "context"

// AdjudicationInput carries one disputed answer pair to the LLM adjudicator:
// what the baseline read and judged, what the AI grader read and judged, and
// the standard answer for reference.
type AdjudicationInput struct {
	Subject        string
	QuestionType   string
	StandardAnswer string
	BaseUserAnswer string
	BaseCorrect    bool
	AIUserAnswer   string
	AICorrect      bool
}

// AdjudicationResult is the structured classification returned by the model.
// Enum fields use the grading taxonomy verbatim; schema validation happens
// before the result is handed back to the evaluation engine.
type AdjudicationResult struct {
	Verdict           string                 `json:"verdict"`
	ErrorType         string                 `json:"error_type"`
	Severity          string                 `json:"severity"`
	RecognitionStatus string                 `json:"recognition_status"`
	JudgmentStatus    string                 `json:"judgment_status"`
	Reason            string                 `json:"reason,omitempty"`
	Raw               map[string]interface{} `json:"raw,omitempty"`
}

// Adjudicator describes an AI model capable of deciding whether two answer
// readings are semantically equivalent and classifying the grading error.
type Adjudicator interface {
	Classify(ctx context.Context, input AdjudicationInput) (AdjudicationResult, error)
}
