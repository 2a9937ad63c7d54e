// Package eval implements the answer-comparison engine: a deterministic
// rule-based precheck, an LLM-backed semantic fallback and the summary
// aggregation over a batch of compared answer pairs.
package eval

// Verdict is the outcome of comparing one baseline/AI answer pair. ERROR means
// the adjudication process itself failed, not that the graders disagreed.
type Verdict string

const (
	VerdictPass  Verdict = "PASS"
	VerdictFail  Verdict = "FAIL"
	VerdictError Verdict = "ERROR"
)

// ErrorType classifies how the AI grading deviated from the baseline.
type ErrorType string

const (
	// ErrorTypeExactMatch: texts and judgments agree exactly.
	ErrorTypeExactMatch ErrorType = "完全正确"
	// ErrorTypeSemanticMatch: textually different but semantically equivalent.
	ErrorTypeSemanticMatch ErrorType = "语义等价"
	// ErrorTypeJudgment: recognition correct, judgment wrong.
	ErrorTypeJudgment ErrorType = "识别正确-判断错误"
	// ErrorTypeRecognition: recognition wrong, judgment happens to be right.
	ErrorTypeRecognition ErrorType = "识别错误-判断正确"
	// ErrorTypeBoth: recognition and judgment both wrong.
	ErrorTypeBoth ErrorType = "识别错误-判断错误"
	// ErrorTypeHallucination: the AI substituted the standard answer for what
	// the student actually wrote.
	ErrorTypeHallucination ErrorType = "AI幻觉"
	// ErrorTypeUnresolved marks items whose adjudication failed (ERROR
	// verdict); kept in the distribution so tallies still sum to the total.
	ErrorTypeUnresolved ErrorType = "评估失败"
)

// Severity grades the consequence of an error type.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Recognition sub-result statuses.
const (
	StatusConsistent = "一致"
	StatusEquivalent = "语义等价"
	StatusMismatch   = "不一致"
)

// SeverityFor returns the severity tier associated with an error type. The
// association is monotonic: hallucination is critical, a wrong accept/reject
// decision is high, recognition-only slips sit in the lower tiers.
func SeverityFor(errorType ErrorType) Severity {
	switch errorType {
	case ErrorTypeHallucination:
		return SeverityCritical
	case ErrorTypeJudgment:
		return SeverityHigh
	case ErrorTypeBoth:
		return SeverityMedium
	case ErrorTypeRecognition:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// Answer is one answer record as read from either the baseline or the AI
// grading result. Correct keeps its raw JSON representation (bool or string)
// and is parsed strictly during evaluation.
type Answer struct {
	Index      string      `json:"index"`
	TempIndex  int         `json:"tempIndex"`
	UserAnswer string      `json:"userAnswer"`
	Correct    interface{} `json:"correct"`
	Answer     string      `json:"answer,omitempty"`
}

// RecognitionResult reports whether the AI's reading of the student answer
// matches the baseline's reading.
type RecognitionResult struct {
	Status     string  `json:"status"`
	Similarity float64 `json:"similarity,omitempty"`
}

// JudgmentResult reports whether the AI's correct/incorrect call matches the
// baseline's.
type JudgmentResult struct {
	Status string `json:"status"`
}

// HallucinationResult flags AI readings that coincide with the standard answer
// instead of what the student wrote.
type HallucinationResult struct {
	Detected bool `json:"detected"`
}

// PairEvaluation is the full comparison result for one matched question.
type PairEvaluation struct {
	Index         string              `json:"index"`
	TempIndex     int                 `json:"tempIndex"`
	Verdict       Verdict             `json:"verdict"`
	ErrorType     ErrorType           `json:"error_type"`
	Severity      Severity            `json:"severity"`
	Recognition   RecognitionResult   `json:"recognition"`
	Judgment      JudgmentResult      `json:"judgment"`
	Hallucination HallucinationResult `json:"hallucination"`
	Reason        string              `json:"reason,omitempty"`
}

// Overview is the pass/fail headline of a summary.
type Overview struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	PassRate float64 `json:"pass_rate"`
}

// CapabilityScores expresses recognition and judgment consistency on a 0-100
// scale; Overall is the arithmetic mean of the two.
type CapabilityScores struct {
	Recognition float64 `json:"recognition"`
	Judgment    float64 `json:"judgment"`
	Overall     float64 `json:"overall"`
}

// Summary aggregates a batch of pair evaluations.
type Summary struct {
	Overview             Overview          `json:"overview"`
	ErrorDistribution    map[ErrorType]int `json:"error_distribution"`
	SeverityDistribution map[Severity]int  `json:"severity_distribution"`
	CapabilityScores     CapabilityScores  `json:"capability_scores"`
	HallucinationRate    float64           `json:"hallucination_rate"`
}

// BatchResult is the full outcome of evaluating one homework set.
type BatchResult struct {
	Results []PairEvaluation `json:"results"`
	Summary Summary          `json:"summary"`
}
