package eval

import (
	"fmt"

	"github.com/penmark/hweval-api/pkg/textnorm"
)

// Certainty indicates whether the precheck reached a definitive verdict or the
// pair must be escalated to semantic adjudication.
type Certainty string

const (
	CertaintyHigh Certainty = "high"
	CertaintyLow  Certainty = "low"
)

// Precheck deterministically classifies a baseline/AI answer pair without any
// external call. It returns CertaintyHigh with a fully populated result for
// unambiguous cases; CertaintyLow with a nil result means the textual
// difference may still be semantic equivalence and needs adjudication.
//
// A malformed correct flag on either record is a contract violation and is
// returned as an error, never defaulted.
func Precheck(base, ai Answer) (Certainty, *PairEvaluation, error) {
	baseCorrect, err := textnorm.ParseCorrect(base.Correct)
	if err != nil {
		return CertaintyLow, nil, fmt.Errorf("baseline item %s: %w", base.Index, err)
	}
	aiCorrect, err := textnorm.ParseCorrect(ai.Correct)
	if err != nil {
		return CertaintyLow, nil, fmt.Errorf("ai item %s: %w", ai.Index, err)
	}

	baseUser := textnorm.NormalizeAnswer(base.UserAnswer)
	aiUser := textnorm.NormalizeAnswer(ai.UserAnswer)
	standard := textnorm.NormalizeAnswer(base.Answer)

	recognition := StatusMismatch
	if baseUser == aiUser {
		recognition = StatusConsistent
	}
	judgment := StatusMismatch
	if baseCorrect == aiCorrect {
		judgment = StatusConsistent
	}

	// The hallucination pattern is checked first: when the AI's reading
	// coincides with the standard answer while the student's actual answer
	// does not, the substituted reading is the root cause and usually drags
	// the judgment along with it. With identical readings the pattern cannot
	// fire and a judgment disagreement wins as usual.
	if standard != "" && baseUser != aiUser && aiUser == standard && baseUser != standard {
		return CertaintyHigh, &PairEvaluation{
			Index:         base.Index,
			TempIndex:     base.TempIndex,
			Verdict:       VerdictFail,
			ErrorType:     ErrorTypeHallucination,
			Severity:      SeverityFor(ErrorTypeHallucination),
			Recognition:   RecognitionResult{Status: StatusMismatch},
			Judgment:      JudgmentResult{Status: judgment},
			Hallucination: HallucinationResult{Detected: true},
		}, nil
	}

	// A disagreement on pass/fail wins over every remaining signal: a wrong
	// accept/reject decision is the most consequential failure mode. The
	// recognition sub-status is still reported from the text comparison.
	if baseCorrect != aiCorrect {
		return CertaintyHigh, &PairEvaluation{
			Index:         base.Index,
			TempIndex:     base.TempIndex,
			Verdict:       VerdictFail,
			ErrorType:     ErrorTypeJudgment,
			Severity:      SeverityFor(ErrorTypeJudgment),
			Recognition:   RecognitionResult{Status: recognition},
			Judgment:      JudgmentResult{Status: StatusMismatch},
			Hallucination: HallucinationResult{Detected: false},
		}, nil
	}

	if baseUser == aiUser {
		return CertaintyHigh, &PairEvaluation{
			Index:         base.Index,
			TempIndex:     base.TempIndex,
			Verdict:       VerdictPass,
			ErrorType:     ErrorTypeExactMatch,
			Severity:      SeverityNone,
			Recognition:   RecognitionResult{Status: StatusConsistent},
			Judgment:      JudgmentResult{Status: StatusConsistent},
			Hallucination: HallucinationResult{Detected: false},
		}, nil
	}

	// Judgments agree but the readings differ textually and no hallucination
	// pattern was found: the difference may still be genuine semantic
	// equivalence, so the caller must escalate.
	return CertaintyLow, nil, nil
}
