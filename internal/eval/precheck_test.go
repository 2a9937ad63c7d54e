package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/penmark/hweval-api/pkg/textnorm"
)

func TestPrecheckExactMatch(t *testing.T) {
	answers := []string{"stopped", "3/4", "答案是正确的", "① 对"}
	corrects := []interface{}{true, false, "yes", "no", "TRUE", "False"}

	for _, answer := range answers {
		for _, correct := range corrects {
			base := Answer{Index: "1", UserAnswer: answer, Correct: correct, Answer: answer}
			aiItem := Answer{Index: "1", UserAnswer: answer, Correct: correct}

			certainty, result, err := Precheck(base, aiItem)
			require.NoError(t, err)
			require.Equal(t, CertaintyHigh, certainty)
			require.Equal(t, VerdictPass, result.Verdict)
			require.Equal(t, ErrorTypeExactMatch, result.ErrorType)
			require.Equal(t, SeverityNone, result.Severity)
			require.Equal(t, StatusConsistent, result.Recognition.Status)
			require.Equal(t, StatusConsistent, result.Judgment.Status)
			require.False(t, result.Hallucination.Detected)
		}
	}
}

func TestPrecheckExactMatchAfterNormalization(t *testing.T) {
	base := Answer{Index: "1", UserAnswer: "A", Correct: "yes", Answer: "A"}
	aiItem := Answer{Index: "1", UserAnswer: "a", Correct: "yes"}

	certainty, result, err := Precheck(base, aiItem)
	require.NoError(t, err)
	require.Equal(t, CertaintyHigh, certainty)
	require.Equal(t, VerdictPass, result.Verdict)
	require.Equal(t, ErrorTypeExactMatch, result.ErrorType)
}

func TestPrecheckJudgmentMismatch(t *testing.T) {
	cases := []struct {
		name        string
		base        Answer
		ai          Answer
		recognition string
	}{
		{
			name:        "texts differ",
			base:        Answer{Index: "2", UserAnswer: "stopped", Correct: "yes", Answer: "stopped"},
			ai:          Answer{Index: "2", UserAnswer: "stoped", Correct: "no"},
			recognition: StatusMismatch,
		},
		{
			name:        "texts identical",
			base:        Answer{Index: "3", UserAnswer: "42", Correct: true, Answer: "42"},
			ai:          Answer{Index: "3", UserAnswer: "42", Correct: false},
			recognition: StatusConsistent,
		},
		{
			name:        "boolean versus string flags",
			base:        Answer{Index: "4", UserAnswer: "x=1", Correct: "no", Answer: "x=2"},
			ai:          Answer{Index: "4", UserAnswer: "x=1", Correct: true},
			recognition: StatusConsistent,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			certainty, result, err := Precheck(tc.base, tc.ai)
			require.NoError(t, err)
			require.Equal(t, CertaintyHigh, certainty)
			require.Equal(t, VerdictFail, result.Verdict)
			require.Equal(t, ErrorTypeJudgment, result.ErrorType)
			require.Equal(t, SeverityHigh, result.Severity)
			require.Equal(t, StatusMismatch, result.Judgment.Status)
			require.Equal(t, tc.recognition, result.Recognition.Status)
			require.False(t, result.Hallucination.Detected)
		})
	}
}

func TestPrecheckHallucination(t *testing.T) {
	base := Answer{Index: "5", UserAnswer: "2/3", Correct: "no", Answer: "3/4"}
	aiItem := Answer{Index: "5", UserAnswer: "3/4", Correct: "yes"}

	certainty, result, err := Precheck(base, aiItem)
	require.NoError(t, err)
	require.Equal(t, CertaintyHigh, certainty)
	require.Equal(t, VerdictFail, result.Verdict)
	require.Equal(t, ErrorTypeHallucination, result.ErrorType)
	require.Equal(t, SeverityCritical, result.Severity)
	require.True(t, result.Hallucination.Detected)
	require.Equal(t, StatusMismatch, result.Recognition.Status)
	require.Equal(t, StatusMismatch, result.Judgment.Status)
}

func TestPrecheckHallucinationWithAgreeingJudgments(t *testing.T) {
	base := Answer{Index: "6", UserAnswer: "2/3", Correct: "yes", Answer: "3/4"}
	aiItem := Answer{Index: "6", UserAnswer: "3/4", Correct: "yes"}

	certainty, result, err := Precheck(base, aiItem)
	require.NoError(t, err)
	require.Equal(t, CertaintyHigh, certainty)
	require.Equal(t, ErrorTypeHallucination, result.ErrorType)
	require.Equal(t, StatusConsistent, result.Judgment.Status)
}

func TestPrecheckEscalatesAmbiguousPairs(t *testing.T) {
	// 0.75 and 3/4 normalize differently; only semantic adjudication can
	// decide equivalence.
	base := Answer{Index: "7", UserAnswer: "0.75", Correct: "yes", Answer: "0.75"}
	aiItem := Answer{Index: "7", UserAnswer: "3/4", Correct: "yes"}

	certainty, result, err := Precheck(base, aiItem)
	require.NoError(t, err)
	require.Equal(t, CertaintyLow, certainty)
	require.Nil(t, result)
}

func TestPrecheckRejectsMalformedCorrectFlag(t *testing.T) {
	base := Answer{Index: "8", UserAnswer: "x", Correct: "maybe", Answer: "x"}
	aiItem := Answer{Index: "8", UserAnswer: "x", Correct: "yes"}

	_, _, err := Precheck(base, aiItem)
	require.Error(t, err)
	require.ErrorIs(t, err, textnorm.ErrCorrectFlag)

	_, _, err = Precheck(
		Answer{Index: "9", UserAnswer: "x", Correct: "yes", Answer: "x"},
		Answer{Index: "9", UserAnswer: "x", Correct: 1},
	)
	require.Error(t, err)
	require.ErrorIs(t, err, textnorm.ErrCorrectFlag)
}
