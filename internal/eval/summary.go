package eval

import "math"

// GenerateSummary aggregates a batch of pair evaluations. It is pure and never
// fails: an empty batch yields a zeroed summary.
//
// ERROR-verdict items count toward the total but toward neither passed nor
// failed, so passed+failed <= total always holds. Items without a recorded
// error type (failed adjudications) are tallied under ErrorTypeUnresolved so
// both distributions still sum to the total.
func GenerateSummary(results []PairEvaluation) Summary {
	summary := Summary{
		ErrorDistribution:    map[ErrorType]int{},
		SeverityDistribution: map[Severity]int{},
	}

	total := len(results)
	summary.Overview.Total = total
	if total == 0 {
		return summary
	}

	recognitionOK := 0
	judgmentOK := 0
	hallucinated := 0

	for _, result := range results {
		switch result.Verdict {
		case VerdictPass:
			summary.Overview.Passed++
		case VerdictFail:
			summary.Overview.Failed++
		}

		errorType := result.ErrorType
		if errorType == "" {
			errorType = ErrorTypeUnresolved
		}
		summary.ErrorDistribution[errorType]++

		severity := result.Severity
		if severity == "" {
			severity = SeverityNone
		}
		summary.SeverityDistribution[severity]++

		if result.Recognition.Status == StatusConsistent || result.Recognition.Status == StatusEquivalent {
			recognitionOK++
		}
		if result.Judgment.Status == StatusConsistent {
			judgmentOK++
		}
		if result.Hallucination.Detected {
			hallucinated++
		}
	}

	summary.Overview.PassRate = percent(summary.Overview.Passed, total)
	summary.CapabilityScores.Recognition = percent(recognitionOK, total)
	summary.CapabilityScores.Judgment = percent(judgmentOK, total)
	summary.CapabilityScores.Overall = round2((summary.CapabilityScores.Recognition + summary.CapabilityScores.Judgment) / 2)
	summary.HallucinationRate = percent(hallucinated, total)

	return summary
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(count) / float64(total) * 100)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
