package eval

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/penmark/hweval-api/pkg/ai"
	"github.com/penmark/hweval-api/pkg/similarity"
	"github.com/penmark/hweval-api/pkg/textnorm"
)

const (
	defaultConcurrency = 6
	defaultTimeout     = 20 * time.Second
)

// Config customises evaluator construction. Concurrency caps in-flight
// adjudication calls; Timeout bounds each individual call.
type Config struct {
	Adjudicator ai.Adjudicator
	Concurrency int
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// Evaluator compares baseline and AI answer sets. The deterministic precheck
// resolves unambiguous pairs; the rest go through the LLM adjudicator.
type Evaluator struct {
	adjudicator ai.Adjudicator
	concurrency int64
	timeout     time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// ProgressFunc receives per-item completion updates during a batch. It may be
// invoked from multiple goroutines and must be safe for concurrent use.
type ProgressFunc func(completed, total int, item PairEvaluation)

// BatchOptions carries the shared context of one evaluation batch.
type BatchOptions struct {
	Subject      string
	QuestionType string
	OnProgress   ProgressFunc
}

// NewEvaluator constructs an evaluator from the given configuration.
func NewEvaluator(cfg Config) *Evaluator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Evaluator{
		adjudicator: cfg.Adjudicator,
		concurrency: int64(cfg.Concurrency),
		timeout:     cfg.Timeout,
		logger:      cfg.Logger.With().Str("component", "evaluator").Logger(),
		tracer:      otel.Tracer("github.com/penmark/hweval-api/internal/eval"),
	}
}

// EvaluateSingle compares one matched pair. Precheck verdicts are returned
// directly; low-certainty pairs are adjudicated with a bounded timeout. Any
// failure of the adjudication process resolves to an ERROR verdict for this
// item only.
func (e *Evaluator) EvaluateSingle(ctx context.Context, base, aiItem Answer, subject, questionType string) PairEvaluation {
	certainty, result, err := Precheck(base, aiItem)
	if err != nil {
		return errorEvaluation(base.Index, base.TempIndex, err.Error())
	}
	if certainty == CertaintyHigh {
		return *result
	}

	if e.adjudicator == nil {
		return errorEvaluation(base.Index, base.TempIndex, "no adjudicator configured")
	}

	// Precheck already parsed both flags successfully on the low-certainty path.
	baseCorrect, _ := textnorm.ParseCorrect(base.Correct)
	aiCorrect, _ := textnorm.ParseCorrect(aiItem.Correct)

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	verdict, err := e.adjudicator.Classify(callCtx, ai.AdjudicationInput{
		Subject:        subject,
		QuestionType:   questionType,
		StandardAnswer: base.Answer,
		BaseUserAnswer: base.UserAnswer,
		BaseCorrect:    baseCorrect,
		AIUserAnswer:   aiItem.UserAnswer,
		AICorrect:      aiCorrect,
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("index", base.Index).Msg("adjudication failed")
		return errorEvaluation(base.Index, base.TempIndex, err.Error())
	}

	mapped, ok := mapAdjudication(base, verdict)
	if !ok {
		e.logger.Warn().Str("index", base.Index).Str("verdict", verdict.Verdict).Msg("adjudication response out of taxonomy")
		return errorEvaluation(base.Index, base.TempIndex, "adjudication response out of taxonomy")
	}

	// Attach how close the two readings were as a diagnostic alongside the
	// model's classification.
	mapped.Recognition.Similarity = similarity.Calculate(base.UserAnswer, aiItem.UserAnswer)

	return mapped
}

// EvaluateBatch aligns the two record lists on (index, tempIndex), evaluates
// every aligned pair with at most the configured number of adjudication calls
// in flight, and aggregates the results. The output preserves alignment
// order regardless of completion order, and one item's failure never aborts
// the batch: unmatched or failed items surface as ERROR results.
func (e *Evaluator) EvaluateBatch(ctx context.Context, baseline, aiItems []Answer, opts BatchOptions) BatchResult {
	ctx, span := e.tracer.Start(ctx, "eval.batch", trace.WithAttributes(
		attribute.Int("eval.baseline_count", len(baseline)),
		attribute.Int("eval.ai_count", len(aiItems)),
		attribute.String("eval.subject", opts.Subject),
	))
	defer span.End()

	pairs := alignRecords(baseline, aiItems)
	results := make([]PairEvaluation, len(pairs))
	total := len(pairs)

	var completed atomic.Int64
	report := func(index int, item PairEvaluation) {
		results[index] = item
		if opts.OnProgress != nil {
			opts.OnProgress(int(completed.Add(1)), total, item)
		}
	}

	sem := semaphore.NewWeighted(e.concurrency)
	var wg sync.WaitGroup

	for i, pair := range pairs {
		switch {
		case pair.duplicate:
			report(i, errorEvaluation(pair.ai.Index, pair.ai.TempIndex, "duplicate ai record"))
		case pair.ai == nil:
			report(i, errorEvaluation(pair.base.Index, pair.base.TempIndex, "missing ai result"))
		case pair.base == nil:
			report(i, errorEvaluation(pair.ai.Index, pair.ai.TempIndex, "missing baseline record"))
		default:
			if err := sem.Acquire(ctx, 1); err != nil {
				// Batch cancelled: already-completed slots stay intact.
				report(i, errorEvaluation(pair.base.Index, pair.base.TempIndex, "evaluation cancelled"))
				continue
			}
			wg.Add(1)
			go func(index int, base, aiItem Answer) {
				defer wg.Done()
				defer sem.Release(1)
				report(index, e.EvaluateSingle(ctx, base, aiItem, opts.Subject, opts.QuestionType))
			}(i, *pair.base, *pair.ai)
		}
	}

	wg.Wait()

	summary := GenerateSummary(results)
	span.SetAttributes(
		attribute.Int("eval.total", summary.Overview.Total),
		attribute.Int("eval.passed", summary.Overview.Passed),
		attribute.Int("eval.failed", summary.Overview.Failed),
	)

	return BatchResult{Results: results, Summary: summary}
}

// mapAdjudication converts an adjudicator response into a PairEvaluation,
// rejecting values outside the taxonomy. The OpenAI client schema-validates
// replies already; this guards alternative adjudicator implementations.
func mapAdjudication(base Answer, verdict ai.AdjudicationResult) (PairEvaluation, bool) {
	v := Verdict(verdict.Verdict)
	if v != VerdictPass && v != VerdictFail {
		return PairEvaluation{}, false
	}

	errorType := ErrorType(verdict.ErrorType)
	switch errorType {
	case ErrorTypeExactMatch, ErrorTypeSemanticMatch, ErrorTypeJudgment,
		ErrorTypeRecognition, ErrorTypeBoth, ErrorTypeHallucination:
	default:
		return PairEvaluation{}, false
	}

	severity := Severity(verdict.Severity)
	switch severity {
	case SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
	case "":
		severity = SeverityFor(errorType)
	default:
		return PairEvaluation{}, false
	}

	recognition := verdict.RecognitionStatus
	if recognition != StatusConsistent && recognition != StatusEquivalent && recognition != StatusMismatch {
		return PairEvaluation{}, false
	}
	judgment := verdict.JudgmentStatus
	if judgment != StatusConsistent && judgment != StatusMismatch {
		return PairEvaluation{}, false
	}

	return PairEvaluation{
		Index:         base.Index,
		TempIndex:     base.TempIndex,
		Verdict:       v,
		ErrorType:     errorType,
		Severity:      severity,
		Recognition:   RecognitionResult{Status: recognition},
		Judgment:      JudgmentResult{Status: judgment},
		Hallucination: HallucinationResult{Detected: errorType == ErrorTypeHallucination},
		Reason:        verdict.Reason,
	}, true
}

func errorEvaluation(index string, tempIndex int, reason string) PairEvaluation {
	return PairEvaluation{
		Index:     index,
		TempIndex: tempIndex,
		Verdict:   VerdictError,
		ErrorType: ErrorTypeUnresolved,
		Severity:  SeverityNone,
		Reason:    reason,
	}
}
