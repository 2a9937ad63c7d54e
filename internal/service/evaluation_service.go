package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/penmark/hweval-api/internal/dto"
	"github.com/penmark/hweval-api/internal/eval"
	"github.com/penmark/hweval-api/internal/models"
	"github.com/penmark/hweval-api/internal/repository"
)

const (
	runCompletedSubject = "hweval.run.completed"
	runCompletedStream  = "hweval:runs:completed"
	progressBufferSize  = 16
)

var (
	// ErrEvaluationRunNotFound indicates the requested run does not exist.
	ErrEvaluationRunNotFound = errors.New("evaluation run not found")
	// ErrHomeworkSetNotReady indicates the set lacks records for evaluation.
	ErrHomeworkSetNotReady = errors.New("homework set is not ready for evaluation")
	// ErrRunNotCompleted indicates the run has no summary yet.
	ErrRunNotCompleted = errors.New("evaluation run not completed")
)

// EvaluationService starts and tracks evaluation runs over homework sets.
type EvaluationService interface {
	StartRun(ctx context.Context, setID uint, triggeredBy *uint) (dto.EvaluationRunResponse, error)
	GetRun(ctx context.Context, id uint) (dto.EvaluationRunResponse, error)
	ListRuns(ctx context.Context, filter repository.EvaluationRunFilter) ([]dto.EvaluationRunResponse, error)
	RunSummary(ctx context.Context, id uint) (eval.Summary, error)
	SubscribeProgress(runID uint) (<-chan dto.EvaluationProgressEvent, func())
}

type evaluationService struct {
	sets      repository.HomeworkSetRepository
	records   repository.AnswerRecordRepository
	runs      repository.EvaluationRunRepository
	evaluator *eval.Evaluator
	provider  string
	model     string
	redis     *redis.Client
	cacheTTL  time.Duration
	nats      *nats.Conn
	logger    zerolog.Logger
	tracer    trace.Tracer
	broker    *progressBroker
}

type progressBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.EvaluationProgressEvent]struct{}
}

// NewEvaluationService constructs an evaluation service. redisClient, natsConn
// and cacheTTL are optional; zero values disable caching or event publishing.
func NewEvaluationService(
	sets repository.HomeworkSetRepository,
	records repository.AnswerRecordRepository,
	runs repository.EvaluationRunRepository,
	evaluator *eval.Evaluator,
	provider, model string,
	redisClient *redis.Client,
	cacheTTL time.Duration,
	natsConn *nats.Conn,
	logger zerolog.Logger,
) EvaluationService {
	return &evaluationService{
		sets:      sets,
		records:   records,
		runs:      runs,
		evaluator: evaluator,
		provider:  provider,
		model:     model,
		redis:     redisClient,
		cacheTTL:  cacheTTL,
		nats:      natsConn,
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
		tracer:    otel.Tracer("github.com/penmark/hweval-api/internal/service/evaluation"),
		broker: &progressBroker{
			subscribers: make(map[uint]map[chan dto.EvaluationProgressEvent]struct{}),
		},
	}
}

// StartRun validates the set, records a running entry and evaluates in the
// background. The returned response reflects the freshly created run; clients
// follow completion via GetRun or the progress stream.
func (s *evaluationService) StartRun(ctx context.Context, setID uint, triggeredBy *uint) (dto.EvaluationRunResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.start_run", trace.WithAttributes(
		attribute.Int64("evaluation.set_id", int64(setID)),
	))
	defer span.End()

	set, err := s.sets.GetByID(ctx, setID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationRunResponse{}, ErrHomeworkSetNotFound
		}
		return dto.EvaluationRunResponse{}, err
	}

	baseline, err := s.records.ListBySetAndRole(ctx, set.ID, models.AnswerRoleBaseline)
	if err != nil {
		return dto.EvaluationRunResponse{}, err
	}
	aiRecords, err := s.records.ListBySetAndRole(ctx, set.ID, models.AnswerRoleAI)
	if err != nil {
		return dto.EvaluationRunResponse{}, err
	}
	if len(baseline) == 0 || len(aiRecords) == 0 {
		return dto.EvaluationRunResponse{}, ErrHomeworkSetNotReady
	}

	run := models.EvaluationRun{
		HomeworkSetID: set.ID,
		Status:        models.RunStatusRunning,
		Provider:      s.provider,
		Model:         s.model,
		TriggeredBy:   triggeredBy,
		StartedAt:     time.Now().UTC(),
	}
	if err := s.runs.Create(ctx, &run); err != nil {
		return dto.EvaluationRunResponse{}, err
	}

	s.logger.Info().
		Uint("run_id", run.ID).
		Uint("set_id", set.ID).
		Int("baseline", len(baseline)).
		Int("ai", len(aiRecords)).
		Msg("evaluation run started")

	// The run outlives the request that triggered it.
	go s.execute(context.Background(), run, set, baseline, aiRecords)

	return dto.NewEvaluationRunResponse(run), nil
}

func (s *evaluationService) execute(ctx context.Context, run models.EvaluationRun, set models.HomeworkSet, baseline, aiRecords []models.AnswerRecord) {
	batch := s.evaluator.EvaluateBatch(ctx, toEvalAnswers(baseline), toEvalAnswers(aiRecords), eval.BatchOptions{
		Subject:      set.Subject,
		QuestionType: set.QuestionType,
		OnProgress: func(completed, total int, item eval.PairEvaluation) {
			s.broker.publish(run.ID, dto.EvaluationProgressEvent{
				RunID:     run.ID,
				Completed: completed,
				Total:     total,
				Item:      item,
				SentAt:    time.Now().UTC(),
			})
		},
	})

	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Total = batch.Summary.Overview.Total
	run.PassRate = batch.Summary.Overview.PassRate
	run.HallucinationRate = batch.Summary.HallucinationRate

	resultsJSON, err := json.Marshal(batch.Results)
	if err == nil {
		run.Results = datatypes.JSON(resultsJSON)
		run.Summary = summaryMap(batch.Summary)
		run.Status = models.RunStatusCompleted
	} else {
		s.logger.Error().Err(err).Uint("run_id", run.ID).Msg("marshal run results failed")
		run.Status = models.RunStatusFailed
	}

	if err := s.runs.Update(ctx, &run); err != nil {
		s.logger.Error().Err(err).Uint("run_id", run.ID).Msg("persist run failed")
		return
	}

	if run.Status == models.RunStatusCompleted {
		if set.Status != models.HomeworkSetStatusEvaluated {
			set.Status = models.HomeworkSetStatusEvaluated
			if err := s.sets.Update(ctx, &set); err != nil {
				s.logger.Warn().Err(err).Uint("set_id", set.ID).Msg("mark set evaluated failed")
			}
		}
		s.cacheSummary(ctx, run.ID, batch.Summary)
	}

	s.publishCompleted(ctx, run, batch.Summary, now)

	s.logger.Info().
		Uint("run_id", run.ID).
		Str("status", run.Status).
		Int("total", run.Total).
		Float64("pass_rate", run.PassRate).
		Msg("evaluation run finished")
}

func (s *evaluationService) GetRun(ctx context.Context, id uint) (dto.EvaluationRunResponse, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationRunResponse{}, ErrEvaluationRunNotFound
		}
		return dto.EvaluationRunResponse{}, err
	}

	return dto.NewEvaluationRunResponse(run), nil
}

func (s *evaluationService) ListRuns(ctx context.Context, filter repository.EvaluationRunFilter) ([]dto.EvaluationRunResponse, error) {
	runs, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.EvaluationRunResponse, 0, len(runs))
	for _, run := range runs {
		// Full per-item results stay out of list payloads.
		run.Results = nil
		responses = append(responses, dto.NewEvaluationRunResponse(run))
	}

	return responses, nil
}

// RunSummary returns the aggregated summary of a completed run, served from
// Redis when a cached copy exists.
func (s *evaluationService) RunSummary(ctx context.Context, id uint) (eval.Summary, error) {
	if cached, ok := s.cachedSummary(ctx, id); ok {
		return cached, nil
	}

	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return eval.Summary{}, ErrEvaluationRunNotFound
		}
		return eval.Summary{}, err
	}
	if run.Status != models.RunStatusCompleted {
		return eval.Summary{}, ErrRunNotCompleted
	}

	var results []eval.PairEvaluation
	if err := json.Unmarshal([]byte(run.Results), &results); err != nil {
		return eval.Summary{}, err
	}

	summary := eval.GenerateSummary(results)
	s.cacheSummary(ctx, id, summary)

	return summary, nil
}

// SubscribeProgress registers a listener for one run's progress events. The
// returned cancel func must be called to release the channel.
func (s *evaluationService) SubscribeProgress(runID uint) (<-chan dto.EvaluationProgressEvent, func()) {
	ch := make(chan dto.EvaluationProgressEvent, progressBufferSize)

	s.broker.mu.Lock()
	if s.broker.subscribers[runID] == nil {
		s.broker.subscribers[runID] = make(map[chan dto.EvaluationProgressEvent]struct{})
	}
	s.broker.subscribers[runID][ch] = struct{}{}
	s.broker.mu.Unlock()

	cancel := func() {
		s.broker.mu.Lock()
		if subs, ok := s.broker.subscribers[runID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(s.broker.subscribers, runID)
			}
		}
		s.broker.mu.Unlock()
	}

	return ch, cancel
}

func (b *progressBroker) publish(runID uint, event dto.EvaluationProgressEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[runID] {
		select {
		case ch <- event:
		default:
			// Slow subscribers drop events rather than stall the run.
		}
	}
}

func (s *evaluationService) cacheSummary(ctx context.Context, runID uint, summary eval.Summary) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, summaryCacheKey(runID), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Debug().Err(err).Uint("run_id", runID).Msg("summary cache write failed")
	}
}

func (s *evaluationService) cachedSummary(ctx context.Context, runID uint) (eval.Summary, bool) {
	if s.redis == nil {
		return eval.Summary{}, false
	}

	payload, err := s.redis.Get(ctx, summaryCacheKey(runID)).Bytes()
	if err != nil {
		return eval.Summary{}, false
	}

	var summary eval.Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return eval.Summary{}, false
	}

	return summary, true
}

// publishCompleted announces a finished run on NATS and mirrors the event to
// a Redis stream for consumers that replay history.
func (s *evaluationService) publishCompleted(ctx context.Context, run models.EvaluationRun, summary eval.Summary, finishedAt time.Time) {
	payload, err := json.Marshal(dto.EvaluationCompletedEvent{
		RunID:         run.ID,
		HomeworkSetID: run.HomeworkSetID,
		Status:        run.Status,
		Summary:       summary,
		FinishedAt:    finishedAt,
	})
	if err != nil {
		return
	}

	if s.nats != nil {
		if err := s.nats.Publish(runCompletedSubject, payload); err != nil {
			s.logger.Warn().Err(err).Uint("run_id", run.ID).Msg("publish run completed event failed")
		}
	}

	if s.redis != nil {
		err := s.redis.XAdd(ctx, &redis.XAddArgs{
			Stream: runCompletedStream,
			MaxLen: 256,
			Approx: true,
			Values: map[string]interface{}{"event": payload},
		}).Err()
		if err != nil {
			s.logger.Debug().Err(err).Uint("run_id", run.ID).Msg("mirror run completed event failed")
		}
	}
}

func summaryCacheKey(runID uint) string {
	return fmt.Sprintf("hweval:run:%d:summary", runID)
}

// summaryMap converts the typed summary into the loosely typed JSON column.
func summaryMap(summary eval.Summary) datatypes.JSONMap {
	payload, err := json.Marshal(summary)
	if err != nil {
		return nil
	}

	var m map[string]interface{}
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil
	}

	return datatypes.JSONMap(m)
}

func toEvalAnswers(records []models.AnswerRecord) []eval.Answer {
	answers := make([]eval.Answer, 0, len(records))
	for _, record := range records {
		answers = append(answers, eval.Answer{
			Index:      record.Index,
			TempIndex:  record.TempIndex,
			UserAnswer: record.UserAnswer,
			Correct:    record.Correct,
			Answer:     record.Answer,
		})
	}

	return answers
}
