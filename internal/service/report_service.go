package service

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/penmark/hweval-api/internal/dto"
	"github.com/penmark/hweval-api/internal/models"
	"github.com/penmark/hweval-api/internal/repository"
)

const reportRecentRunLimit = 5

// ReportService aggregates evaluation quality across completed runs.
type ReportService interface {
	Overview(ctx context.Context, subject *string) (dto.ReportOverviewResponse, error)
}

type reportService struct {
	runs   repository.EvaluationRunRepository
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewReportService constructs a report service.
func NewReportService(runs repository.EvaluationRunRepository, logger zerolog.Logger) ReportService {
	return &reportService{
		runs:   runs,
		logger: logger.With().Str("component", "report_service").Logger(),
		tracer: otel.Tracer("github.com/penmark/hweval-api/internal/service/report"),
	}
}

func (s *reportService) Overview(ctx context.Context, subject *string) (dto.ReportOverviewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "report.overview")
	defer span.End()

	aggregates, err := s.runs.AggregateCompleted(ctx, subject)
	if err != nil {
		return dto.ReportOverviewResponse{}, err
	}

	status := models.RunStatusCompleted
	runs, err := s.runs.List(ctx, repository.EvaluationRunFilter{Status: &status, Subject: subject})
	if err != nil {
		return dto.ReportOverviewResponse{}, err
	}

	response := dto.ReportOverviewResponse{
		RunCount:             aggregates.RunCount,
		ItemCount:            aggregates.ItemCount,
		AvgPassRate:          aggregates.AvgPassRate,
		AvgHallucinationRate: aggregates.AvgHallucinationRate,
		ErrorDistribution:    make(map[string]int),
		SeverityDistribution: make(map[string]int),
	}
	if subject != nil {
		response.Subject = *subject
	}

	for _, run := range runs {
		foldDistribution(response.ErrorDistribution, run.Summary, "error_distribution")
		foldDistribution(response.SeverityDistribution, run.Summary, "severity_distribution")

		if len(response.RecentRuns) < reportRecentRunLimit {
			response.RecentRuns = append(response.RecentRuns, dto.RunDigest{
				RunID:             run.ID,
				HomeworkSetID:     run.HomeworkSetID,
				Title:             run.HomeworkSet.Title,
				Subject:           run.HomeworkSet.Subject,
				Total:             run.Total,
				PassRate:          run.PassRate,
				HallucinationRate: run.HallucinationRate,
			})
		}
	}

	span.SetAttributes(
		attribute.Int64("report.run_count", response.RunCount),
		attribute.Int64("report.item_count", response.ItemCount),
	)

	return response, nil
}

// foldDistribution adds one run's stored distribution into the accumulator.
// Summaries load from a JSON column, so nested counts arrive as float64.
func foldDistribution(acc map[string]int, summary map[string]interface{}, key string) {
	raw, ok := summary[key].(map[string]interface{})
	if !ok {
		return
	}

	for name, value := range raw {
		count, ok := value.(float64)
		if !ok {
			continue
		}
		acc[name] += int(count)
	}
}
