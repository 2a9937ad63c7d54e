package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/penmark/hweval-api/internal/models"
	"github.com/penmark/hweval-api/internal/repository"
)

type fakeReportRunRepo struct {
	aggregates repository.RunAggregates
	runs       []models.EvaluationRun

	subjectSeen *string
}

func (f *fakeReportRunRepo) Create(ctx context.Context, run *models.EvaluationRun) error { return nil }
func (f *fakeReportRunRepo) Update(ctx context.Context, run *models.EvaluationRun) error { return nil }

func (f *fakeReportRunRepo) GetByID(ctx context.Context, id uint) (models.EvaluationRun, error) {
	return models.EvaluationRun{}, nil
}

func (f *fakeReportRunRepo) List(ctx context.Context, filter repository.EvaluationRunFilter) ([]models.EvaluationRun, error) {
	return f.runs, nil
}

func (f *fakeReportRunRepo) AggregateCompleted(ctx context.Context, subject *string) (repository.RunAggregates, error) {
	f.subjectSeen = subject
	return f.aggregates, nil
}

func TestReportServiceOverviewFoldsDistributions(t *testing.T) {
	repo := &fakeReportRunRepo{
		aggregates: repository.RunAggregates{
			RunCount:             2,
			ItemCount:            30,
			AvgPassRate:          75,
			AvgHallucinationRate: 5,
		},
		runs: []models.EvaluationRun{
			{
				ID:            2,
				HomeworkSetID: 1,
				Total:         20,
				PassRate:      80,
				HomeworkSet:   models.HomeworkSet{Title: "第二单元", Subject: "math"},
				Summary: datatypes.JSONMap{
					"error_distribution":    map[string]interface{}{"完全正确": float64(16), "识别正确-判断错误": float64(3), "AI幻觉": float64(1)},
					"severity_distribution": map[string]interface{}{"high": float64(3), "critical": float64(1)},
				},
			},
			{
				ID:            1,
				HomeworkSetID: 1,
				Total:         10,
				PassRate:      70,
				HomeworkSet:   models.HomeworkSet{Title: "第一单元", Subject: "math"},
				Summary: datatypes.JSONMap{
					"error_distribution":    map[string]interface{}{"完全正确": float64(7), "AI幻觉": float64(3)},
					"severity_distribution": map[string]interface{}{"critical": float64(3)},
				},
			},
		},
	}

	svc := NewReportService(repo, testLogger())

	subject := "math"
	overview, err := svc.Overview(context.Background(), &subject)
	require.NoError(t, err)

	require.Equal(t, "math", overview.Subject)
	require.Equal(t, &subject, repo.subjectSeen)
	require.Equal(t, int64(2), overview.RunCount)
	require.Equal(t, int64(30), overview.ItemCount)
	require.InDelta(t, 75.0, overview.AvgPassRate, 0.01)

	require.Equal(t, 23, overview.ErrorDistribution["完全正确"])
	require.Equal(t, 3, overview.ErrorDistribution["识别正确-判断错误"])
	require.Equal(t, 4, overview.ErrorDistribution["AI幻觉"])
	require.Equal(t, 4, overview.SeverityDistribution["critical"])
	require.Equal(t, 3, overview.SeverityDistribution["high"])

	require.Len(t, overview.RecentRuns, 2)
	require.Equal(t, uint(2), overview.RecentRuns[0].RunID)
	require.Equal(t, "第二单元", overview.RecentRuns[0].Title)
}

func TestReportServiceOverviewRecentRunLimit(t *testing.T) {
	repo := &fakeReportRunRepo{}
	for i := 0; i < reportRecentRunLimit+3; i++ {
		repo.runs = append(repo.runs, models.EvaluationRun{ID: uint(i + 1)})
	}

	svc := NewReportService(repo, testLogger())

	overview, err := svc.Overview(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, overview.RecentRuns, reportRecentRunLimit)
	require.Empty(t, overview.Subject)
}
