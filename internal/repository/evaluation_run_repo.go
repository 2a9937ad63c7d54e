package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/penmark/hweval-api/internal/models"
)

// EvaluationRunFilter narrows evaluation run queries.
type EvaluationRunFilter struct {
	HomeworkSetID *uint
	Status        *string
	Subject       *string
}

// EvaluationRunRepository defines data operations for evaluation runs.
type EvaluationRunRepository interface {
	Create(ctx context.Context, run *models.EvaluationRun) error
	Update(ctx context.Context, run *models.EvaluationRun) error
	GetByID(ctx context.Context, id uint) (models.EvaluationRun, error)
	List(ctx context.Context, filter EvaluationRunFilter) ([]models.EvaluationRun, error)
	AggregateCompleted(ctx context.Context, subject *string) (RunAggregates, error)
}

// RunAggregates summarizes completed runs for reporting.
type RunAggregates struct {
	RunCount             int64
	ItemCount            int64
	AvgPassRate          float64
	AvgHallucinationRate float64
}

type evaluationRunRepository struct {
	db *gorm.DB
}

// NewEvaluationRunRepository instantiates the repository.
func NewEvaluationRunRepository(db *gorm.DB) EvaluationRunRepository {
	return &evaluationRunRepository{db: db}
}

func (r *evaluationRunRepository) Create(ctx context.Context, run *models.EvaluationRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *evaluationRunRepository) Update(ctx context.Context, run *models.EvaluationRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *evaluationRunRepository) GetByID(ctx context.Context, id uint) (models.EvaluationRun, error) {
	var run models.EvaluationRun
	if err := r.db.WithContext(ctx).Preload("HomeworkSet").First(&run, id).Error; err != nil {
		return models.EvaluationRun{}, err
	}

	return run, nil
}

func (r *evaluationRunRepository) List(ctx context.Context, filter EvaluationRunFilter) ([]models.EvaluationRun, error) {
	query := r.db.WithContext(ctx).Model(&models.EvaluationRun{}).Preload("HomeworkSet")

	if filter.HomeworkSetID != nil {
		query = query.Where("homework_set_id = ?", *filter.HomeworkSetID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Subject != nil {
		query = query.
			Joins("JOIN homework_sets ON homework_sets.id = evaluation_runs.homework_set_id").
			Where("homework_sets.subject = ?", *filter.Subject)
	}

	var runs []models.EvaluationRun
	if err := query.Order("evaluation_runs.created_at DESC").Find(&runs).Error; err != nil {
		return nil, err
	}

	return runs, nil
}

func (r *evaluationRunRepository) AggregateCompleted(ctx context.Context, subject *string) (RunAggregates, error) {
	query := r.db.WithContext(ctx).
		Model(&models.EvaluationRun{}).
		Where("evaluation_runs.status = ?", models.RunStatusCompleted)

	if subject != nil {
		query = query.
			Joins("JOIN homework_sets ON homework_sets.id = evaluation_runs.homework_set_id").
			Where("homework_sets.subject = ?", *subject)
	}

	var aggregates RunAggregates
	err := query.
		Select("count(*) as run_count, " +
			"coalesce(sum(total), 0) as item_count, " +
			"coalesce(avg(pass_rate), 0) as avg_pass_rate, " +
			"coalesce(avg(hallucination_rate), 0) as avg_hallucination_rate").
		Scan(&aggregates).Error
	if err != nil {
		return RunAggregates{}, err
	}

	return aggregates, nil
}
