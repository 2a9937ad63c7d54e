package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/penmark/hweval-api/internal/models"
)

// HomeworkSetFilter narrows homework set queries.
type HomeworkSetFilter struct {
	Subject *string
	Status  *string
}

// HomeworkSetRepository defines data operations for homework sets.
type HomeworkSetRepository interface {
	List(ctx context.Context, filter HomeworkSetFilter) ([]models.HomeworkSet, error)
	GetByID(ctx context.Context, id uint) (models.HomeworkSet, error)
	Create(ctx context.Context, set *models.HomeworkSet) error
	Update(ctx context.Context, set *models.HomeworkSet) error
	Delete(ctx context.Context, id uint) error
}

type homeworkSetRepository struct {
	db *gorm.DB
}

// NewHomeworkSetRepository instantiates the repository.
func NewHomeworkSetRepository(db *gorm.DB) HomeworkSetRepository {
	return &homeworkSetRepository{db: db}
}

func (r *homeworkSetRepository) List(ctx context.Context, filter HomeworkSetFilter) ([]models.HomeworkSet, error) {
	query := r.db.WithContext(ctx).Model(&models.HomeworkSet{})

	if filter.Subject != nil {
		query = query.Where("subject = ?", *filter.Subject)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var sets []models.HomeworkSet
	if err := query.Order("created_at DESC").Find(&sets).Error; err != nil {
		return nil, err
	}

	return sets, nil
}

func (r *homeworkSetRepository) GetByID(ctx context.Context, id uint) (models.HomeworkSet, error) {
	var set models.HomeworkSet
	if err := r.db.WithContext(ctx).First(&set, id).Error; err != nil {
		return models.HomeworkSet{}, err
	}

	return set, nil
}

func (r *homeworkSetRepository) Create(ctx context.Context, set *models.HomeworkSet) error {
	return r.db.WithContext(ctx).Create(set).Error
}

func (r *homeworkSetRepository) Update(ctx context.Context, set *models.HomeworkSet) error {
	return r.db.WithContext(ctx).Save(set).Error
}

func (r *homeworkSetRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.HomeworkSet{}, id).Error
}
