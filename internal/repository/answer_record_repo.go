package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/penmark/hweval-api/internal/models"
)

// AnswerRecordRepository defines data operations for answer records.
type AnswerRecordRepository interface {
	ListBySetAndRole(ctx context.Context, setID uint, role string) ([]models.AnswerRecord, error)
	ReplaceForSetAndRole(ctx context.Context, setID uint, role string, records []models.AnswerRecord) error
	CountBySet(ctx context.Context, setID uint) (map[string]int64, error)
}

type answerRecordRepository struct {
	db *gorm.DB
}

// NewAnswerRecordRepository instantiates the repository.
func NewAnswerRecordRepository(db *gorm.DB) AnswerRecordRepository {
	return &answerRecordRepository{db: db}
}

func (r *answerRecordRepository) ListBySetAndRole(ctx context.Context, setID uint, role string) ([]models.AnswerRecord, error) {
	var records []models.AnswerRecord
	err := r.db.WithContext(ctx).
		Where("homework_set_id = ?", setID).
		Where("role = ?", role).
		Order("temp_index ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

// ReplaceForSetAndRole swaps the full record list of one role atomically, so a
// re-ingested answer sheet never mixes with stale rows.
func (r *answerRecordRepository) ReplaceForSetAndRole(ctx context.Context, setID uint, role string, records []models.AnswerRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("homework_set_id = ?", setID).
			Where("role = ?", role).
			Delete(&models.AnswerRecord{}).Error; err != nil {
			return err
		}

		if len(records) == 0 {
			return nil
		}

		return tx.Create(&records).Error
	})
}

func (r *answerRecordRepository) CountBySet(ctx context.Context, setID uint) (map[string]int64, error) {
	type roleCount struct {
		Role  string
		Count int64
	}

	var counts []roleCount
	err := r.db.WithContext(ctx).
		Model(&models.AnswerRecord{}).
		Select("role, count(*) as count").
		Where("homework_set_id = ?", setID).
		Group("role").
		Find(&counts).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(counts))
	for _, entry := range counts {
		result[entry.Role] = entry.Count
	}

	return result, nil
}
