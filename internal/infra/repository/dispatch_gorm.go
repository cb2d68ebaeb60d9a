package repository

import (
	"context"

	"app/internal/domain/model"

	"gorm.io/gorm"
)

// 出荷台帳。INSERTと読取だけで、UPDATE/DELETEは実装しない。
type DispatchGormRepository struct {
	db *gorm.DB
}

// DI
func NewDispatchGormRepository(db *gorm.DB) *DispatchGormRepository {
	return &DispatchGormRepository{db: db}
}

func (r *DispatchGormRepository) Create(ctx context.Context, rec model.DispatchRecord) (model.DispatchRecord, error) {
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return model.DispatchRecord{}, translatePGError(err)
	}
	return rec, nil
}

func (r *DispatchGormRepository) CountByLineID(ctx context.Context, lineID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.DispatchRecord{}).
		Where("issue_line_id = ?", lineID).
		Count(&count).Error
	if err != nil {
		return 0, translatePGError(err)
	}
	return count, nil
}

func (r *DispatchGormRepository) ListByIssueID(ctx context.Context, issueID int64) ([]model.DispatchRecord, error) {
	var recs []model.DispatchRecord
	err := r.db.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, translatePGError(err)
	}
	return recs, nil
}
