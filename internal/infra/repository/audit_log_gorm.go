package repository

import (
	"context"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type AuditLogGormRepository struct {
	db *gorm.DB
}

// DI
func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

// 監査ログを1件保存
func (r *AuditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(&log).Error; err != nil {
		return translatePGError(err)
	}
	return nil
}

// 監査ログを条件で一覧取得。
func (r *AuditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	var logs []model.AuditLog

	tx := r.db.WithContext(ctx).Model(&model.AuditLog{})

	if f.ActorUserID != nil {
		tx = tx.Where("actor_user_id = ?", *f.ActorUserID)
	}
	if f.Action != nil {
		tx = tx.Where("action = ?", *f.Action)
	}
	if f.ResourceType != nil {
		tx = tx.Where("resource_type = ?", *f.ResourceType)
	}
	if f.ResourceID != nil {
		tx = tx.Where("resource_id = ?", *f.ResourceID)
	}
	if f.CreatedFrom != nil {
		tx = tx.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		tx = tx.Where("created_at <= ?", *f.CreatedTo)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	if err := tx.Order("id DESC").Offset(f.Offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, translatePGError(err)
	}
	return logs, nil
}
