package repository

import (
	"context"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PartsIssueGormRepository struct {
	db *gorm.DB
}

// DI
func NewPartsIssueGormRepository(db *gorm.DB) *PartsIssueGormRepository {
	return &PartsIssueGormRepository{db: db}
}

// ヘッダと行をまとめて1トランザクション内で作る（呼び出し側がtxを握っている前提）。
func (r *PartsIssueGormRepository) Create(ctx context.Context, req model.PartsIssueRequest) (model.PartsIssueRequest, error) {
	if err := r.db.WithContext(ctx).Create(&req).Error; err != nil {
		return model.PartsIssueRequest{}, translatePGError(err)
	}
	return req, nil
}

func (r *PartsIssueGormRepository) FindByID(ctx context.Context, id int64) (model.PartsIssueRequest, error) {
	var req model.PartsIssueRequest
	err := r.db.WithContext(ctx).
		Preload("Lines.Part").
		Preload("Lines.Dispatches").
		First(&req, id).Error
	if isNotFound(err) {
		return model.PartsIssueRequest{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PartsIssueRequest{}, translatePGError(err)
	}
	return req, nil
}

// 状態遷移はヘッダ行をロックしてから判定する。
func (r *PartsIssueGormRepository) FindByIDForUpdate(ctx context.Context, id int64) (model.PartsIssueRequest, error) {
	var req model.PartsIssueRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, id).Error
	if isNotFound(err) {
		return model.PartsIssueRequest{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PartsIssueRequest{}, translatePGError(err)
	}

	//行はロック対象にしない（部品行のロックはdispatch側で別途取る）
	if err := r.db.WithContext(ctx).
		Preload("Part").
		Where("issue_id = ?", id).
		Order("id").
		Find(&req.Lines).Error; err != nil {
		return model.PartsIssueRequest{}, translatePGError(err)
	}
	return req, nil
}

func (r *PartsIssueGormRepository) List(ctx context.Context, f repo.PartsIssueListFilter) ([]model.PartsIssueRequest, int64, error) {
	var reqs []model.PartsIssueRequest
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.PartsIssueRequest{})

	if f.Status != nil {
		tx = tx.Where("status = ?", *f.Status)
	}
	if f.ToServiceCenterID != nil {
		tx = tx.Where("to_service_center_id = ?", *f.ToServiceCenterID)
	}

	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, translatePGError(err)
	}

	offset := (f.Page - 1) * f.Limit
	err := tx.Preload("Lines.Part").
		Order("id DESC").
		Offset(offset).
		Limit(f.Limit).
		Find(&reqs).Error
	if err != nil {
		return nil, 0, translatePGError(err)
	}
	return reqs, total, nil
}

func (r *PartsIssueGormRepository) UpdateStatus(ctx context.Context, id int64, status model.PartsIssueStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.PartsIssueRequest{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return translatePGError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PartsIssueGormRepository) Reject(ctx context.Context, id int64, reason string) error {
	res := r.db.WithContext(ctx).
		Model(&model.PartsIssueRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.IssueStatusRejected,
			"reject_reason": reason,
		})
	if res.Error != nil {
		return translatePGError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 行更新はどれもカラム明示。requested_qty はここから先では書けない。

func (r *PartsIssueGormRepository) UpdateLineApprovedQty(ctx context.Context, lineID int64, qty float64) error {
	res := r.db.WithContext(ctx).
		Model(&model.PartsIssueLine{}).
		Where("id = ?", lineID).
		Update("approved_qty", qty)
	if res.Error != nil {
		return translatePGError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PartsIssueGormRepository) UpdateLineDispatchProgress(ctx context.Context, lineID int64, issuedQty float64, subPoNumber string) error {
	res := r.db.WithContext(ctx).
		Model(&model.PartsIssueLine{}).
		Where("id = ?", lineID).
		Updates(map[string]interface{}{
			"issued_qty":    issuedQty,
			"sub_po_number": subPoNumber,
		})
	if res.Error != nil {
		return translatePGError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *PartsIssueGormRepository) UpdateLineReceivedQty(ctx context.Context, lineID int64, qty float64) error {
	res := r.db.WithContext(ctx).
		Model(&model.PartsIssueLine{}).
		Where("id = ?", lineID).
		Update("received_qty", qty)
	if res.Error != nil {
		return translatePGError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
