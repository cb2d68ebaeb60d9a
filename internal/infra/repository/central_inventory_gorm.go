package repository

import (
	"context"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CentralInventoryGormRepository struct {
	db *gorm.DB
}

// DI
func NewCentralInventoryGormRepository(db *gorm.DB) *CentralInventoryGormRepository {
	return &CentralInventoryGormRepository{db: db}
}

func (r *CentralInventoryGormRepository) FindByID(ctx context.Context, id int64) (model.CentralInventoryPart, error) {
	var p model.CentralInventoryPart
	err := r.db.WithContext(ctx).First(&p, id).Error
	if isNotFound(err) {
		return model.CentralInventoryPart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CentralInventoryPart{}, translatePGError(err)
	}
	return p, nil
}

// dispatch/承認の read-validate-write はこちらで行ロックして読む。
// 同一部品への同時dispatchがどちらも「在庫あり」を見てしまうlost updateを防ぐ。
func (r *CentralInventoryGormRepository) FindByIDForUpdate(ctx context.Context, id int64) (model.CentralInventoryPart, error) {
	var p model.CentralInventoryPart
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, id).Error
	if isNotFound(err) {
		return model.CentralInventoryPart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CentralInventoryPart{}, translatePGError(err)
	}
	return p, nil
}

func (r *CentralInventoryGormRepository) FindByPartNumber(ctx context.Context, number string) (model.CentralInventoryPart, error) {
	var p model.CentralInventoryPart
	err := r.db.WithContext(ctx).
		Where("part_number IS NOT NULL AND LOWER(part_number) = LOWER(?)", strings.TrimSpace(number)).
		First(&p).Error
	if isNotFound(err) {
		return model.CentralInventoryPart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CentralInventoryPart{}, translatePGError(err)
	}
	return p, nil
}

func (r *CentralInventoryGormRepository) FindByPartName(ctx context.Context, name string) (model.CentralInventoryPart, error) {
	var p model.CentralInventoryPart
	err := r.db.WithContext(ctx).
		Where("LOWER(part_name) = LOWER(?)", strings.TrimSpace(name)).
		First(&p).Error
	if isNotFound(err) {
		return model.CentralInventoryPart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CentralInventoryPart{}, translatePGError(err)
	}
	return p, nil
}

// 古いクライアントキャッシュ対策: 番号と名前の両方が一致する行だけを返す。
func (r *CentralInventoryGormRepository) FindByPartNumberAndName(ctx context.Context, number string, name string) (model.CentralInventoryPart, error) {
	var p model.CentralInventoryPart
	err := r.db.WithContext(ctx).
		Where("part_number IS NOT NULL AND LOWER(part_number) = LOWER(?) AND LOWER(part_name) = LOWER(?)",
			strings.TrimSpace(number), strings.TrimSpace(name)).
		First(&p).Error
	if isNotFound(err) {
		return model.CentralInventoryPart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CentralInventoryPart{}, translatePGError(err)
	}
	return p, nil
}

func (r *CentralInventoryGormRepository) FindByPartNameSubstring(ctx context.Context, name string) (model.CentralInventoryPart, error) {
	var p model.CentralInventoryPart
	like := "%" + strings.TrimSpace(name) + "%"
	err := r.db.WithContext(ctx).
		Where("part_name ILIKE ?", like).
		Order("id").
		First(&p).Error
	if isNotFound(err) {
		return model.CentralInventoryPart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CentralInventoryPart{}, translatePGError(err)
	}
	return p, nil
}

func (r *CentralInventoryGormRepository) SearchSimilar(ctx context.Context, q string, limit int) ([]model.CentralInventoryPart, error) {
	var parts []model.CentralInventoryPart
	like := "%" + strings.TrimSpace(q) + "%"
	err := r.db.WithContext(ctx).
		Where("part_name ILIKE ? OR part_number ILIKE ?", like, like).
		Order("part_name").
		Limit(limit).
		Find(&parts).Error
	if err != nil {
		return nil, translatePGError(err)
	}
	return parts, nil
}

func (r *CentralInventoryGormRepository) List(ctx context.Context, q repo.PartListQuery) ([]model.CentralInventoryPart, int64, error) {
	var parts []model.CentralInventoryPart
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.CentralInventoryPart{})

	if strings.TrimSpace(q.Q) != "" {
		like := "%" + strings.TrimSpace(q.Q) + "%"
		tx = tx.Where("part_name ILIKE ? OR part_number ILIKE ?", like, like)
	}

	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, translatePGError(err)
	}

	offset := (q.Page - 1) * q.Limit
	if err := tx.Order("part_name").Offset(offset).Limit(q.Limit).Find(&parts).Error; err != nil {
		return nil, 0, translatePGError(err)
	}
	return parts, total, nil
}

func (r *CentralInventoryGormRepository) Create(ctx context.Context, p model.CentralInventoryPart) (model.CentralInventoryPart, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.CentralInventoryPart{}, translatePGError(err)
	}
	return p, nil
}

// allocated += qty。allocated が stock_quantity を超える更新は0行になり ErrConflict。
func (r *CentralInventoryGormRepository) Allocate(ctx context.Context, partID int64, qty float64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CentralInventoryPart{}).
		Where("id = ? AND allocated + ? <= stock_quantity", partID, qty).
		Update("allocated", gorm.Expr("allocated + ?", qty))
	if res.Error != nil {
		return translatePGError(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.conflictOrNotFound(ctx, partID)
	}
	return nil
}

// allocated -= qty。負になる更新は0行になり ErrConflict。
func (r *CentralInventoryGormRepository) Deallocate(ctx context.Context, partID int64, qty float64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CentralInventoryPart{}).
		Where("id = ? AND allocated - ? >= 0", partID, qty).
		Update("allocated", gorm.Expr("allocated - ?", qty))
	if res.Error != nil {
		return translatePGError(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.conflictOrNotFound(ctx, partID)
	}
	return nil
}

// stock_quantity -= qty。dispatch時のみ使う。
func (r *CentralInventoryGormRepository) Withdraw(ctx context.Context, partID int64, qty float64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CentralInventoryPart{}).
		Where("id = ? AND stock_quantity - ? >= 0", partID, qty).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if res.Error != nil {
		return translatePGError(res.Error)
	}
	if res.RowsAffected == 0 {
		return r.conflictOrNotFound(ctx, partID)
	}
	return nil
}

func (r *CentralInventoryGormRepository) Deposit(ctx context.Context, partID int64, qty float64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CentralInventoryPart{}).
		Where("id = ?", partID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", qty))
	if res.Error != nil {
		return translatePGError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 0行更新が「行が無い」のか「ガードに弾かれた」のかを区別する。
func (r *CentralInventoryGormRepository) conflictOrNotFound(ctx context.Context, partID int64) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.CentralInventoryPart{}).
		Where("id = ?", partID).
		Count(&count).Error; err != nil {
		return translatePGError(err)
	}
	if count == 0 {
		return repo.ErrNotFound
	}
	return repo.ErrConflict
}
