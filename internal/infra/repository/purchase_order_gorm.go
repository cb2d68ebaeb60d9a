package repository

import (
	"context"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type PurchaseOrderGormRepository struct {
	db *gorm.DB
}

// DI
func NewPurchaseOrderGormRepository(db *gorm.DB) *PurchaseOrderGormRepository {
	return &PurchaseOrderGormRepository{db: db}
}

func (r *PurchaseOrderGormRepository) FindWithItems(ctx context.Context, id int64) (model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&po, id).Error
	if isNotFound(err) {
		return model.PurchaseOrder{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PurchaseOrder{}, translatePGError(err)
	}
	return po, nil
}

func (r *PurchaseOrderGormRepository) IncrementReceivedQty(ctx context.Context, itemID int64, qty float64) error {
	res := r.db.WithContext(ctx).
		Model(&model.PurchaseOrderItem{}).
		Where("id = ?", itemID).
		Update("received_qty", gorm.Expr("received_qty + ?", qty))
	if res.Error != nil {
		return translatePGError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
