package repository

import (
	"context"
	"strings"

	"app/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CenterInventoryGormRepository struct {
	db *gorm.DB
}

// DI
func NewCenterInventoryGormRepository(db *gorm.DB) *CenterInventoryGormRepository {
	return &CenterInventoryGormRepository{db: db}
}

// (service_center_id, part_number) で1行。無ければ作り、あれば加算する。
func (r *CenterInventoryGormRepository) UpsertAndIncrementStock(ctx context.Context, serviceCenterID int64, partNumber string, partName string, qty float64) error {
	row := model.ServiceCenterInventory{
		ServiceCenterID: serviceCenterID,
		PartNumber:      strings.TrimSpace(partNumber),
		PartName:        partName,
		StockQuantity:   qty,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "service_center_id"}, {Name: "part_number"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"stock_quantity": gorm.Expr("service_center_inventories.stock_quantity + ?", qty),
				"part_name":      partName,
			}),
		}).
		Create(&row).Error
	if err != nil {
		return translatePGError(err)
	}
	return nil
}

func (r *CenterInventoryGormRepository) ListByServiceCenterID(ctx context.Context, serviceCenterID int64) ([]model.ServiceCenterInventory, error) {
	var rows []model.ServiceCenterInventory
	err := r.db.WithContext(ctx).
		Where("service_center_id = ?", serviceCenterID).
		Order("part_name").
		Find(&rows).Error
	if err != nil {
		return nil, translatePGError(err)
	}
	return rows, nil
}
