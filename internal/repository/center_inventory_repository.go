package repository

import (
	"app/internal/domain/model"
	"context"
)

// 入庫先（サービスセンター在庫）への書き込みの約束。
type CenterInventoryRepository interface {
	//(service_center_id, part_number) の行を無ければ作り、stock_quantity += qty
	UpsertAndIncrementStock(ctx context.Context, serviceCenterID int64, partNumber string, partName string, qty float64) error

	ListByServiceCenterID(ctx context.Context, serviceCenterID int64) ([]model.ServiceCenterInventory, error)
}
