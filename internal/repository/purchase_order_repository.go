package repository

import (
	"app/internal/domain/model"
	"context"
)

// 発注書は外部コラボレーター。読取と入庫数加算だけを約束する。
type PurchaseOrderRepository interface {
	FindWithItems(ctx context.Context, id int64) (model.PurchaseOrder, error)

	//received_qty += qty
	IncrementReceivedQty(ctx context.Context, itemID int64, qty float64) error
}
