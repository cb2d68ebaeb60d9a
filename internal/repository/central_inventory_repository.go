package repository

import (
	"app/internal/domain/model"
	"context"
)

// 一覧検索
type PartListQuery struct {
	Page  int
	Limit int
	Q     string
}

// セントラル在庫台帳の約束。
// Allocate/Deallocate/Withdraw/Deposit はガード付きの原子的UPDATEで、
// stock_quantity や allocated を負にする操作は ErrConflict で失敗する。
type CentralInventoryRepository interface {
	FindByID(ctx context.Context, id int64) (model.CentralInventoryPart, error)

	//同一トランザクション内の read-validate-write 用に行ロックして読む
	FindByIDForUpdate(ctx context.Context, id int64) (model.CentralInventoryPart, error)

	FindByPartNumber(ctx context.Context, number string) (model.CentralInventoryPart, error)
	FindByPartName(ctx context.Context, name string) (model.CentralInventoryPart, error)
	FindByPartNumberAndName(ctx context.Context, number string, name string) (model.CentralInventoryPart, error)
	FindByPartNameSubstring(ctx context.Context, name string) (model.CentralInventoryPart, error)

	//未解決エラーに載せる近似候補
	SearchSimilar(ctx context.Context, q string, limit int) ([]model.CentralInventoryPart, error)

	List(ctx context.Context, q PartListQuery) ([]model.CentralInventoryPart, int64, error)
	Create(ctx context.Context, p model.CentralInventoryPart) (model.CentralInventoryPart, error)

	//allocated += qty（allocated+qty <= stock_quantity をガード）
	Allocate(ctx context.Context, partID int64, qty float64) error

	//allocated -= qty（allocated-qty >= 0 をガード）
	Deallocate(ctx context.Context, partID int64, qty float64) error

	//stock_quantity -= qty（stock_quantity-qty >= 0 をガード。dispatch時のみ）
	Withdraw(ctx context.Context, partID int64, qty float64) error

	//stock_quantity += qty
	Deposit(ctx context.Context, partID int64, qty float64) error
}
