package model

import "time"

// セントラル倉庫の部品1行。
// stock_quantity は物理在庫、allocated は未出荷の引当済み数量。
// コミット済み状態では常に 0 <= allocated <= stock_quantity。
type CentralInventoryPart struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PartName string `gorm:"type:varchar(255);not null;index" json:"part_name"`

	//部品番号（無い部品もある。曖昧検索に使う）
	PartNumber *string `gorm:"type:varchar(100);index" json:"part_number"`

	StockQuantity float64 `gorm:"type:decimal(12,2);not null;default:0" json:"stock_quantity"`
	Allocated     float64 `gorm:"type:decimal(12,2);not null;default:0" json:"allocated"`

	UnitPrice float64   `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 引当を除いた出荷可能数。
func (p CentralInventoryPart) Available() float64 {
	return p.StockQuantity - p.Allocated
}
