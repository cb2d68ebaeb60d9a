package model

import "time"

// サービスセンター側のローカル在庫。
// セントラルと同じ形だが allocated は持たない。
type ServiceCenterInventory struct {
	ID              int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ServiceCenterID int64 `gorm:"not null;uniqueIndex:idx_center_part" json:"service_center_id"`

	PartNumber string `gorm:"type:varchar(100);not null;uniqueIndex:idx_center_part" json:"part_number"`
	PartName   string `gorm:"type:varchar(255);not null" json:"part_name"`

	StockQuantity float64 `gorm:"type:decimal(12,2);not null;default:0" json:"stock_quantity"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
