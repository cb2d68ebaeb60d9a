package model

import "time"

// 発注書（作成ワークフローはコア外。コアは数量の読取と入庫数の加算だけ行う）。
type PurchaseOrder struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	PONumber string `gorm:"type:varchar(50);not null;uniqueIndex" json:"po_number"`
	Status   string `gorm:"type:varchar(20);not null;default:'APPROVED'" json:"status"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`

	Items []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID" json:"items"`
}

type PurchaseOrderItem struct {
	ID              int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	PurchaseOrderID int64 `gorm:"not null;index" json:"purchase_order_id"`

	//部品のマッチングは id → name → number の順（大文字小文字無視・trim）
	CentralInventoryPartID *int64  `gorm:"index" json:"central_inventory_part_id"`
	PartName               string  `gorm:"type:varchar(255);not null" json:"part_name"`
	PartNumber             *string `gorm:"type:varchar(100)" json:"part_number"`

	Quantity float64 `gorm:"type:decimal(12,2);not null" json:"quantity"`

	//dispatchの度に加算される入庫数
	ReceivedQty float64 `gorm:"type:decimal(12,2);not null;default:0" json:"received_qty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
