package model

import "time"

// 出荷台帳の1行（append-only。更新・削除しない）。
type DispatchRecord struct {
	ID          int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	IssueLineID int64 `gorm:"not null;index" json:"issue_line_id"`
	IssueID     int64 `gorm:"not null;index" json:"issue_id"`

	Quantity float64 `gorm:"type:decimal(12,2);not null" json:"quantity"`

	SubPoNumber string `gorm:"type:varchar(100);not null" json:"sub_po_number"`

	//このdispatch後の累計が requested_qty に達したらtrue
	IsFullyFulfilled bool `gorm:"not null;default:false" json:"is_fully_fulfilled"`

	DispatchedAt   time.Time `gorm:"not null" json:"dispatched_at"`
	DispatchedByID int64     `gorm:"not null;index" json:"dispatched_by_id"`

	//運送情報。中身は触らずそのまま保存する
	TransportDetails string `gorm:"type:text" json:"transport_details,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
