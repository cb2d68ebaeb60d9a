package model

import "time"

// EVサービスセンター（テナント単位）。
type ServiceCenter struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(255);not null" json:"name"`

	//サブPO番号に入る短縮コード（例: BLR01）
	Code string `gorm:"type:varchar(20);not null;uniqueIndex" json:"code"`

	City      string    `gorm:"type:varchar(100)" json:"city"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
