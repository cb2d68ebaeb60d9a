package model

import "time"

type Role string

const (
	//サービスセンターの依頼者
	RoleServiceCenter Role = "SERVICE_CENTER"
	//セントラル在庫マネージャー
	RoleCIM Role = "CIM"
	//管理者
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'SERVICE_CENTER'" json:"role"`

	//所属サービスセンター（ADMIN/CIMはnil）
	ServiceCenterID *int64 `gorm:"index" json:"service_center_id"`

	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
