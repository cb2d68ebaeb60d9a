package model

import "time"

// 帳票番号の連番。prefix+yearでスコープし、年が変わると1から。
type DocumentSequence struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Prefix  string `gorm:"type:varchar(10);not null;uniqueIndex:idx_prefix_year" json:"prefix"`
	Year    int    `gorm:"not null;uniqueIndex:idx_prefix_year" json:"year"`
	LastSeq int    `gorm:"not null;default:0" json:"last_seq"`

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
