package model

import "time"

// 全エンティティ共通の監査フィールド。
// created_by / updated_by は操作ユーザーのID（ユーザー削除時はNULL）。
type AuditFields struct {
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
	CreatedBy *int64    `gorm:"index" json:"created_by"`
	UpdatedBy *int64    `gorm:"index" json:"updated_by"`
}

// 論理削除フィールド。物理削除せずフラグ＋時刻で隠す。
type SoftDeleteFields struct {
	IsDeleted bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt *time.Time `json:"-"`
}
