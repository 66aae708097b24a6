package model

// カテゴリ。必ず1人のユーザーが所有する。
// 商品数は保存せず、都度 products から導出する。
type Category struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID string `gorm:"type:uuid;uniqueIndex;not null" json:"category_id"`
	Name       string `gorm:"type:varchar(50);not null" json:"name"`
	UserID     int64  `gorm:"not null;index" json:"user"`

	AuditFields      `gorm:"embedded"`
	SoftDeleteFields `gorm:"embedded"`
}

func (Category) TableName() string { return "categories" }
