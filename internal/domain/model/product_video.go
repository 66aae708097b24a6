package model

import "time"

// 商品に添付される動画。blobストア上のキーだけを持つ。
// 商品とは独立に論理削除できる。
type ProductVideo struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID  int64     `gorm:"not null;index" json:"product"`
	FileKey    string    `gorm:"type:varchar(512);not null" json:"file"`
	SizeBytes  int64     `gorm:"not null;default:0" json:"size_bytes"`
	UploadedAt time.Time `gorm:"not null;autoCreateTime" json:"uploaded_at"`

	SoftDeleteFields `gorm:"embedded"`
}

func (ProductVideo) TableName() string { return "product_videos" }
