package model

import "fmt"

type ProductStatus string

const (
	ProductStatusUploaded  ProductStatus = "uploaded"
	ProductStatusRejected  ProductStatus = "rejected"
	ProductStatusSuccess   ProductStatus = "success"
	ProductStatusCancelled ProductStatus = "cancelled"
)

// statusが選択肢に含まれるか。
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusUploaded, ProductStatusRejected, ProductStatusSuccess, ProductStatusCancelled:
		return true
	}
	return false
}

// 動画の上限（1本あたり・商品合計とも20MB）。
const MaxVideoBytes = 20 * 1024 * 1024

type Product struct {
	ID          int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID  int64         `gorm:"not null;index" json:"category"`
	Title       string        `gorm:"type:varchar(50);not null" json:"title"`
	Description string        `gorm:"type:varchar(251)" json:"description"`
	PriceCents  int64         `gorm:"not null;default:0" json:"-"`
	Status      ProductStatus `gorm:"type:varchar(20);not null;default:'uploaded'" json:"status"`

	AuditFields      `gorm:"embedded"`
	SoftDeleteFields `gorm:"embedded"`
}

func (Product) TableName() string { return "products" }

// "10.00" 形式の価格文字列。
func (p *Product) PriceString() string {
	return fmt.Sprintf("%d.%02d", p.PriceCents/100, p.PriceCents%100)
}
