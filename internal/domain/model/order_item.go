package model

import "time"

// 注文時点のスナップショット。商品の編集は過去の注文に影響しない
type OrderItem struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64     `gorm:"not null;index" json:"order_id"`
	ProductID           int64     `gorm:"not null;index" json:"product_id"`
	SellerID            int64     `gorm:"not null;index" json:"seller_id"`
	ProductNameSnapshot string    `gorm:"type:varchar(255);not null" json:"product_name_snapshot"`
	ImageSnapshot       string    `gorm:"type:text" json:"image_snapshot"`
	UnitPriceSnapshot   int64     `gorm:"not null;check:unit_price_snapshot >= 0" json:"unit_price_snapshot"`
	Quantity            int64     `gorm:"not null;check:quantity >= 1" json:"quantity"`
	CreatedAt           time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (it OrderItem) Subtotal() int64 {
	return it.UnitPriceSnapshot * it.Quantity
}
