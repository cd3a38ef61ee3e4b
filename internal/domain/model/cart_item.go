package model

import "time"

// 1明細あたりの上限
const MaxCartItemQuantity int64 = 10

// カートの明細
// 追加時点の価格を必ず保存。
type CartItem struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID            int64     `gorm:"not null;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID         int64     `gorm:"not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Quantity          int64     `gorm:"not null;check:quantity BETWEEN 1 AND 10" json:"quantity"`
	UnitPriceSnapshot int64     `gorm:"not null;column:unit_price_snapshot" json:"unit_price_snapshot"`
	AddedAt           time.Time `gorm:"not null;autoCreateTime" json:"added_at"`
	UpdatedAt         time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
