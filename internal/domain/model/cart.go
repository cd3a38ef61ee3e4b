package model

import "time"

// 1ユーザーにつき1つ
type Cart struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	TotalAmount int64     `gorm:"not null;default:0" json:"total_amount"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 明細から合計を計算する（保存値は信用しない）
func CartTotal(items []CartItem) int64 {
	var total int64
	for _, it := range items {
		total += it.UnitPriceSnapshot * it.Quantity
	}
	return total
}
