package model

import "time"

type ReconciliationKind string

const (
	// キャンセル時に商品が削除済みで在庫を戻せなかった
	ReconcileRestockMissingProduct ReconciliationKind = "restock_missing_product"
	// イベントが規定回数配信できなかった
	ReconcileEventUndelivered ReconciliationKind = "event_undelivered"
	// コミット後の後処理（メール等）が失敗した
	ReconcilePostCommitFailure ReconciliationKind = "post_commit_failure"
)

// 人手で直すべき不整合の記録
type ReconciliationEntry struct {
	ID         int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind       ReconciliationKind `gorm:"type:varchar(50);not null;index" json:"kind"`
	OrderID    *int64             `gorm:"index" json:"order_id,omitempty"`
	ProductID  *int64             `json:"product_id,omitempty"`
	Quantity   int64              `gorm:"not null;default:0" json:"quantity"`
	Detail     string             `gorm:"type:text" json:"detail"`
	CreatedAt  time.Time          `gorm:"not null;autoCreateTime" json:"created_at"`
	ResolvedAt *time.Time         `gorm:"index" json:"resolved_at,omitempty"`
	ResolvedBy *int64             `json:"resolved_by,omitempty"`
}
