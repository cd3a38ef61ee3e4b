package repository

import (
	"campusmart/internal/domain/model"
	"context"
)

type InventoryRepository interface {
	// 在庫の現在値を設定
	SetStock(ctx context.Context, productID int64, newStock int64) error

	// stock+deltaが0以上のときだけ反映する（1文の条件付きUPDATE）
	// 足りなければErrInsufficientStock、商品が無ければErrNotFound
	AdjustStock(ctx context.Context, productID int64, delta int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
