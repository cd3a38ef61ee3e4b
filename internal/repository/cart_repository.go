package repository

import (
	"context"

	"campusmart/internal/domain/model"
)

type CartRepository interface {
	// 無ければ作る
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// Tx内で使う。行ロックを取るので同じユーザーの更新は直列になる
	LockByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	UpdateTotal(ctx context.Context, cartID int64, total int64) error
	Clear(ctx context.Context, cartID int64) error
}
