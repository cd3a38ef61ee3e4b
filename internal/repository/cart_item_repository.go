package repository

import (
	"context"

	"campusmart/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	FindByID(ctx context.Context, cartID int64, cartItemID int64) (model.CartItem, error)
	// 数量は加算ではなく上書き。価格スナップショットは新規作成時だけ入る
	UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, qty int64, unitPriceSnapshot int64) error
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	// 無くてもエラーにしない
	DeleteByID(ctx context.Context, cartID int64, cartItemID int64) error
}
