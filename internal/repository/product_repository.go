package repository

import (
	"context"

	"campusmart/internal/domain/model"
)

// 一覧検索
type ProductListQuery struct {
	Page      int
	Limit     int
	Search    string
	Category  model.ProductCategory
	Condition model.ProductCondition
	MinPrice  *int64
	MaxPrice  *int64
	SortBy    string
	SellerID  *int64
	// 出品者の自分用一覧では非公開も含める
	IncludeInactive bool
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	// Tx内で使う。行ロックを取ってから読む（SELECT ... FOR UPDATE）
	FindByIDForUpdate(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	Delete(ctx context.Context, id int64) error
	UpdateRating(ctx context.Context, id int64, rating float64, numReviews int64) error
}

type ReviewRepository interface {
	// 同じユーザーの2件目はErrDuplicate
	Create(ctx context.Context, r model.ProductReview) (model.ProductReview, error)
	ListByProductID(ctx context.Context, productID int64) ([]model.ProductReview, error)
	// 平均と件数
	Stats(ctx context.Context, productID int64) (float64, int64, error)
}
