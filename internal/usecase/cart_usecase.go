package usecase

import (
	"context"
	"errors"
	"fmt"

	"campusmart/internal/domain/model"
	repo "campusmart/internal/repository"
)

// CartUsecase は /cart の業務ロジック。
// 更新はすべてTx内でカート行をロックしてから行う（同じユーザーの操作は直列）
type CartUsecase struct {
	tx repo.TransactionManager
}

func NewCartUsecase(tx repo.TransactionManager) *CartUsecase {
	return &CartUsecase{tx: tx}
}

// price は unit_price_snapshot（追加時点の価格）
type CartItemResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	Stock     int64  `json:"stock"`
	// 削除・非公開になった商品
	Unavailable bool `json:"unavailable,omitempty"`
}

type CartResponse struct {
	ID    int64              `json:"id"`
	Items []CartItemResponse `json:"items"`
	Total int64              `json:"total"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

// カート取得（無ければ作って空を返す）
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewError(KindUnauthorized, "unauthorized")
	}

	var out CartResponse
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return dbError(ctx, "cart.get", err)
		}
		out, err = buildCartResponse(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// カートに追加。同じ商品は数量を合算して、在庫と上限で再チェック
func (u *CartUsecase) AddItem(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewError(KindUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewError(KindValidation, "invalid product_id")
	}
	if err := validateCartQuantity(in.Quantity); err != nil {
		return CartResponse{}, err
	}

	return u.mutate(ctx, userID, func(r repo.TxRepos, cart model.Cart) error {
		p, err := findActiveProduct(ctx, r, in.ProductID)
		if err != nil {
			return err
		}

		items, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return dbError(ctx, "cart.items", err)
		}
		var existing int64
		for _, it := range items {
			if it.ProductID == p.ID {
				existing = it.Quantity
				break
			}
		}

		newQty := existing + in.Quantity
		if newQty > model.MaxCartItemQuantity {
			return NewError(KindValidation, fmt.Sprintf("maximum %d per item", model.MaxCartItemQuantity))
		}
		if newQty > p.Stock {
			return NewError(KindInsufficientStock, fmt.Sprintf("only %d available for %q", p.Stock, p.Name))
		}

		if err := r.CartItems().UpsertByCartAndProduct(ctx, cart.ID, p.ID, newQty, p.Price); err != nil {
			return dbError(ctx, "cart.upsert", err)
		}
		return nil
	})
}

// 数量変更（現在の在庫で再チェック）
func (u *CartUsecase) UpdateItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewError(KindUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewError(KindValidation, "invalid id")
	}
	if err := validateCartQuantity(in.Quantity); err != nil {
		return CartResponse{}, err
	}

	return u.mutate(ctx, userID, func(r repo.TxRepos, cart model.Cart) error {
		//自分のカートの明細だけ
		item, err := r.CartItems().FindByID(ctx, cart.ID, cartItemID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "cart item not found")
		}
		if err != nil {
			return dbError(ctx, "cart.item", err)
		}

		p, err := findActiveProduct(ctx, r, item.ProductID)
		if err != nil {
			return err
		}
		if in.Quantity > p.Stock {
			return NewError(KindInsufficientStock, fmt.Sprintf("only %d available for %q", p.Stock, p.Name))
		}

		if err := r.CartItems().UpdateQuantity(ctx, item.ID, in.Quantity); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindNotFound, "cart item not found")
			}
			return dbError(ctx, "cart.update_quantity", err)
		}
		return nil
	})
}

// 明細削除。無くても成功
func (u *CartUsecase) RemoveItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewError(KindUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewError(KindValidation, "invalid id")
	}

	return u.mutate(ctx, userID, func(r repo.TxRepos, cart model.Cart) error {
		if err := r.CartItems().DeleteByID(ctx, cart.ID, cartItemID); err != nil {
			return dbError(ctx, "cart.delete_item", err)
		}
		return nil
	})
}

// 全削除
func (u *CartUsecase) Clear(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewError(KindUnauthorized, "unauthorized")
	}

	return u.mutate(ctx, userID, func(r repo.TxRepos, cart model.Cart) error {
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return dbError(ctx, "cart.clear", err)
		}
		return nil
	})
}

// ロック→変更→合計の再計算→保存
func (u *CartUsecase) mutate(ctx context.Context, userID int64, fn func(r repo.TxRepos, cart model.Cart) error) (CartResponse, error) {
	var out CartResponse
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		cart, err := r.Carts().LockByUserID(ctx, userID)
		if err != nil {
			return dbError(ctx, "cart.lock", err)
		}

		if err := fn(r, cart); err != nil {
			return err
		}

		items, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return dbError(ctx, "cart.items", err)
		}
		cart.TotalAmount = model.CartTotal(items)
		if err := r.Carts().UpdateTotal(ctx, cart.ID, cart.TotalAmount); err != nil {
			return dbError(ctx, "cart.update_total", err)
		}

		out, err = buildCartResponse(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

func validateCartQuantity(qty int64) error {
	if qty < 1 || qty > model.MaxCartItemQuantity {
		return NewError(KindValidation, fmt.Sprintf("quantity must be between 1 and %d", model.MaxCartItemQuantity))
	}
	return nil
}

// 公開中の商品だけ。無ければNotFound
func findActiveProduct(ctx context.Context, r repo.TxRepos, productID int64) (model.Product, error) {
	p, err := r.Products().FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewError(KindNotFound, "product not found")
	}
	if err != nil {
		return model.Product{}, dbError(ctx, "product.find", err)
	}
	if !p.IsActive {
		return model.Product{}, NewError(KindNotFound, "product not found")
	}
	return p, nil
}

// 明細と商品情報をまとめる。合計は明細から計算した値
func buildCartResponse(ctx context.Context, r repo.TxRepos, cart model.Cart) (CartResponse, error) {
	items, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, dbError(ctx, "cart.items", err)
	}

	respItems := make([]CartItemResponse, 0, len(items))
	for _, it := range items {
		ri := CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		}
		p, err := r.Products().FindByID(ctx, it.ProductID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			ri.Unavailable = true
		case err != nil:
			return CartResponse{}, dbError(ctx, "product.find", err)
		default:
			ri.Name = p.Name
			ri.Image = p.Image
			ri.Stock = p.Stock
			ri.Unavailable = !p.IsActive
		}
		respItems = append(respItems, ri)
	}

	return CartResponse{ID: cart.ID, Items: respItems, Total: model.CartTotal(items)}, nil
}
