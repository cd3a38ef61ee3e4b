package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"campusmart/internal/domain/model"
	repo "campusmart/internal/repository"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"
)

const (
	defaultProductLimit = 12
	maxProductLimit     = 100
)

type ProductUsecase struct {
	tx  repo.TransactionManager
	now func() time.Time
}

// DI
func NewProductUsecase(tx repo.TransactionManager) *ProductUsecase {
	return &ProductUsecase{tx: tx, now: time.Now}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page      int
	Limit     int
	Search    string
	Category  string
	Condition string
	MinPrice  *int64
	MaxPrice  *int64
	SortBy    string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type ProductDetailOutput struct {
	model.Product
	Reviews []model.ProductReview `json:"reviews"`
}

// 作成・更新の入力
type ProductInput struct {
	Name          string
	Description   string
	Price         int64
	OriginalPrice *int64
	Category      string
	Image         string
	Images        []string
	Condition     string
	Stock         int64
	Campus        string
	Tags          []string
	IsActive      *bool
}

func (u *ProductUsecase) List(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	q, err := buildProductQuery(in)
	if err != nil {
		return ProductListOutput{}, err
	}
	return u.list(ctx, q)
}

// /products/search?q=
func (u *ProductUsecase) Search(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if strings.TrimSpace(in.Search) == "" {
		return ProductListOutput{}, NewError(KindValidation, "search query required")
	}
	return u.List(ctx, in)
}

// /products/category/:category
func (u *ProductUsecase) ListByCategory(ctx context.Context, category string, in ListProductsInput) (ProductListOutput, error) {
	in.Category = category
	if !model.ProductCategory(strings.ToLower(strings.TrimSpace(category))).Valid() {
		return ProductListOutput{}, NewError(KindValidation, "invalid category")
	}
	return u.List(ctx, in)
}

// 出品者の自分用一覧（非公開も含む）
func (u *ProductUsecase) ListMine(ctx context.Context, actor Actor, in ListProductsInput) (ProductListOutput, error) {
	if !actor.valid() {
		return ProductListOutput{}, NewError(KindUnauthorized, "unauthorized")
	}
	if !actor.IsSeller() {
		return ProductListOutput{}, NewError(KindForbidden, "seller only")
	}
	q, err := buildProductQuery(in)
	if err != nil {
		return ProductListOutput{}, err
	}
	sellerID := actor.UserID
	q.SellerID = &sellerID
	q.IncludeInactive = true
	return u.list(ctx, q)
}

func (u *ProductUsecase) list(ctx context.Context, q repo.ProductListQuery) (ProductListOutput, error) {
	var out ProductListOutput
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		items, total, err := r.Products().List(ctx, q)
		if err != nil {
			return dbError(ctx, "product.list", err)
		}
		if items == nil {
			items = []model.Product{}
		}
		out = ProductListOutput{Items: items, Total: total, Page: q.Page, Limit: q.Limit}
		return nil
	})
	if err != nil {
		return ProductListOutput{}, err
	}
	return out, nil
}

func buildProductQuery(in ListProductsInput) (repo.ProductListQuery, error) {
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = defaultProductLimit
	}
	if in.Page < 1 {
		return repo.ProductListQuery{}, NewError(KindValidation, "invalid page")
	}
	if in.Limit < 1 || in.Limit > maxProductLimit {
		return repo.ProductListQuery{}, NewError(KindValidation, "invalid limit")
	}
	if len(in.Search) > 100 {
		return repo.ProductListQuery{}, NewError(KindValidation, "search too long")
	}
	if in.MinPrice != nil && *in.MinPrice < 0 {
		return repo.ProductListQuery{}, NewError(KindValidation, "minPrice must be >= 0")
	}
	if in.MaxPrice != nil && *in.MaxPrice < 0 {
		return repo.ProductListQuery{}, NewError(KindValidation, "maxPrice must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return repo.ProductListQuery{}, NewError(KindValidation, "minPrice must be <= maxPrice")
	}

	q := repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Search:   strings.TrimSpace(in.Search),
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
	}

	// "all"は絞り込みなし
	if c := strings.ToLower(strings.TrimSpace(in.Category)); c != "" && c != "all" {
		if !model.ProductCategory(c).Valid() {
			return repo.ProductListQuery{}, NewError(KindValidation, "invalid category")
		}
		q.Category = model.ProductCategory(c)
	}
	if c := strings.TrimSpace(in.Condition); c != "" && c != "all" {
		if !model.ProductCondition(c).Valid() {
			return repo.ProductListQuery{}, NewError(KindValidation, "invalid condition")
		}
		q.Condition = model.ProductCondition(c)
	}

	switch in.SortBy {
	case "", "newest", "name", "price-low", "price-high", "rating":
		q.SortBy = in.SortBy
	default:
		return repo.ProductListQuery{}, NewError(KindValidation, "invalid sortBy")
	}
	return q, nil
}

// 商品詳細（レビュー付き）。非公開は見えない
func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (ProductDetailOutput, error) {
	if productID <= 0 {
		return ProductDetailOutput{}, NewError(KindValidation, "invalid product id")
	}

	var out ProductDetailOutput
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		p, err := findActiveProduct(ctx, r, productID)
		if err != nil {
			return err
		}
		reviews, err := r.Reviews().ListByProductID(ctx, productID)
		if err != nil {
			return dbError(ctx, "review.list", err)
		}
		if reviews == nil {
			reviews = []model.ProductReview{}
		}
		out = ProductDetailOutput{Product: p, Reviews: reviews}
		return nil
	})
	if err != nil {
		return ProductDetailOutput{}, err
	}
	return out, nil
}

func validateProductInput(in ProductInput) (model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Product{}, NewError(KindValidation, "name required")
	}
	if len(name) > 255 {
		return model.Product{}, NewError(KindValidation, "name too long")
	}
	if in.Price < 0 {
		return model.Product{}, NewError(KindValidation, "price must be >= 0")
	}
	if in.OriginalPrice != nil && *in.OriginalPrice < 0 {
		return model.Product{}, NewError(KindValidation, "originalPrice must be >= 0")
	}
	if in.Stock < 0 {
		return model.Product{}, NewError(KindValidation, "stock must be >= 0")
	}
	category := model.ProductCategory(strings.ToLower(strings.TrimSpace(in.Category)))
	if !category.Valid() {
		return model.Product{}, NewError(KindValidation, "invalid category")
	}
	condition := model.ProductCondition(strings.TrimSpace(in.Condition))
	if !condition.Valid() {
		return model.Product{}, NewError(KindValidation, "invalid condition")
	}

	//タグは小文字・重複なし
	tags := make([]string, 0, len(in.Tags))
	seen := make(map[string]struct{}, len(in.Tags))
	for _, t := range in.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}

	image := strings.TrimSpace(in.Image)
	if image == "" && len(in.Images) > 0 {
		image = in.Images[0]
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	return model.Product{
		Name:          name,
		Slug:          slug.Make(name),
		Description:   strings.TrimSpace(in.Description),
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		Category:      category,
		Image:         image,
		Images:        in.Images,
		Condition:     condition,
		Stock:         in.Stock,
		Campus:        strings.TrimSpace(in.Campus),
		Tags:          tags,
		IsActive:      active,
	}, nil
}

// 出品（seller/admin）。出品者名は作成時点の名前を持たせる
func (u *ProductUsecase) Create(ctx context.Context, actor Actor, in ProductInput) (model.Product, error) {
	if !actor.valid() {
		return model.Product{}, NewError(KindUnauthorized, "unauthorized")
	}
	if !actor.IsSeller() {
		return model.Product{}, NewError(KindForbidden, "seller only")
	}
	p, err := validateProductInput(in)
	if err != nil {
		return model.Product{}, err
	}

	var created model.Product
	err = u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		seller, err := r.Users().FindByID(ctx, actor.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindUnauthorized, "unauthorized")
		}
		if err != nil {
			return dbError(ctx, "user.find", err)
		}

		now := u.now()
		p.SellerID = seller.ID
		p.SellerName = seller.Name
		if p.Campus == "" {
			p.Campus = seller.Campus
		}
		p.CreatedAt = now
		p.UpdatedAt = now

		created, err = r.Products().Create(ctx, p)
		if err != nil {
			return dbError(ctx, "product.create", err)
		}

		if err := r.Users().AdjustCounter(ctx, seller.ID, model.CounterListedProducts, 1); err != nil {
			return dbError(ctx, "user.counter", err)
		}
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}

	log.Ctx(ctx).Info().Int64("product_id", created.ID).Int64("seller_id", created.SellerID).Msg("product listed")
	return created, nil
}

// 持ち主か管理者だけ。読んだ値から書き戻すので行ロックを取って読む
func ownProduct(ctx context.Context, r repo.TxRepos, actor Actor, productID int64) (model.Product, error) {
	p, err := r.Products().FindByIDForUpdate(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewError(KindNotFound, "product not found")
	}
	if err != nil {
		return model.Product{}, dbError(ctx, "product.find", err)
	}
	if p.SellerID != actor.UserID && !actor.IsAdmin() {
		return model.Product{}, NewError(KindForbidden, "not the owner of this product")
	}
	return p, nil
}

// 更新（在庫は別経路）
func (u *ProductUsecase) Update(ctx context.Context, actor Actor, productID int64, in ProductInput) (model.Product, error) {
	if !actor.valid() {
		return model.Product{}, NewError(KindUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Product{}, NewError(KindValidation, "invalid product id")
	}
	next, err := validateProductInput(in)
	if err != nil {
		return model.Product{}, err
	}

	var out model.Product
	err = u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		cur, err := ownProduct(ctx, r, actor, productID)
		if err != nil {
			return err
		}

		next.ID = cur.ID
		if in.IsActive == nil {
			next.IsActive = cur.IsActive
		}
		if next.Campus == "" {
			next.Campus = cur.Campus
		}
		if err := r.Products().Update(ctx, next); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindNotFound, "product not found")
			}
			return dbError(ctx, "product.update", err)
		}

		out, err = r.Products().FindByID(ctx, productID)
		if err != nil {
			return dbError(ctx, "product.find", err)
		}
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}

// 削除。出品数を1減らし、監査ログを残す
func (u *ProductUsecase) Delete(ctx context.Context, actor Actor, productID int64) error {
	if !actor.valid() {
		return NewError(KindUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewError(KindValidation, "invalid product id")
	}

	return u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		p, err := ownProduct(ctx, r, actor, productID)
		if err != nil {
			return err
		}

		if err := r.Products().Delete(ctx, p.ID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindNotFound, "product not found")
			}
			return dbError(ctx, "product.delete", err)
		}

		if err := r.Users().AdjustCounter(ctx, p.SellerID, model.CounterListedProducts, -1); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return dbError(ctx, "user.counter", err)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			ActorRole:    actor.Role,
			Action:       model.AuditActionDeleteProduct,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   p.ID,
			BeforeJSON:   fmt.Sprintf(`{"name":%q,"stock":%d}`, p.Name, p.Stock),
			AfterJSON:    `{"deleted":true}`,
			CreatedAt:    u.now(),
		}); err != nil {
			return dbError(ctx, "audit.create", err)
		}
		return nil
	})
}

type AddReviewInput struct {
	Rating  int
	Comment string
}

// レビュー追加。1商品につき1人1件、評価は全件から再計算
func (u *ProductUsecase) AddReview(ctx context.Context, actor Actor, productID int64, in AddReviewInput) (model.ProductReview, error) {
	if !actor.valid() {
		return model.ProductReview{}, NewError(KindUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.ProductReview{}, NewError(KindValidation, "invalid product id")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return model.ProductReview{}, NewError(KindValidation, "rating must be between 1 and 5")
	}

	var out model.ProductReview
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		p, err := findActiveProduct(ctx, r, productID)
		if err != nil {
			return err
		}
		user, err := r.Users().FindByID(ctx, actor.UserID)
		if err != nil {
			return dbError(ctx, "user.find", err)
		}

		out, err = r.Reviews().Create(ctx, model.ProductReview{
			ProductID: p.ID,
			UserID:    user.ID,
			UserName:  user.Name,
			Rating:    in.Rating,
			Comment:   strings.TrimSpace(in.Comment),
			CreatedAt: u.now(),
		})
		if errors.Is(err, repo.ErrDuplicate) {
			return NewError(KindConflict, "product already reviewed")
		}
		if err != nil {
			return dbError(ctx, "review.create", err)
		}

		avg, count, err := r.Reviews().Stats(ctx, p.ID)
		if err != nil {
			return dbError(ctx, "review.stats", err)
		}
		if err := r.Products().UpdateRating(ctx, p.ID, math.Round(avg*10)/10, count); err != nil {
			return dbError(ctx, "product.rating", err)
		}
		return nil
	})
	if err != nil {
		return model.ProductReview{}, err
	}
	return out, nil
}

// 在庫の手動設定（持ち主か管理者）。差分を履歴に、前後を監査ログに残す
func (u *ProductUsecase) UpdateInventory(ctx context.Context, actor Actor, productID int64, newStock int64, reason string) (model.Product, error) {
	if !actor.valid() {
		return model.Product{}, NewError(KindUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Product{}, NewError(KindValidation, "invalid product id")
	}
	if newStock < 0 {
		return model.Product{}, NewError(KindValidation, "stock must be >= 0")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.Product{}, NewError(KindValidation, "reason required")
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		p, err := ownProduct(ctx, r, actor, productID)
		if err != nil {
			return err
		}

		if err := r.Inventory().SetStock(ctx, productID, newStock); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindNotFound, "product not found")
			}
			return dbError(ctx, "inventory.set", err)
		}

		now := u.now()
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   productID,
			ActorUserID: actor.UserID,
			Delta:       newStock - p.Stock,
			Reason:      reason,
			CreatedAt:   now,
		}); err != nil {
			return dbError(ctx, "inventory.adjustment", err)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			ActorRole:    actor.Role,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   fmt.Sprintf(`{"stock":%d}`, p.Stock),
			AfterJSON:    fmt.Sprintf(`{"stock":%d}`, newStock),
			CreatedAt:    now,
		}); err != nil {
			return dbError(ctx, "audit.create", err)
		}

		p.Stock = newStock
		out = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}
