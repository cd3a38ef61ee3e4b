package usecase

import (
	"context"
	"sync"
	"testing"

	"campusmart/internal/domain/model"
	repo "campusmart/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProductInput() ProductInput {
	return ProductInput{
		Name:      "Linear Algebra Done Right",
		Price:     3500,
		Category:  "Textbook",
		Condition: "Like New",
		Stock:     2,
		Images:    []string{"https://img.example.com/a.png", "https://img.example.com/b.png"},
		Tags:      []string{"Math", " math ", "", "Algebra"},
	}
}

func TestProductCreate(t *testing.T) {
	store := newMemStore()
	uc := NewProductUsecase(store)
	seller := store.addUser(model.User{Name: "Hanako", Role: model.RoleSeller, Campus: "North"})
	buyer := store.addUser(model.User{Name: "Jiro", Role: model.RoleBuyer})

	_, err := uc.Create(context.Background(), Actor{UserID: buyer.ID, Role: model.RoleBuyer}, validProductInput())
	assert.Equal(t, KindForbidden, KindOf(err))

	p, err := uc.Create(context.Background(), Actor{UserID: seller.ID, Role: model.RoleSeller}, validProductInput())
	require.NoError(t, err)

	assert.Equal(t, "linear-algebra-done-right", p.Slug)
	assert.Equal(t, model.CategoryTextbook, p.Category)
	assert.Equal(t, []string{"math", "algebra"}, []string(p.Tags))
	assert.Equal(t, "https://img.example.com/a.png", p.Image)
	assert.Equal(t, "Hanako", p.SellerName)
	assert.Equal(t, "North", p.Campus)
	assert.True(t, p.IsActive)
	assert.Equal(t, int64(1), store.user(seller.ID).ListedProducts)
}

func TestProductCreate_Validation(t *testing.T) {
	store := newMemStore()
	uc := NewProductUsecase(store)
	seller := store.addUser(model.User{Name: "Hanako", Role: model.RoleSeller})
	actor := Actor{UserID: seller.ID, Role: model.RoleSeller}

	tests := []struct {
		name   string
		modify func(in *ProductInput)
	}{
		{"empty name", func(in *ProductInput) { in.Name = " " }},
		{"negative price", func(in *ProductInput) { in.Price = -1 }},
		{"negative stock", func(in *ProductInput) { in.Stock = -1 }},
		{"bad category", func(in *ProductInput) { in.Category = "furniture" }},
		{"bad condition", func(in *ProductInput) { in.Condition = "Broken" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validProductInput()
			tt.modify(&in)
			_, err := uc.Create(context.Background(), actor, in)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
	assert.Equal(t, int64(0), store.user(seller.ID).ListedProducts)
}

func TestProductOwnership(t *testing.T) {
	store := newMemStore()
	uc := NewProductUsecase(store)
	owner := store.addUser(model.User{Name: "Owner", Role: model.RoleSeller})
	other := store.addUser(model.User{Name: "Other", Role: model.RoleSeller})
	admin := store.addUser(model.User{Name: "Admin", Role: model.RoleAdmin})

	p, err := uc.Create(context.Background(), Actor{UserID: owner.ID, Role: model.RoleSeller}, validProductInput())
	require.NoError(t, err)

	in := validProductInput()
	in.Price = 100
	_, err = uc.Update(context.Background(), Actor{UserID: other.ID, Role: model.RoleSeller}, p.ID, in)
	assert.Equal(t, KindForbidden, KindOf(err))

	updated, err := uc.Update(context.Background(), Actor{UserID: admin.ID, Role: model.RoleAdmin}, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, int64(100), updated.Price)

	_, err = uc.UpdateInventory(context.Background(), Actor{UserID: owner.ID, Role: model.RoleSeller}, p.ID, 7, "restocked")
	require.NoError(t, err)
	assert.Equal(t, int64(7), store.product(p.ID).Stock)

	st := store.snapshot()
	require.Len(t, st.adjustments, 1)
	assert.Equal(t, int64(5), st.adjustments[0].Delta)
	require.Len(t, st.audits, 1)
	assert.Equal(t, model.AuditActionUpdateStock, st.audits[0].Action)

	require.NoError(t, uc.Delete(context.Background(), Actor{UserID: owner.ID, Role: model.RoleSeller}, p.ID))
	assert.Equal(t, int64(0), store.user(owner.ID).ListedProducts)

	_, err = uc.GetProductDetail(context.Background(), p.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestProductReview(t *testing.T) {
	store := newMemStore()
	uc := NewProductUsecase(store)
	p := store.addProduct(model.Product{Name: "Lamp", Price: 800, Stock: 1, IsActive: true,
		Category: model.CategoryGadget, Condition: model.ConditionGood})
	a := store.addUser(model.User{Name: "A", Role: model.RoleBuyer})
	b := store.addUser(model.User{Name: "B", Role: model.RoleBuyer})
	c := store.addUser(model.User{Name: "C", Role: model.RoleBuyer})

	for _, tc := range []struct {
		user   model.User
		rating int
	}{{a, 5}, {b, 4}, {c, 4}} {
		_, err := uc.AddReview(context.Background(), Actor{UserID: tc.user.ID, Role: model.RoleBuyer}, p.ID, AddReviewInput{Rating: tc.rating})
		require.NoError(t, err)
	}

	// 13/3 = 4.333... → 4.3
	got := store.product(p.ID)
	assert.Equal(t, 4.3, got.Rating)
	assert.Equal(t, int64(3), got.NumReviews)

	_, err := uc.AddReview(context.Background(), Actor{UserID: a.ID, Role: model.RoleBuyer}, p.ID, AddReviewInput{Rating: 1})
	assert.Equal(t, KindConflict, KindOf(err))

	_, err = uc.AddReview(context.Background(), Actor{UserID: a.ID, Role: model.RoleBuyer}, p.ID, AddReviewInput{Rating: 6})
	assert.Equal(t, KindValidation, KindOf(err))

	detail, err := uc.GetProductDetail(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Reviews, 3)
}

func TestProductList(t *testing.T) {
	store := newMemStore()
	uc := NewProductUsecase(store)
	seller := store.addUser(model.User{Name: "S", Role: model.RoleSeller})
	store.addProduct(model.Product{Name: "Math book", Price: 100, IsActive: true, SellerID: seller.ID, Category: model.CategoryTextbook, Condition: model.ConditionGood})
	store.addProduct(model.Product{Name: "Phone", Price: 900, IsActive: true, SellerID: seller.ID, Category: model.CategoryGadget, Condition: model.ConditionGood})
	store.addProduct(model.Product{Name: "Draft", Price: 50, IsActive: false, SellerID: seller.ID, Category: model.CategoryNotes, Condition: model.ConditionDigital})

	out, err := uc.List(context.Background(), ListProductsInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)
	assert.Equal(t, 12, out.Limit)

	out, err = uc.List(context.Background(), ListProductsInput{Category: "all"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)

	out, err = uc.ListByCategory(context.Background(), "gadget", ListProductsInput{})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Phone", out.Items[0].Name)

	out, err = uc.Search(context.Background(), ListProductsInput{Search: "math"})
	require.NoError(t, err)
	assert.Len(t, out.Items, 1)

	_, err = uc.Search(context.Background(), ListProductsInput{})
	assert.Equal(t, KindValidation, KindOf(err))

	out, err = uc.ListMine(context.Background(), Actor{UserID: seller.ID, Role: model.RoleSeller}, ListProductsInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Total)

	lo, hi := int64(500), int64(100)
	_, err = uc.List(context.Background(), ListProductsInput{MinPrice: &lo, MaxPrice: &hi})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = uc.List(context.Background(), ListProductsInput{SortBy: "popularity"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = uc.List(context.Background(), ListProductsInput{Limit: 101})
	assert.Equal(t, KindValidation, KindOf(err))
}

// 商品の読み方（ロック付きかどうか）を記録する
type lockSpyTx struct {
	store *memStore
	reads *[]string
}

func (l lockSpyTx) WithinTx(ctx context.Context, fn func(ctx context.Context, r repo.TxRepos) error) error {
	return l.store.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		return fn(ctx, lockSpyRepos{TxRepos: r, reads: l.reads})
	})
}

type lockSpyRepos struct {
	repo.TxRepos
	reads *[]string
}

func (s lockSpyRepos) Products() repo.ProductRepository {
	return lockSpyProducts{ProductRepository: s.TxRepos.Products(), reads: s.reads}
}

type lockSpyProducts struct {
	repo.ProductRepository
	reads *[]string
}

func (s lockSpyProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	*s.reads = append(*s.reads, "plain")
	return s.ProductRepository.FindByID(ctx, id)
}

func (s lockSpyProducts) FindByIDForUpdate(ctx context.Context, id int64) (model.Product, error) {
	*s.reads = append(*s.reads, "for_update")
	return s.ProductRepository.FindByIDForUpdate(ctx, id)
}

// 差分は行ロックを取って読んだ在庫から出す
func TestUpdateInventory_ReadsStockUnderLock(t *testing.T) {
	store := newMemStore()
	owner := store.addUser(model.User{Name: "Owner", Role: model.RoleSeller})
	p := store.addProduct(model.Product{Name: "Lamp", Price: 800, Stock: 4, SellerID: owner.ID, IsActive: true,
		Category: model.CategoryGadget, Condition: model.ConditionGood})

	var reads []string
	uc := NewProductUsecase(lockSpyTx{store: store, reads: &reads})
	actor := Actor{UserID: owner.ID, Role: model.RoleSeller}

	_, err := uc.UpdateInventory(context.Background(), actor, p.ID, 9, "restocked")
	require.NoError(t, err)
	assert.Equal(t, []string{"for_update"}, reads)

	st := store.snapshot()
	require.Len(t, st.adjustments, 1)
	assert.Equal(t, int64(5), st.adjustments[0].Delta)
	require.Len(t, st.audits, 1)
	assert.Equal(t, `{"stock":4}`, st.audits[0].BeforeJSON)
}

// 同時に在庫を設定しても、差分の合計は最終在庫と初期在庫の差に一致する
func TestUpdateInventory_ConcurrentDeltasAddUp(t *testing.T) {
	store := newMemStore()
	uc := NewProductUsecase(store)
	owner := store.addUser(model.User{Name: "Owner", Role: model.RoleSeller})
	p := store.addProduct(model.Product{Name: "Lamp", Price: 800, Stock: 4, SellerID: owner.ID, IsActive: true,
		Category: model.CategoryGadget, Condition: model.ConditionGood})
	actor := Actor{UserID: owner.ID, Role: model.RoleSeller}

	var wg sync.WaitGroup
	for _, n := range []int64{10, 1, 7, 3} {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			_, err := uc.UpdateInventory(context.Background(), actor, p.ID, n, "count")
			assert.NoError(t, err)
		}(n)
	}
	wg.Wait()

	var sum int64
	for _, a := range store.snapshot().adjustments {
		sum += a.Delta
	}
	assert.Equal(t, store.product(p.ID).Stock-4, sum)
}
