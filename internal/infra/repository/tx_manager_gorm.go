package repository

import (
	"context"
	"time"

	repo "campusmart/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders         repo.OrderRepository
	orderItems     repo.OrderItemRepository
	carts          repo.CartRepository
	cartItems      repo.CartItemRepository
	inventory      repo.InventoryRepository
	products       repo.ProductRepository
	reviews        repo.ReviewRepository
	users          repo.UserRepository
	auditLogs      repo.AuditLogRepository
	outbox         repo.OutboxRepository
	reconciliation repo.ReconciliationRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository                  { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository          { return r.orderItems }
func (r *txReposGorm) Carts() repo.CartRepository                    { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository            { return r.cartItems }
func (r *txReposGorm) Inventory() repo.InventoryRepository           { return r.inventory }
func (r *txReposGorm) Products() repo.ProductRepository              { return r.products }
func (r *txReposGorm) Reviews() repo.ReviewRepository                { return r.reviews }
func (r *txReposGorm) Users() repo.UserRepository                    { return r.users }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository            { return r.auditLogs }
func (r *txReposGorm) Outbox() repo.OutboxRepository                 { return r.outbox }
func (r *txReposGorm) Reconciliation() repo.ReconciliationRepository { return r.reconciliation }

// txを持ったDBでrepoを作り直す
func newTxRepos(tx *gorm.DB) *txReposGorm {
	carts := NewCartGormRepository(tx)
	return &txReposGorm{
		orders:         NewOrderGormRepository(tx),
		orderItems:     NewOrderItemGormRepository(tx),
		carts:          carts,
		cartItems:      carts,
		inventory:      NewInventoryGormRepository(tx),
		products:       NewProductGormRepository(tx),
		reviews:        NewReviewGormRepository(tx),
		users:          NewUserGormRepository(tx),
		auditLogs:      NewAuditLogGormRepository(tx),
		outbox:         NewOutboxGormRepository(tx),
		reconciliation: NewReconciliationGormRepository(tx),
	}
}

type TxManagerGorm struct {
	db      *gorm.DB
	timeout time.Duration
}

// timeoutが0なら呼び出し元のctxのまま
func NewTxManagerGorm(db *gorm.DB, timeout time.Duration) *TxManagerGorm {
	return &TxManagerGorm{db: db, timeout: timeout}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(ctx context.Context, r repo.TxRepos) error) error {
	if tm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tm.timeout)
		defer cancel()
	}

	//fnにはタイムアウト付きのctxを渡す。repoはこのctxで問い合わせるので期限を越えたら止まる
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, newTxRepos(tx))
	})
}
