package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Carts() CartRepository
	CartItems() CartItemRepository
	Inventory() InventoryRepository
	Products() ProductRepository
	Reviews() ReviewRepository
	Users() UserRepository
	AuditLogs() AuditLogRepository
	Outbox() OutboxRepository
	Reconciliation() ReconciliationRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// fnが受け取るctxにはTxの期限が付いているので、中のrepo呼び出しはこのctxを使う
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, r TxRepos) error) error
}
