package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"campusmart/internal/domain/model"
	repo "campusmart/internal/repository"

	"github.com/rs/zerolog/log"
)

type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	orders *OrderUsecase
	now    func() time.Time
}

func NewAdminOrderUsecase(tx repo.TransactionManager, orders *OrderUsecase) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, orders: orders, now: time.Now}
}

// 注文一覧（管理者）
func (u *AdminOrderUsecase) List(ctx context.Context, actor Actor, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	if !actor.IsAdmin() {
		return OrderListOutput{}, NewError(KindForbidden, "admin only")
	}
	page, limit, err := normalizePage(f.Page, f.Limit)
	if err != nil {
		return OrderListOutput{}, err
	}
	f.Page, f.Limit = page, limit

	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return OrderListOutput{}, NewError(KindValidation, "invalid status")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return OrderListOutput{}, NewError(KindValidation, "from must be before to")
	}

	var out OrderListOutput
	err = u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return dbError(ctx, "order.list_admin", err)
		}
		items, err := u.orders.buildOutputs(ctx, r, orders)
		if err != nil {
			return err
		}
		out = OrderListOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

type AuditLogListOutput struct {
	Items  []model.AuditLog `json:"items"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// 監査ログ一覧。注文・商品・ユーザーのどれか1つに絞れる
func (u *AdminOrderUsecase) ListAuditLogs(ctx context.Context, actor Actor, f repo.AuditLogFilter) (AuditLogListOutput, error) {
	if !actor.IsAdmin() {
		return AuditLogListOutput{}, NewError(KindForbidden, "admin only")
	}
	if f.Limit == 0 {
		f.Limit = 50
	}
	if f.Limit < 1 || f.Limit > 200 {
		return AuditLogListOutput{}, NewError(KindValidation, "invalid limit")
	}
	if f.Offset < 0 {
		return AuditLogListOutput{}, NewError(KindValidation, "invalid offset")
	}
	if f.TargetCount() > 1 {
		return AuditLogListOutput{}, NewError(KindValidation, "specify at most one of order_id, product_id, user_id")
	}
	if _, id, ok := f.Target(); ok && id <= 0 {
		return AuditLogListOutput{}, NewError(KindValidation, "invalid target id")
	}
	for _, a := range f.Actions {
		if !a.Valid() {
			return AuditLogListOutput{}, NewError(KindValidation, fmt.Sprintf("invalid action %q", a))
		}
	}
	if f.ActorRole != nil && !f.ActorRole.Valid() {
		return AuditLogListOutput{}, NewError(KindValidation, "invalid actor role")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return AuditLogListOutput{}, NewError(KindValidation, "from must be before to")
	}

	out := AuditLogListOutput{Limit: f.Limit, Offset: f.Offset}
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		logs, total, err := r.AuditLogs().List(ctx, f)
		if err != nil {
			return dbError(ctx, "audit.list", err)
		}
		out.Items, out.Total = logs, total
		return nil
	})
	if err != nil {
		return AuditLogListOutput{}, err
	}
	if out.Items == nil {
		out.Items = []model.AuditLog{}
	}
	return out, nil
}

// 要対応の不整合一覧
func (u *AdminOrderUsecase) ListReconciliation(ctx context.Context, actor Actor, f repo.ReconciliationFilter) ([]model.ReconciliationEntry, error) {
	if !actor.IsAdmin() {
		return nil, NewError(KindForbidden, "admin only")
	}
	if f.Limit == 0 {
		f.Limit = 50
	}
	if f.Limit < 1 || f.Limit > 200 || f.Offset < 0 {
		return nil, NewError(KindValidation, "invalid limit")
	}
	if f.Kind != nil {
		switch *f.Kind {
		case model.ReconcileRestockMissingProduct, model.ReconcileEventUndelivered, model.ReconcilePostCommitFailure:
		default:
			return nil, NewError(KindValidation, "invalid kind")
		}
	}

	var entries []model.ReconciliationEntry
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		var err error
		entries, err = r.Reconciliation().List(ctx, f)
		if err != nil {
			return dbError(ctx, "reconciliation.list", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.ReconciliationEntry{}
	}
	return entries, nil
}

// 対応済みにする
func (u *AdminOrderUsecase) ResolveReconciliation(ctx context.Context, actor Actor, id int64) error {
	if !actor.IsAdmin() {
		return NewError(KindForbidden, "admin only")
	}
	if id <= 0 {
		return NewError(KindValidation, "invalid id")
	}

	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		err := r.Reconciliation().Resolve(ctx, id, actor.UserID, u.now())
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "not found")
		}
		if err != nil {
			return dbError(ctx, "reconciliation.resolve", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Ctx(ctx).Info().Int64("entry_id", id).Int64("admin_id", actor.UserID).Msg("reconciliation entry resolved")
	return nil
}

// 期間パラメータ（handlerから）。空ならnil
func ParseDateTimeRFC3339(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, NewError(KindValidation, "invalid datetime (RFC3339)")
	}
	return &t, nil
}
