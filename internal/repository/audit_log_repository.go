package repository

import (
	"context"
	"time"

	"campusmart/internal/domain/model"
)

// 管理画面の監査ログ検索。対象（注文・商品・ユーザー）は1つまで指定できる
type AuditLogFilter struct {
	ActorUserID *int64
	ActorRole   *model.Role
	// どれかに一致。空なら全部
	Actions   []model.AuditAction
	OrderID   *int64
	ProductID *int64
	UserID    *int64
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// 指定された対象の種別とID
func (f AuditLogFilter) Target() (model.AuditResourceType, int64, bool) {
	switch {
	case f.OrderID != nil:
		return model.AuditResourceOrder, *f.OrderID, true
	case f.ProductID != nil:
		return model.AuditResourceProduct, *f.ProductID, true
	case f.UserID != nil:
		return model.AuditResourceUser, *f.UserID, true
	}
	return "", 0, false
}

func (f AuditLogFilter) TargetCount() int {
	n := 0
	for _, id := range []*int64{f.OrderID, f.ProductID, f.UserID} {
		if id != nil {
			n++
		}
	}
	return n
}

type AuditLogRepository interface {
	// 在庫・注文・出品者昇格の変更と同じTxで書く
	Create(ctx context.Context, entry model.AuditLog) error

	// 新しい順。totalはlimit/offsetをかける前の件数
	List(ctx context.Context, f AuditLogFilter) ([]model.AuditLog, int64, error)
}
