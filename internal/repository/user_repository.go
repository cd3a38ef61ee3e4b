package repository

import (
	"campusmart/internal/domain/model"
	"context"
)

// 保存・取得を約束。見つからなければErrNotFound
type UserRepository interface {
	//新規ユーザー作成（email重複はErrDuplicate）
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByIDs(ctx context.Context, userIDs []int64) ([]model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) error
	// カウンタ更新の唯一の窓口。0未満にはしない
	AdjustCounter(ctx context.Context, userID int64, counter model.UserCounter, delta int64) error
}
