package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campusmart/internal/domain/model"
	"campusmart/internal/repository"

	"github.com/rs/zerolog/log"
)

// 出品者になったときの初期評価
const initialSellerRating = 5.0

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrAlreadySeller = errors.New("already a seller")
)

type UpdateProfileInput struct {
	Name   *string
	Phone  *string
	Campus *string
}

// ログイン後のアカウント操作（ログアウト・プロフィール・出品者化）
type AccountUsecase struct {
	tx    repository.TransactionManager
	clock Clock
}

func NewAccountUsecase(tx repository.TransactionManager, clock Clock) *AccountUsecase {
	return &AccountUsecase{tx: tx, clock: clock}
}

// token_versionを進めて、発行済みのトークンを全部無効にする
func (u *AccountUsecase) Logout(ctx context.Context, userID int64) error {
	return u.tx.WithinTx(ctx, func(ctx context.Context, r repository.TxRepos) error {
		err := r.Users().IncrementTokenVersion(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	})
}

func (u *AccountUsecase) Profile(ctx context.Context, userID int64) (model.User, error) {
	var out model.User
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repository.TxRepos) error {
		user, err := r.Users().FindByID(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		out = *user
		return nil
	})
	return out, err
}

// name / phone / campus だけ変更できる
func (u *AccountUsecase) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (model.User, error) {
	var out model.User
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repository.TxRepos) error {
		user, err := r.Users().FindByID(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return ErrNameRequired
			}
			user.Name = name
		}
		if in.Phone != nil {
			user.Phone = strings.TrimSpace(*in.Phone)
		}
		if in.Campus != nil {
			user.Campus = strings.TrimSpace(*in.Campus)
		}
		user.UpdatedAt = u.clock.Now()

		if err := r.Users().Update(ctx, user); err != nil {
			return err
		}
		out = *user
		return nil
	})
	return out, err
}

// 購入者を出品者にする。カウンタのリセットは購入者からのときだけ
func (u *AccountUsecase) UpgradeToSeller(ctx context.Context, userID int64) (model.User, error) {
	var out model.User
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repository.TxRepos) error {
		user, err := r.Users().FindByID(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if user.Role != model.RoleBuyer {
			return ErrAlreadySeller
		}

		before := user.Role
		now := u.clock.Now()
		user.Role = model.RoleSeller
		user.Rating = initialSellerRating
		user.TotalSales = 0
		user.ListedProducts = 0
		user.UpdatedAt = now

		if err := r.Users().Update(ctx, user); err != nil {
			return err
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  user.ID,
			ActorRole:    before,
			Action:       model.AuditActionUpgradeSeller,
			ResourceType: model.AuditResourceUser,
			ResourceID:   user.ID,
			BeforeJSON:   fmt.Sprintf(`{"role":%q}`, before),
			AfterJSON:    fmt.Sprintf(`{"role":%q}`, user.Role),
			CreatedAt:    now,
		}); err != nil {
			return err
		}

		out = *user
		return nil
	})
	return out, err
}

// 管理者による強制ログアウト。新しいtoken_versionを返す
func (u *AccountUsecase) ForceLogout(ctx context.Context, adminID int64, targetUserID int64) (int, error) {
	var newVersion int
	err := u.tx.WithinTx(ctx, func(ctx context.Context, r repository.TxRepos) error {
		err := r.Users().IncrementTokenVersion(ctx, targetUserID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		user, err := r.Users().FindByID(ctx, targetUserID)
		if err != nil {
			return err
		}
		newVersion = user.TokenVersion
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Ctx(ctx).Info().Int64("admin_id", adminID).Int64("target_user_id", targetUserID).Msg("user force logged out")
	return newVersion, nil
}
