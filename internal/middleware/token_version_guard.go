package middleware

import (
	"errors"

	"campusmart/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// JWTのtvとDBのtoken_versionの一致するか確認。
// ログアウト後の古いトークンはここで401になる
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(int64)
			if !ok || userID <= 0 {
				return unauthorized(c, "unauthorized")
			}

			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return unauthorized(c, "unauthorized")
			}

			//DBから最新のuserを取得する
			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					log.Ctx(c.Request().Context()).Error().Err(err).Msg("token version lookup failed")
				}
				return unauthorized(c, "unauthorized")
			}

			//停止ユーザー
			if !user.IsActive {
				return forbidden(c, "user is inactive")
			}

			//token_version が一致しなければ強制ログアウト扱い（401）
			if user.TokenVersion != tv {
				return unauthorized(c, "token revoked")
			}

			//roleはDBの値を正とする（出品者化の直後など）
			c.Set(CtxUserRoleKey, user.Role)

			return next(c)
		}
	}
}
