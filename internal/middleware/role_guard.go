package middleware

import (
	"campusmart/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// contextに入っているroleが許可リストにあるか確認します。AuthJWTの後に置く
func RoleGuard(allowed ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(model.Role)
			if !ok || role == "" {
				return unauthorized(c, "unauthorized")
			}

			for _, r := range allowed {
				if r == role {
					return next(c)
				}
			}
			return forbidden(c, "insufficient role")
		}
	}
}

func AdminRoleGuard() echo.MiddlewareFunc {
	return RoleGuard(model.RoleAdmin)
}

func SellerRoleGuard() echo.MiddlewareFunc {
	return RoleGuard(model.RoleSeller, model.RoleAdmin)
}
