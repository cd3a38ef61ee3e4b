package usecase

import "campusmart/internal/domain/model"

// 認証済みの呼び出し元（middlewareがJWTから作る）
type Actor struct {
	UserID int64
	Role   model.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

func (a Actor) IsSeller() bool {
	return a.Role == model.RoleSeller || a.Role == model.RoleAdmin
}

func (a Actor) valid() bool {
	return a.UserID > 0 && a.Role.Valid()
}
