package handler

import (
	"errors"
	"net/http"

	"campusmart/internal/config"
	"campusmart/internal/middleware"
	"campusmart/internal/repository"
	"campusmart/internal/usecase"
	auth "campusmart/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type AuthHandler struct {
	registerUC *auth.RegisterUserUsecase // 会員登録usecase
	loginUC    *auth.LoginUsecase        // ログインusecase
	accountUC  *auth.AccountUsecase      // ログアウト・プロフィール
}

// DIコンストラクタ
func NewAuthHandler(
	registerUC *auth.RegisterUserUsecase,
	loginUC *auth.LoginUsecase,
	accountUC *auth.AccountUsecase,
) *AuthHandler {
	return &AuthHandler{
		registerUC: registerUC,
		loginUC:    loginUC,
		accountUC:  accountUC,
	}
}

// /auth/register のリクエストボディ。
type registerRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone" validate:"max=30"`
	Campus   string `json:"campus" validate:"max=255"`
	Role     string `json:"role" validate:"omitempty,oneof=buyer seller"`
}

// /auth/login のリクエストボディ。
type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name   *string `json:"name" validate:"omitempty,max=255"`
	Phone  *string `json:"phone" validate:"omitempty,max=30"`
	Campus *string `json:"campus" validate:"omitempty,max=255"`
}

type forceLogoutResponse struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

func (h *AuthHandler) RegisterRoutes(api *echo.Group, cfg config.Config, userRepo repository.UserRepository) {
	g := api.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)

	authed := g.Group("", middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo))
	authed.POST("/logout", h.Logout)
	authed.GET("/profile", h.Profile)
	authed.PUT("/profile", h.UpdateProfile)
	authed.POST("/upgrade-seller", h.UpgradeSeller)

	// /admin 配下は「JWT必須 + token_version一致 + admin限定」
	admin := api.Group("/admin",
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
		middleware.AdminRoleGuard(),
	)
	admin.POST("/users/:id/force-logout", h.ForceLogout)
}

// POST /auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.registerUC.Execute(c.Request().Context(), auth.RegisterUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Campus:   req.Campus,
		Role:     req.Role,
	})
	if err != nil {
		return writeError(c, authError(c, err))
	}

	return c.JSON(http.StatusCreated, out)
}

// POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.loginUC.Execute(c.Request().Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, authError(c, err))
	}

	return c.JSON(http.StatusOK, out)
}

// POST /auth/logout（発行済みトークンをすべて無効化）
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.accountUC.Logout(c.Request().Context(), userID); err != nil {
		return writeError(c, authError(c, err))
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "logout success"})
}

func (h *AuthHandler) Profile(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	user, err := h.accountUC.Profile(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, authError(c, err))
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	user, err := h.accountUC.UpdateProfile(c.Request().Context(), userID, auth.UpdateProfileInput{
		Name:   req.Name,
		Phone:  req.Phone,
		Campus: req.Campus,
	})
	if err != nil {
		return writeError(c, authError(c, err))
	}
	return c.JSON(http.StatusOK, user)
}

// role が変わるのでクライアントは再ログインでトークンを取り直す
func (h *AuthHandler) UpgradeSeller(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	user, err := h.accountUC.UpgradeToSeller(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, authError(c, err))
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) ForceLogout(c echo.Context) error {
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	tv, err := h.accountUC.ForceLogout(c.Request().Context(), adminID, targetID)
	if err != nil {
		return writeError(c, authError(c, err))
	}
	return c.JSON(http.StatusOK, forceLogoutResponse{UserID: targetID, NewTokenVersion: tv})
}

// authパッケージのエラーを種別付きのエラーにする
func authError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrNameRequired),
		errors.Is(err, auth.ErrInvalidEmailFormat),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, auth.ErrAlreadySeller):
		return usecase.NewError(usecase.KindValidation, err.Error())
	case errors.Is(err, auth.ErrEmailAlreadyExists):
		return usecase.NewError(usecase.KindConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return usecase.NewError(usecase.KindUnauthorized, "invalid email or password")
	case errors.Is(err, auth.ErrUserInactive):
		return usecase.NewError(usecase.KindForbidden, err.Error())
	case errors.Is(err, auth.ErrUserNotFound):
		return usecase.NewError(usecase.KindNotFound, err.Error())
	default:
		log.Ctx(c.Request().Context()).Error().Err(err).Msg("auth failure")
		return usecase.NewError(usecase.KindPersistenceFailure, "internal error")
	}
}
