package handler

import (
	"net/http"
	"strconv"
	"strings"

	"campusmart/internal/config"
	"campusmart/internal/domain/model"
	"campusmart/internal/middleware"
	"campusmart/internal/repository"
	"campusmart/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 管理者用：注文一覧・監査ログ・要対応リスト
type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

func (h *AdminOrderHandler) RegisterRoutes(api *echo.Group, cfg config.Config, userRepo repository.UserRepository) {
	adminMW := []echo.MiddlewareFunc{
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
		middleware.AdminRoleGuard(),
	}

	api.GET("/orders", h.list, adminMW...)

	admin := api.Group("/admin", adminMW...)
	admin.GET("/audit-logs", h.auditLogs)
	admin.GET("/reconciliation", h.reconciliation)
	admin.POST("/reconciliation/:id/resolve", h.resolve)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		return writeError(c, err)
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return writeError(c, err)
	}
	userID, err := queryInt64Ptr(c, "user_id")
	if err != nil {
		return writeError(c, err)
	}
	from, err := usecase.ParseDateTimeRFC3339(c.QueryParam("from"))
	if err != nil {
		return writeError(c, err)
	}
	to, err := usecase.ParseDateTimeRFC3339(c.QueryParam("to"))
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.List(c.Request().Context(), actor, repository.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
		UserID: userID,
		From:   from,
		To:     to,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) auditLogs(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return writeError(c, err)
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return writeError(c, err)
	}
	f := repository.AuditLogFilter{Limit: limit, Offset: offset}
	for _, q := range []struct {
		name string
		dst  **int64
	}{
		{"actor_user_id", &f.ActorUserID},
		{"order_id", &f.OrderID},
		{"product_id", &f.ProductID},
		{"user_id", &f.UserID},
	} {
		v, err := queryInt64Ptr(c, q.name)
		if err != nil {
			return writeError(c, err)
		}
		*q.dst = v
	}
	if f.From, err = usecase.ParseDateTimeRFC3339(c.QueryParam("from")); err != nil {
		return writeError(c, err)
	}
	if f.To, err = usecase.ParseDateTimeRFC3339(c.QueryParam("to")); err != nil {
		return writeError(c, err)
	}
	if v := strings.TrimSpace(c.QueryParam("actor_role")); v != "" {
		role := model.Role(strings.ToLower(v))
		f.ActorRole = &role
	}
	// action=CANCEL_ORDER,UPDATE_ORDER_STATUS
	for _, v := range strings.Split(c.QueryParam("action"), ",") {
		if v = strings.TrimSpace(v); v != "" {
			f.Actions = append(f.Actions, model.AuditAction(strings.ToUpper(v)))
		}
	}

	out, err := h.uc.ListAuditLogs(c.Request().Context(), actor, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) reconciliation(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return writeError(c, err)
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return writeError(c, err)
	}

	// 既定は未解決のみ
	onlyOpen := true
	if v := c.QueryParam("open"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid open")
		}
		onlyOpen = b
	}

	f := repository.ReconciliationFilter{OnlyOpen: onlyOpen, Limit: limit, Offset: offset}
	if v := c.QueryParam("kind"); v != "" {
		k := model.ReconciliationKind(v)
		f.Kind = &k
	}

	entries, err := h.uc.ListReconciliation(c.Request().Context(), actor, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *AdminOrderHandler) resolve(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.ResolveReconciliation(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "resolved"})
}
