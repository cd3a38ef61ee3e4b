package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"campusmart/internal/domain/model"
	"campusmart/internal/middleware"
	"campusmart/internal/usecase"
	"campusmart/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// {"error": 種別, "message": 説明}
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: string(he.Kind), Message: he.Message})
	}

	// 中身はログにだけ出す
	log.Ctx(c.Request().Context()).Error().Err(err).Msg("unhandled error")
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   string(usecase.KindPersistenceFailure),
		Message: "internal error",
	})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: string(usecase.KindValidation), Message: msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: string(usecase.KindUnauthorized), Message: "unauthorized"})
}

// echoのルーティングエラー（404/405など）も同じ形にそろえる
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		kind := usecase.KindOf(usecase.NewHTTPError(he.Code, msg))
		if he.Code >= 500 {
			log.Ctx(c.Request().Context()).Error().Err(err).Msg("echo error")
		}
		_ = c.JSON(he.Code, ErrorResponse{Error: string(kind), Message: msg})
		return
	}
	_ = writeError(c, err)
}

// バインド→validateタグの検証。失敗はVALIDATION_ERROR
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return usecase.NewError(usecase.KindValidation, bindMessage(err))
	}
	if err := c.Validate(req); err != nil {
		return usecase.NewError(usecase.KindValidation, strings.TrimPrefix(err.Error(), validator.ErrInvalidInput.Error()+": "))
	}
	return nil
}

func bindMessage(err error) string {
	if errors.Is(err, validator.ErrInvalidInput) {
		return strings.TrimPrefix(err.Error(), validator.ErrInvalidInput.Error()+": ")
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if s, ok := he.Message.(string); ok {
			return s
		}
	}
	return "invalid body"
}

// middleware.AuthJWT が c.Set("user_id", int64) した値を取り出す
func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func actorFromContext(c echo.Context) (usecase.Actor, bool) {
	id, ok := getUserIDFromContext(c)
	if !ok {
		return usecase.Actor{}, false
	}
	role, ok := c.Get(middleware.CtxUserRoleKey).(model.Role)
	if !ok {
		return usecase.Actor{}, false
	}
	return usecase.Actor{UserID: id, Role: role}, true
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// 空なら既定値
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, usecase.NewError(usecase.KindValidation, "invalid "+name)
	}
	return i, nil
}

func queryInt64Ptr(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, usecase.NewError(usecase.KindValidation, "invalid "+name)
	}
	return &i, nil
}
