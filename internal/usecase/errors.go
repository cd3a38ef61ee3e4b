package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// クライアントに返す安定したエラー種別
type ErrorKind string

const (
	KindValidation             ErrorKind = "VALIDATION_ERROR"
	KindUnauthorized           ErrorKind = "UNAUTHORIZED"
	KindForbidden              ErrorKind = "FORBIDDEN"
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindConflict               ErrorKind = "CONFLICT"
	KindInsufficientStock      ErrorKind = "INSUFFICIENT_STOCK"
	KindProductUnavailable     ErrorKind = "PRODUCT_UNAVAILABLE"
	KindInvalidStateTransition ErrorKind = "INVALID_STATE_TRANSITION"
	KindPersistenceFailure     ErrorKind = "PERSISTENCE_FAILURE"
)

var kindStatus = map[ErrorKind]int{
	KindValidation:             http.StatusBadRequest,
	KindUnauthorized:           http.StatusUnauthorized,
	KindForbidden:              http.StatusForbidden,
	KindNotFound:               http.StatusNotFound,
	KindConflict:               http.StatusConflict,
	KindInsufficientStock:      http.StatusBadRequest,
	KindProductUnavailable:     http.StatusBadRequest,
	KindInvalidStateTransition: http.StatusBadRequest,
	KindPersistenceFailure:     http.StatusInternalServerError,
}

type HTTPError struct {
	Status  int
	Kind    ErrorKind
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// 種別からステータスを決める
func NewError(kind ErrorKind, message string) error {
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &HTTPError{Status: status, Kind: kind, Message: message}
}

// ステータスから種別を決める（handler側の入力エラー用）
func NewHTTPError(status int, message string) error {
	kind := KindPersistenceFailure
	if status < http.StatusInternalServerError {
		kind = KindValidation
	}
	for k, s := range kindStatus {
		if s == status && k != KindInsufficientStock && k != KindProductUnavailable && k != KindInvalidStateTransition {
			kind = k
			break
		}
	}
	return &HTTPError{Status: status, Kind: kind, Message: message}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 種別の判定（テスト・ログ用）
func KindOf(err error) ErrorKind {
	if he, ok := AsHTTPError(err); ok {
		return he.Kind
	}
	if err == nil {
		return ""
	}
	return KindPersistenceFailure
}

// DBの失敗は中身をログにだけ残して、クライアントには汎用メッセージ
// タイムアウトも同じ扱い
func dbError(ctx context.Context, op string, err error) error {
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	ev := log.Ctx(ctx).Error().Err(err).Str("op", op)
	if errors.Is(err, context.DeadlineExceeded) {
		ev = ev.Bool("timeout", true)
	}
	ev.Msg("storage failure")
	return NewError(KindPersistenceFailure, "db error")
}
