package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"campusmart/internal/config"
	"campusmart/internal/handler"
	localmiddleware "campusmart/internal/middleware"
	"campusmart/internal/validator"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

const serviceName = "campusmart"

// APIサーバー。ミドルウェアの順番：recover → trace → log → metrics → timeout
func New(cfg config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Validator = validator.NewRequestValidator()
	e.Binder = &validator.StrictBinder{}
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(middleware.Recover())
	e.Use(localmiddleware.Tracing(serviceName))
	e.Use(localmiddleware.Logger)
	// Used empty string so that metrics are not prefixed with the service name
	e.Use(echoprometheus.NewMiddleware(""))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     allowedOrigins(cfg.FEURL),
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, handler.IdempotencyKeyHeader, localmiddleware.RequestIDHeader},
		AllowCredentials: true,
	}))
	if cfg.DBTimeout > 0 {
		// DBのタイムアウトより少し長く
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: cfg.DBTimeout + 2*time.Second,
		}))
	}

	return e
}

func allowedOrigins(feURL string) []string {
	var out []string
	for _, o := range strings.Split(feURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// /metrics 専用のサーバー
func NewMetrics() *echo.Echo {
	m := echo.New()
	m.HideBanner = true
	m.HidePort = true
	m.GET("/metrics", echoprometheus.NewHandler())
	return m
}

// ctxが終わるまで待ってからshutdown
func Run(ctx context.Context, e *echo.Echo, addr string, name string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("server", name).Str("addr", addr).Msg("server started")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Str("server", name).Msg("server stopped")
	return <-errCh
}
