package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const RequestIDHeader = "X-Request-ID"

// request_id付きのloggerをcontextに入れて、処理後に1行出す
func Logger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		requestID := c.Request().Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Response().Header().Set(RequestIDHeader, requestID)

		ctx := c.Request().Context()
		logger := log.With().Str("request_id", requestID).Logger()
		ctx = logger.WithContext(ctx)
		c.SetRequest(c.Request().WithContext(ctx))

		err := next(c)
		if err != nil {
			// echoのエラーハンドラに書かせてからステータスを取る
			c.Error(err)
		}

		req := c.Request()
		res := c.Response()

		ev := log.Ctx(req.Context()).Info()
		if res.Status >= 500 {
			ev = log.Ctx(req.Context()).Error()
		}
		ev.Str("method", req.Method).
			Str("endpoint", req.URL.Path).
			Int("status", res.Status).
			Int64("latency", time.Since(start).Milliseconds()).
			Msg("Request processed")

		return nil
	}
}
