package server

import (
	"campusmart/internal/config"
	"campusmart/internal/handler"
	"campusmart/internal/repository"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Health     *handler.HealthHandler
	Auth       *handler.AuthHandler
	Product    *handler.ProductHandler
	Cart       *handler.CartHandler
	Order      *handler.OrderHandler
	AdminOrder *handler.AdminOrderHandler
}

// すべて /api 配下
func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	api := e.Group("/api")

	h.Health.RegisterRoutes(api)
	h.Auth.RegisterRoutes(api, cfg, userRepo)
	h.Product.RegisterRoutes(api, cfg, userRepo)
	h.Cart.RegisterRoutes(api, cfg, userRepo)
	h.Order.RegisterRoutes(api, cfg, userRepo)
	h.AdminOrder.RegisterRoutes(api, cfg, userRepo)
}
