package handler

import (
	"net/http"

	"campusmart/internal/config"
	"campusmart/internal/middleware"
	"campusmart/internal/repository"
	"campusmart/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /products のHTTP
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 作成・更新の共通ボディ
type productRequest struct {
	Name          string   `json:"name" validate:"required,max=255"`
	Description   string   `json:"description"`
	Price         int64    `json:"price" validate:"gte=0"`
	OriginalPrice *int64   `json:"original_price" validate:"omitempty,gte=0"`
	Category      string   `json:"category" validate:"required"`
	Image         string   `json:"image"`
	Images        []string `json:"images" validate:"max=10"`
	Condition     string   `json:"condition" validate:"required"`
	Stock         int64    `json:"stock" validate:"gte=0"`
	Campus        string   `json:"campus" validate:"max=255"`
	Tags          []string `json:"tags" validate:"max=20"`
	IsActive      *bool    `json:"is_active"`
}

// 在庫更新の入力
type inventoryUpdateRequest struct {
	Stock  *int64 `json:"stock" validate:"required,gte=0"`
	Reason string `json:"reason" validate:"required,max=255"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

func (h *ProductHandler) RegisterRoutes(api *echo.Group, cfg config.Config, userRepo repository.UserRepository) {
	authMW := []echo.MiddlewareFunc{middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo)}
	sellerMW := append(authMW[:len(authMW):len(authMW)], middleware.SellerRoleGuard())

	g := api.Group("/products")

	// 公開
	g.GET("", h.list)
	g.GET("/search", h.search)
	g.GET("/category/:category", h.byCategory)
	g.GET("/:id", h.detail)

	g.GET("/seller/mine", h.mine, sellerMW...)
	g.POST("", h.create, sellerMW...)
	g.PUT("/:id", h.update, authMW...)
	g.DELETE("/:id", h.delete, authMW...)
	g.PUT("/:id/inventory", h.updateInventory, authMW...)
	g.POST("/:id/reviews", h.addReview, authMW...)
}

// クエリ → 一覧の入力
func listInputFromQuery(c echo.Context) (usecase.ListProductsInput, error) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return usecase.ListProductsInput{}, err
	}
	limit, err := queryInt(c, "limit", 12)
	if err != nil {
		return usecase.ListProductsInput{}, err
	}
	minPrice, err := queryInt64Ptr(c, "minPrice")
	if err != nil {
		return usecase.ListProductsInput{}, err
	}
	maxPrice, err := queryInt64Ptr(c, "maxPrice")
	if err != nil {
		return usecase.ListProductsInput{}, err
	}

	search := c.QueryParam("search")
	if search == "" {
		search = c.QueryParam("q")
	}

	return usecase.ListProductsInput{
		Page:      page,
		Limit:     limit,
		Search:    search,
		Category:  c.QueryParam("category"),
		Condition: c.QueryParam("condition"),
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		SortBy:    c.QueryParam("sortBy"),
	}, nil
}

func (h *ProductHandler) list(c echo.Context) error {
	in, err := listInputFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) search(c echo.Context) error {
	in, err := listInputFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Search(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) byCategory(c echo.Context) error {
	in, err := listInputFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListByCategory(c.Request().Context(), c.Param("category"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	p, err := h.uc.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) mine(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	in, err := listInputFromQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListMine(c.Request().Context(), actor, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (req productRequest) toInput() usecase.ProductInput {
	return usecase.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Category:      req.Category,
		Image:         req.Image,
		Images:        req.Images,
		Condition:     req.Condition,
		Stock:         req.Stock,
		Campus:        req.Campus,
		Tags:          req.Tags,
		IsActive:      req.IsActive,
	}
}

func (h *ProductHandler) create(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req productRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	p, err := h.uc.Create(c.Request().Context(), actor, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) update(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req productRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	p, err := h.uc.Update(c.Request().Context(), actor, id, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) delete(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.Delete(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *ProductHandler) updateInventory(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req inventoryUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	p, err := h.uc.UpdateInventory(c.Request().Context(), actor, id, *req.Stock, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) addReview(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req reviewRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	rv, err := h.uc.AddReview(c.Request().Context(), actor, id, usecase.AddReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, rv)
}
