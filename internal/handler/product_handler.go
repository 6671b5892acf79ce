package handler

import (
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /products の公開API
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開商品のルートを登録（ログインしていれば is_favorited が付く）
func (h *ProductHandler) RegisterRoutes(api *echo.Group, guards Guards) {
	g := api.Group("/products", guards.optional()...)
	g.GET("/", h.list)
	g.GET("/:slug/", h.detail)
}

func (h *ProductHandler) list(c echo.Context) error {
	in := usecase.ListProductsInput{
		Q:        c.QueryParam("q"),
		Sort:     c.QueryParam("sort"),
		IsNew:    queryBool(c, "is_new"),
		IsSale:   queryBool(c, "is_sale"),
		Popular:  queryBool(c, "popular") || queryBool(c, "is_hit"),
		InStock:  queryBool(c, "in_stock"),
		Category: c.QueryParam("category"),
		Brand:    c.QueryParam("brand"),
		Group:    firstNonEmpty(c.QueryParam("group"), c.QueryParam("parent")),
	}
	// sizes=41,42
	if v := c.QueryParam("sizes"); v != "" {
		in.Sizes = strings.Split(v, ",")
	}

	// page（default 1）
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return badRequest(c, "invalid page")
		}
		in.Page = p
	}

	// limit（default 20）
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return badRequest(c, "invalid limit")
		}
		in.Limit = l
	}

	clientID, _ := getUserIDFromContext(c)
	out, err := h.uc.ListPublicProducts(c.Request().Context(), clientID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	clientID, _ := getUserIDFromContext(c)
	out, err := h.uc.GetProductDetail(c.Request().Context(), clientID, c.Param("slug"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func queryBool(c echo.Context, key string) bool {
	switch strings.ToLower(strings.TrimSpace(c.QueryParam(key))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
