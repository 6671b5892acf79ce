package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /orders のHTTP（カートと注文履歴）
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

// 数値でも文字列でも受けて整数か確認する
type SetItemRequest struct {
	VariantID json.Number `json:"variant_id"`
	Qty       json.Number `json:"qty"`
}

// カートは匿名でも使える。履歴・merge はログイン必須
func (h *CartHandler) RegisterRoutes(api *echo.Group, guards Guards) {
	g := api.Group("/orders")
	opt := guards.optional()
	req := guards.required()

	g.GET("/", h.getCart, opt...)
	g.POST("/items/", h.setItem, opt...)
	g.DELETE("/items/:id/", h.deleteItem, opt...)

	g.POST("/merge/", h.merge, req...)
	g.GET("/history/", h.history, req...)
	g.GET("/history/:id/", h.orderDetail, req...)
	g.POST("/cart/repeat/:id/", h.repeat, req...)
}

func (h *CartHandler) getCart(c echo.Context) error {
	out, err := h.uc.GetCart(c.Request().Context(), cartOwner(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) setItem(c echo.Context) error {
	var req SetItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "variant_id and qty must be integers")
	}
	variantID, err1 := strconv.ParseInt(req.VariantID.String(), 10, 64)
	qty, err2 := strconv.Atoi(req.Qty.String())
	if err1 != nil || err2 != nil {
		return badRequest(c, "variant_id and qty must be integers")
	}

	out, err := h.uc.SetItem(c.Request().Context(), cartOwner(c), variantID, qty)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 無い明細でも 204
func (h *CartHandler) deleteItem(c echo.Context) error {
	variantID, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.uc.DeleteItem(c.Request().Context(), cartOwner(c), variantID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) merge(c echo.Context) error {
	clientID, _ := getUserIDFromContext(c)
	if err := h.uc.Merge(c.Request().Context(), clientID, getAnonID(c)); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) history(c echo.Context) error {
	clientID, _ := getUserIDFromContext(c)
	out, err := h.uc.History(c.Request().Context(), clientID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) orderDetail(c echo.Context) error {
	clientID, _ := getUserIDFromContext(c)
	orderID, ok := parseID(c, "id")
	if !ok {
		return writeError(c, usecase.ErrOrderNotFound)
	}
	out, err := h.uc.OrderDetail(c.Request().Context(), clientID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) repeat(c echo.Context) error {
	clientID, _ := getUserIDFromContext(c)
	orderID, ok := parseID(c, "id")
	if !ok {
		return writeError(c, usecase.ErrOrderNotFound)
	}
	out, err := h.uc.Repeat(c.Request().Context(), clientID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
