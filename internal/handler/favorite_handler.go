package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type FavoriteHandler struct {
	uc *usecase.FavoriteUsecase
}

func NewFavoriteHandler(uc *usecase.FavoriteUsecase) *FavoriteHandler {
	return &FavoriteHandler{uc: uc}
}

func (h *FavoriteHandler) RegisterRoutes(api *echo.Group, guards Guards) {
	g := api.Group("/favorites", guards.required()...)
	g.GET("/", h.list)
	g.PUT("/:slug/", h.add)
	g.DELETE("/:slug/", h.remove)
}

func (h *FavoriteHandler) list(c echo.Context) error {
	clientID, _ := getUserIDFromContext(c)
	out, err := h.uc.List(c.Request().Context(), clientID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *FavoriteHandler) add(c echo.Context) error {
	clientID, _ := getUserIDFromContext(c)
	if err := h.uc.Add(c.Request().Context(), clientID, c.Param("slug")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *FavoriteHandler) remove(c echo.Context) error {
	clientID, _ := getUserIDFromContext(c)
	if err := h.uc.Remove(c.Request().Context(), clientID, c.Param("slug")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
