package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Detail string `json:"detail"`
}

// 各ハンドラが使う認証まわり
type Guards struct {
	Auth    echo.MiddlewareFunc // 必須
	OptAuth echo.MiddlewareFunc // ヘッダが無ければ匿名
	Version echo.MiddlewareFunc // token_version 照合
}

func (g Guards) required() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{g.Auth, g.Version}
}

func (g Guards) optional() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{g.OptAuth, g.Version}
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Detail: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Detail: msg})
}

//middleware.AuthJWT が c.Set("user_id", int64) した値を取り出す
func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func getAnonID(c echo.Context) string {
	id, _ := c.Get(middleware.CtxAnonIDKey).(string)
	return id
}

func cartOwner(c echo.Context) usecase.CartOwner {
	id, _ := getUserIDFromContext(c)
	return usecase.CartOwner{ClientID: id, AnonID: getAnonID(c)}
}

func parseID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
