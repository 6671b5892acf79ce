package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const maxAnonIDLen = 64

// AnonID は匿名カートのIDをヘッダから読む（長すぎる・空は無視）
func AnonID(header string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(header))
			if id != "" && len(id) <= maxAnonIDLen {
				c.Set(CtxAnonIDKey, id)
			}
			return next(c)
		}
	}
}
