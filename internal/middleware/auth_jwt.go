package middleware

import (
	"net/http"
	"strings"

	auth "storefront/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxTokenVersionKey = "token_version" // int
	CtxAnonIDKey       = "anon_id"       // string
	CtxRequestIDKey    = "request_id"    // string
)

// access token の検証
type TokenParser interface {
	Parse(raw string) (auth.Claims, error)
}

// bearerAuth用のJWT検証ミドルウェア。
func AuthJWT(p TokenParser) echo.MiddlewareFunc {
	return jwtAuth(p, false)
}

// OptionalAuthJWT はヘッダが無ければ匿名で通す（壊れたトークンは401）
func OptionalAuthJWT(p TokenParser) echo.MiddlewareFunc {
	return jwtAuth(p, true)
}

func jwtAuth(p TokenParser, optional bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				if optional {
					return next(c)
				}
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//JWTをパースして検証する
			claims, err := p.Parse(rawToken)
			if err != nil || claims.ClientID <= 0 || claims.TokenVersion < 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("token_not_valid"))
			}

			//contextへ保存
			c.Set(CtxUserIDKey, claims.ClientID)
			c.Set(CtxTokenVersionKey, claims.TokenVersion)

			return next(c)
		}
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Detail: msg}
}
