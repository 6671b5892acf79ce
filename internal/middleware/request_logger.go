package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const HeaderRequestID = "X-Request-Id"

// RequestLogger はリクエストごとに1行出す（request id は応答ヘッダにも返す）
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			rid := c.Request().Header.Get(HeaderRequestID)
			if rid == "" || len(rid) > 64 {
				rid = uuid.NewString()
			}
			c.Set(CtxRequestIDKey, rid)
			c.Response().Header().Set(HeaderRequestID, rid)

			err := next(c)
			if err != nil {
				//echo のエラーハンドラでステータスを確定させる
				c.Error(err)
			}

			fields := logrus.Fields{
				"request_id":       rid,
				"http.req.method":  c.Request().Method,
				"http.req.path":    c.Request().URL.Path,
				"http.resp.status": c.Response().Status,
				"http.resp.bytes":  c.Response().Size,
				"took_ms":          time.Since(start).Milliseconds(),
			}
			if uid, ok := c.Get(CtxUserIDKey).(int64); ok {
				fields["client_id"] = uid
			}

			entry := log.WithFields(fields)
			switch status := c.Response().Status; {
			case status >= 500:
				entry.WithError(err).Error("request")
			case status >= 400:
				entry.Info("request")
			default:
				entry.Debug("request")
			}
			return nil
		}
	}
}
