package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Server は sandbox の echo をまとめたもの
type Server struct {
	echo *echo.Echo
	addr string
	log  logrus.FieldLogger
}

type Handlers struct {
	Clients   *handler.ClientHandler
	Products  *handler.ProductHandler
	Favorites *handler.FavoriteHandler
	Carts     *handler.CartHandler
	Payments  *handler.PaymentHandler
}

func New(cfg config.Config, h Handlers, guards handler.Guards, log logrus.FieldLogger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	//API は末尾スラッシュを付けてからルーティング（media は除く）
	e.Pre(echomw.AddTrailingSlashWithConfig(echomw.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
	}))
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.AnonID(cfg.AnonHeader))

	RegisterRoutes(e, h, guards)
	if cfg.MediaRoot != "" {
		e.Static(cfg.MediaURL, cfg.MediaRoot)
	}

	return &Server{echo: e, addr: cfg.Addr(), log: log}
}

func RegisterRoutes(e *echo.Echo, h Handlers, guards handler.Guards) {
	api := e.Group("/api")

	h.Clients.RegisterRoutes(api, guards)
	h.Products.RegisterRoutes(api, guards)
	h.Favorites.RegisterRoutes(api, guards)
	h.Carts.RegisterRoutes(api, guards)
	h.Payments.RegisterRoutes(api, guards)
}

// テストから httptest で叩く
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run は ctx が終わるまで待って graceful shutdown する
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.addr).Info("sandbox listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// echo 自身のエラー（404/405/bind など）も {"detail"} で返す
func errorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		detail := "internal error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				detail = msg
			} else {
				detail = http.StatusText(status)
			}
		} else {
			log.WithError(err).Error("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, handler.ErrorResponse{Detail: detail})
		}
		if err != nil {
			log.WithError(err).Warn("write error response")
		}
	}
}
