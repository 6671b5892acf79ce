package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const maxNotificationBody = 64 << 10

type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

// sync と webhook は認証なし（決済画面からの戻りと銀行からの通知）
func (h *PaymentHandler) RegisterRoutes(api *echo.Group, guards Guards) {
	g := api.Group("/payments")
	g.POST("/init/", h.init, guards.required()...)
	g.POST("/sync/", h.sync)
	g.POST("/webhook/", h.webhook)
}

func (h *PaymentHandler) init(c echo.Context) error {
	clientID, _ := getUserIDFromContext(c)

	var req usecase.CheckoutInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Init(c.Request().Context(), clientID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) sync(c echo.Context) error {
	body, err := decodeObject(c.Request().Body)
	if err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Sync(c.Request().Context(), field(body, "payment_id", "PaymentId"), field(body, "order_id", "OrderId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 銀行には常に 200 と text/plain を返す
func (h *PaymentHandler) webhook(c echo.Context) error {
	var payload map[string]interface{}

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		body, err := decodeObject(io.LimitReader(c.Request().Body, maxNotificationBody))
		if err != nil {
			return c.String(http.StatusBadRequest, "BAD REQUEST")
		}
		payload = body
	} else {
		form, err := c.FormParams()
		if err != nil {
			return c.String(http.StatusBadRequest, "BAD REQUEST")
		}
		payload = make(map[string]interface{}, len(form))
		for k := range form {
			payload[k] = form.Get(k)
		}
	}

	return c.String(http.StatusOK, h.uc.ApplyNotification(c.Request().Context(), payload))
}

// 金額・IDが float にならないように UseNumber
func decodeObject(r io.Reader) (map[string]interface{}, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func field(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}
