// Package checkout は注文確認から決済、決済後の戻りまで。
package checkout

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"storefront/internal/client/api"
	"storefront/internal/client/broadcast"
	"storefront/internal/client/localstore"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyCart        = errors.New("checkout: cart is empty")
	ErrNoDeliveryType   = errors.New("checkout: delivery type is required")
	ErrUnknownPickup    = errors.New("checkout: unknown pickup point")
	ErrAddressTooShort  = errors.New("checkout: address is too short")
	ErrNoPaymentContext = errors.New("checkout: payment id and order id are unknown")
)

const minAddressLen = 5

// 受け取り店舗
var PickupPoints = map[string]string{
	"krasnodar": "г. Краснодар, ул. Соколова, 17",
	"maykop":    "г. Майкоп, ул. Васильева, д.2, корпус 4",
}

// ID順の受け取り店舗ID
func PickupIDs() []string {
	ids := make([]string, 0, len(PickupPoints))
	for id := range PickupPoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type API interface {
	Cart(ctx context.Context) (api.Cart, error)
	InitPayment(ctx context.Context, req api.CheckoutRequest) (api.PaymentInit, error)
	SyncPayment(ctx context.Context, paymentID string, orderID string) (api.PaymentState, error)
}

// 決済画面から戻ったときに使う
type PaymentContext struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
}

type Checkout struct {
	api   API
	store localstore.Store
	bus   *broadcast.Broadcaster
	log   logrus.FieldLogger
}

func New(a API, store localstore.Store, bus *broadcast.Broadcaster, log logrus.FieldLogger) *Checkout {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Checkout{api: a, store: store, bus: bus, log: log}
}

// 注文確認用に最新のカートを取る
func (c *Checkout) Prepare(ctx context.Context) (api.Cart, error) {
	return c.api.Cart(ctx)
}

// CanPay は支払いボタンを押せるかを返す（nil なら可）
func CanPay(cart api.Cart, req api.CheckoutRequest) error {
	if cart.Empty() {
		return ErrEmptyCart
	}
	switch req.DeliveryType {
	case api.DeliveryPickup:
		if _, ok := PickupPoints[req.PickupID]; !ok {
			return ErrUnknownPickup
		}
	case api.DeliveryCourier:
		if utf8.RuneCountInString(strings.TrimSpace(req.Address)) < minAddressLen {
			return ErrAddressTooShort
		}
	default:
		return ErrNoDeliveryType
	}
	return nil
}

// Start はカートを確認して決済を作り、支払いURLを返す
func (c *Checkout) Start(ctx context.Context, req api.CheckoutRequest) (api.PaymentInit, error) {
	cart, err := c.Prepare(ctx)
	if err != nil {
		return api.PaymentInit{}, err
	}
	if err := CanPay(cart, req); err != nil {
		return api.PaymentInit{}, err
	}

	req.Address = strings.TrimSpace(req.Address)
	req.AddressComment = strings.TrimSpace(req.AddressComment)

	pay, err := c.api.InitPayment(ctx, req)
	if err != nil {
		return api.PaymentInit{}, err
	}
	if pay.PaymentURL == "" {
		return api.PaymentInit{}, errors.New("checkout: payment url is empty")
	}

	pc := PaymentContext{PaymentID: pay.PaymentID.String(), OrderID: pay.OrderID.String()}
	if err := c.saveContext(pc); err != nil {
		c.log.WithError(err).Warn("payment context not saved")
	}

	c.log.WithFields(logrus.Fields{
		"payment_id": pc.PaymentID,
		"order_id":   pc.OrderID,
	}).Info("payment started")
	return pay, nil
}

// Complete は決済からの戻り（クエリ）で状態を同期する。
// 結果にかかわらずカートを取り直して cart changed を流す。
func (c *Checkout) Complete(ctx context.Context, query url.Values) (api.PaymentState, error) {
	defer c.refreshCart(ctx)

	pc := c.LastContext()
	if v := first(query, "PaymentId", "paymentId", "payment_id"); v != "" {
		pc.PaymentID = v
	}
	if v := first(query, "OrderId", "orderId", "order_id"); v != "" {
		pc.OrderID = v
	}
	if pc.PaymentID == "" && pc.OrderID == "" {
		return api.PaymentState{}, ErrNoPaymentContext
	}

	st, err := c.api.SyncPayment(ctx, pc.PaymentID, pc.OrderID)
	if err != nil {
		return api.PaymentState{}, err
	}

	log := c.log.WithFields(logrus.Fields{
		"payment_id": pc.PaymentID,
		"order_id":   pc.OrderID,
		"status":     st.Status,
	})
	if st.Paid() {
		if err := c.store.Delete(localstore.KeyLastPaymentCtx); err != nil {
			log.WithError(err).Warn("payment context not cleared")
		}
		log.Info("payment confirmed")
	} else {
		log.Info("payment not confirmed yet")
	}
	return st, nil
}

// 保存してある決済コンテキスト（無ければゼロ値）
func (c *Checkout) LastContext() PaymentContext {
	var pc PaymentContext
	raw, ok := c.store.Get(localstore.KeyLastPaymentCtx)
	if !ok || raw == "" {
		return pc
	}
	if err := json.Unmarshal([]byte(raw), &pc); err != nil {
		c.log.WithError(err).Warn("broken payment context ignored")
		return PaymentContext{}
	}
	return pc
}

func (c *Checkout) saveContext(pc PaymentContext) error {
	b, err := json.Marshal(pc)
	if err != nil {
		return errors.Wrap(err, "encode payment context")
	}
	return c.store.Set(localstore.KeyLastPaymentCtx, string(b))
}

func (c *Checkout) refreshCart(ctx context.Context) {
	if _, err := c.api.Cart(ctx); err != nil {
		c.log.WithError(err).Debug("cart refetch after payment failed")
	}
	c.bus.Emit(broadcast.CartChanged)
}

func first(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	return ""
}
