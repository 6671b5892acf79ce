package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/infra/paygate"
	repo "storefront/internal/repository"
	auth "storefront/internal/usecase/auth_usecase"

	"github.com/sirupsen/logrus"
)

const (
	webhookOK           = "OK"
	webhookInvalidToken = "INVALID TOKEN"
)

var (
	ErrCartEmpty          = NewHTTPError(http.StatusBadRequest, "cart_empty")
	ErrPaymentIDRequired  = NewHTTPError(http.StatusBadRequest, "payment_id_or_order_id_required")
	ErrPaymentNotFound    = NewHTTPError(http.StatusNotFound, "payment_not_found")
	ErrGatewayUnavailable = NewHTTPError(http.StatusServiceUnavailable, "payment_gateway_unavailable")
	ErrGatewayRejected    = NewHTTPError(http.StatusBadGateway, "payment_init_failed")
)

// POST /payments/init/ の入力
type CheckoutInput struct {
	DeliveryType   string `json:"delivery_type"`
	Address        string `json:"address"`
	AddressComment string `json:"address_comment"`
	PickupID       string `json:"pickup_id"`
}

type PaymentUsecase struct {
	cartRepo    repo.CartRepository
	paymentRepo repo.PaymentRepository
	txm         repo.TransactionManager
	gateway     paygate.Gateway
	password    string
	clock       auth.Clock
	url         URLFunc
	log         logrus.FieldLogger
}

// DI
func NewPaymentUsecase(
	cfg config.Config,
	cartRepo repo.CartRepository,
	paymentRepo repo.PaymentRepository,
	txm repo.TransactionManager,
	gateway paygate.Gateway,
	clock auth.Clock,
	log logrus.FieldLogger,
) *PaymentUsecase {
	if clock == nil {
		clock = auth.SystemClock{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PaymentUsecase{
		cartRepo:    cartRepo,
		paymentRepo: paymentRepo,
		txm:         txm,
		gateway:     gateway,
		password:    cfg.TBankPassword,
		clock:       clock,
		url:         PrefixURL(cfg.MediaURL),
		log:         log,
	}
}

func validateCheckout(in CheckoutInput) error {
	switch model.DeliveryType(in.DeliveryType) {
	case model.DeliveryPickup:
		if strings.TrimSpace(in.PickupID) == "" {
			return NewHTTPError(http.StatusBadRequest, "pickup_id required")
		}
	case model.DeliveryCourier:
		if utf8.RuneCountInString(strings.TrimSpace(in.Address)) < 5 {
			return NewHTTPError(http.StatusBadRequest, "address too short")
		}
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid delivery_type")
	}
	return nil
}

// Init はdraftカートの決済を作る。
// 同じ金額で結果待ちの決済があればそれを返し、金額が変わっていれば古い方を REJECTED にする。
func (u *PaymentUsecase) Init(ctx context.Context, clientID int64, in CheckoutInput) (PaymentInitDTO, error) {
	if clientID <= 0 {
		return PaymentInitDTO{}, ErrUnauthorized
	}
	if err := validateCheckout(in); err != nil {
		return PaymentInitDTO{}, err
	}

	cart, err := u.cartRepo.FindDraftByClientID(ctx, clientID)
	if errors.Is(err, repo.ErrNotFound) {
		return PaymentInitDTO{}, ErrCartEmpty
	}
	if err != nil {
		return PaymentInitDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	items, err := u.cartRepo.ListItems(ctx, cart.ID)
	if err != nil {
		return PaymentInitDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	lines, total := buildCart(itemVariants(items), itemQty(items), u.url)
	if len(lines.Items) == 0 {
		return PaymentInitDTO{}, ErrCartEmpty
	}
	if !total.IsPositive() {
		return PaymentInitDTO{}, NewHTTPError(http.StatusBadRequest, "invalid_total")
	}

	cart.DeliveryType = model.DeliveryType(in.DeliveryType)
	cart.Address = strings.TrimSpace(in.Address)
	cart.AddressComment = strings.TrimSpace(in.AddressComment)
	cart.PickupID = strings.TrimSpace(in.PickupID)

	var (
		pay   model.Payment
		reuse bool
	)
	now := u.clock.Now()
	err = u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Carts().SaveDelivery(ctx, cart); err != nil {
			return err
		}

		live, err := r.Payments().FindLiveByCartID(ctx, cart.ID)
		switch {
		case err == nil:
			if live.Amount.Equal(total) && live.PaymentURL != "" && live.PaymentID != "" {
				pay, reuse = live, true
				return nil
			}
			live.Status = model.PaymentRejected
			if err := r.Payments().Update(ctx, &live); err != nil {
				return err
			}
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}

		pay = model.Payment{
			CartID:  cart.ID,
			Amount:  total,
			OrderID: fmt.Sprintf("cart-%d-%s", cart.ID, now.Format("20060102150405")),
			Status:  model.PaymentNew,
		}
		return r.Payments().Create(ctx, &pay)
	})
	if err != nil {
		u.log.WithError(err).WithField("cart_id", cart.ID).Error("payment not prepared")
		return PaymentInitDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	log := u.log.WithFields(logrus.Fields{"cart_id": cart.ID, "order_id": pay.OrderID})
	if reuse {
		log.Info("live payment reused")
		return toPaymentInitDTO(pay), nil
	}

	res, err := u.gateway.Init(ctx, paygate.InitRequest{
		Amount:      paygate.Kopecks(total),
		OrderID:     pay.OrderID,
		Description: "Заказ №" + formatOrderNumber(cart.ID),
	})
	if err != nil {
		pay.Status = model.PaymentRejected
		if uerr := u.paymentRepo.Update(ctx, &pay); uerr != nil {
			log.WithError(uerr).Error("payment status not saved")
		}
		log.WithError(err).Warn("payment init failed")
		if errors.Is(err, paygate.ErrUnavailable) {
			return PaymentInitDTO{}, ErrGatewayUnavailable
		}
		return PaymentInitDTO{}, ErrGatewayRejected
	}

	pay.PaymentID = res.PaymentID
	pay.PaymentURL = res.PaymentURL
	if res.Status != "" {
		pay.Status = model.PaymentStatus(strings.ToUpper(res.Status))
	}
	if err := u.paymentRepo.Update(ctx, &pay); err != nil {
		return PaymentInitDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	log.WithField("payment_id", pay.PaymentID).Info("payment created")
	return toPaymentInitDTO(pay), nil
}

func toPaymentInitDTO(p model.Payment) PaymentInitDTO {
	return PaymentInitDTO{
		PaymentURL: p.PaymentURL,
		PaymentID:  p.PaymentID,
		OrderID:    p.OrderID,
		Amount:     paygate.Kopecks(p.Amount),
		Status:     string(p.Status),
	}
}

// Sync は決済画面からの戻りで状態を取り直す（認証なし）。
// success は銀行が成功を返し、かつ支払い済みの状態のとき true。
func (u *PaymentUsecase) Sync(ctx context.Context, paymentID string, orderID string) (PaymentSyncDTO, error) {
	paymentID = strings.TrimSpace(paymentID)
	orderID = strings.TrimSpace(orderID)
	if paymentID == "" && orderID == "" {
		return PaymentSyncDTO{}, ErrPaymentIDRequired
	}

	pay, err := u.findPayment(ctx, paymentID, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return PaymentSyncDTO{}, ErrPaymentNotFound
	}
	if err != nil {
		return PaymentSyncDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	log := u.log.WithFields(logrus.Fields{"cart_id": pay.CartID, "order_id": pay.OrderID})
	st, err := u.gateway.GetState(ctx, pay.PaymentID, pay.OrderID)
	switch {
	case errors.Is(err, paygate.ErrUnavailable):
		return PaymentSyncDTO{}, ErrGatewayUnavailable
	case err != nil:
		//銀行が拒否したら今の状態のまま返す
		log.WithError(err).Info("payment state rejected by gateway")
		return u.syncDTO(ctx, pay, false), nil
	}

	paid, err := u.apply(ctx, pay, st.Status, st.Success)
	if err != nil {
		log.WithError(err).Error("payment state not saved")
		return PaymentSyncDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if st.Status != "" {
		pay.Status = model.PaymentStatus(strings.ToUpper(st.Status))
	}
	return u.syncDTO(ctx, pay, paid), nil
}

// ApplyNotification は銀行からの通知。返り値はそのまま text/plain で返す
func (u *PaymentUsecase) ApplyNotification(ctx context.Context, payload map[string]interface{}) string {
	if !paygate.Verify(payload, u.password) {
		u.log.Warn("payment notification with invalid token")
		return webhookInvalidToken
	}

	str := func(k string) string {
		if v, ok := payload[k]; ok && v != nil {
			return strings.TrimSpace(fmt.Sprint(v))
		}
		return ""
	}
	pay, err := u.findPayment(ctx, str("PaymentId"), str("OrderId"))
	if err != nil {
		//知らない決済でも銀行には OK を返す
		u.log.WithError(err).WithField("order_id", str("OrderId")).Info("notification for unknown payment")
		return webhookOK
	}

	status := str("Status")
	if status == "" {
		status = string(pay.Status)
	}
	success := false
	switch strings.ToLower(str("Success")) {
	case "true", "1":
		success = true
	}
	//通知では CONFIRMED のときだけ注文にする
	if strings.ToUpper(status) != string(model.PaymentConfirmed) {
		success = false
	}
	if _, err := u.apply(ctx, pay, status, success); err != nil {
		u.log.WithError(err).WithField("order_id", pay.OrderID).Error("notification not applied")
	}
	return webhookOK
}

// 状態を保存し、支払い済みならカートを注文にする
func (u *PaymentUsecase) apply(ctx context.Context, pay model.Payment, status string, success bool) (bool, error) {
	if status != "" {
		pay.Status = model.PaymentStatus(strings.ToUpper(status))
	}
	paid := success && pay.Status.Paid()

	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Payments().Update(ctx, &pay); err != nil {
			return err
		}
		if !paid {
			return nil
		}
		err := r.Carts().MarkOrdered(ctx, pay.CartID, pay.Amount, u.clock.Now())
		if errors.Is(err, repo.ErrNotFound) {
			//すでに注文済み
			return nil
		}
		return err
	})
	if err != nil {
		return false, err
	}
	if paid {
		u.log.WithFields(logrus.Fields{"cart_id": pay.CartID, "order_id": pay.OrderID}).Info("cart ordered")
	}
	return paid, nil
}

func (u *PaymentUsecase) findPayment(ctx context.Context, paymentID string, orderID string) (model.Payment, error) {
	if paymentID != "" {
		p, err := u.paymentRepo.FindByPaymentID(ctx, paymentID)
		if err == nil || !errors.Is(err, repo.ErrNotFound) {
			return p, err
		}
	}
	if orderID != "" {
		return u.paymentRepo.FindByOrderID(ctx, orderID)
	}
	return model.Payment{}, repo.ErrNotFound
}

func (u *PaymentUsecase) syncDTO(ctx context.Context, pay model.Payment, success bool) PaymentSyncDTO {
	dto := PaymentSyncDTO{
		Status:    string(pay.Status),
		Success:   success,
		PaymentID: pay.PaymentID,
		OrderID:   pay.OrderID,
		CartID:    pay.CartID,
		Total:     money(pay.Amount),
	}
	if cart, err := u.cartRepo.FindByID(ctx, pay.CartID); err == nil && cart.Status == model.CartStatusOrdered {
		dto.Total = money(cart.Total)
	}
	return dto
}
