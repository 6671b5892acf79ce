package usecase

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrVariantNotFound = NewHTTPError(http.StatusNotFound, "variant_not_found")
	ErrOrderNotFound   = NewHTTPError(http.StatusNotFound, "order_not_found")
)

// カートの持ち主。ClientID があれば会員カート、無ければ AnonID のカート
type CartOwner struct {
	ClientID int64
	AnonID   string
}

func (o CartOwner) IsClient() bool {
	return o.ClientID > 0
}

// 数量を入れた明細数
type RepeatDTO struct {
	Moved int `json:"moved"`
}

type CartUsecase struct {
	cartRepo    repo.CartRepository
	anonRepo    repo.AnonCartRepository
	productRepo repo.ProductRepository
	txm         repo.TransactionManager
	anonHeader  string
	url         URLFunc
	log         logrus.FieldLogger
}

// DI
func NewCartUsecase(
	cfg config.Config,
	cartRepo repo.CartRepository,
	anonRepo repo.AnonCartRepository,
	productRepo repo.ProductRepository,
	txm repo.TransactionManager,
	log logrus.FieldLogger,
) *CartUsecase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CartUsecase{
		cartRepo:    cartRepo,
		anonRepo:    anonRepo,
		productRepo: productRepo,
		txm:         txm,
		anonHeader:  cfg.AnonHeader,
		url:         PrefixURL(cfg.MediaURL),
		log:         log,
	}
}

func formatOrderNumber(id int64) string {
	return strconv.FormatInt(id, 10)
}

// 匿名でヘッダも無ければ空カート
func (u *CartUsecase) GetCart(ctx context.Context, owner CartOwner) (CartDTO, error) {
	if owner.IsClient() {
		cart, err := u.cartRepo.FindDraftByClientID(ctx, owner.ClientID)
		if errors.Is(err, repo.ErrNotFound) {
			return emptyCart(), nil
		}
		if err != nil {
			return CartDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		dto, _, err := u.draftLines(ctx, u.cartRepo, cart.ID)
		return dto, err
	}

	if owner.AnonID == "" {
		return emptyCart(), nil
	}
	qty, err := u.anonRepo.Get(ctx, owner.AnonID)
	if err != nil {
		return CartDTO{}, NewHTTPError(http.StatusInternalServerError, "cache error")
	}
	return u.anonLines(ctx, qty)
}

// 数量で上書き。qty <= 0 はその明細を削除
func (u *CartUsecase) SetItem(ctx context.Context, owner CartOwner, variantID int64, qty int) (CartDTO, error) {
	if err := u.requireOwner(owner); err != nil {
		return CartDTO{}, err
	}
	if variantID <= 0 {
		return CartDTO{}, ErrVariantNotFound
	}
	if qty < 0 {
		qty = 0
	}
	if qty > 0 {
		v, err := u.productRepo.FindVariant(ctx, variantID)
		if errors.Is(err, repo.ErrNotFound) {
			return CartDTO{}, ErrVariantNotFound
		}
		if err != nil {
			return CartDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !purchasable(v) {
			return CartDTO{}, ErrVariantNotFound
		}
	}

	if owner.IsClient() {
		cart, err := u.cartRepo.GetOrCreateDraftByClientID(ctx, owner.ClientID)
		if err != nil {
			return CartDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if qty == 0 {
			err = u.cartRepo.DeleteItem(ctx, cart.ID, variantID)
		} else {
			err = u.cartRepo.SetItem(ctx, cart.ID, variantID, qty)
		}
		if err != nil {
			return CartDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	} else if err := u.anonRepo.Set(ctx, owner.AnonID, variantID, qty); err != nil {
		return CartDTO{}, NewHTTPError(http.StatusInternalServerError, "cache error")
	}

	return u.GetCart(ctx, owner)
}

// 無くても成功
func (u *CartUsecase) DeleteItem(ctx context.Context, owner CartOwner, variantID int64) error {
	if err := u.requireOwner(owner); err != nil {
		return err
	}

	if !owner.IsClient() {
		if err := u.anonRepo.Delete(ctx, owner.AnonID, variantID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "cache error")
		}
		return nil
	}

	cart, err := u.cartRepo.FindDraftByClientID(ctx, owner.ClientID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if err := u.cartRepo.DeleteItem(ctx, cart.ID, variantID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// Merge は匿名カートを会員のdraftへ移す。
// 同じ variant は多い方の数量を残し、移したら匿名カートは空にする。
func (u *CartUsecase) Merge(ctx context.Context, clientID int64, anonID string) error {
	if clientID <= 0 {
		return ErrUnauthorized
	}
	if anonID == "" {
		return nil
	}

	anon, err := u.anonRepo.Get(ctx, anonID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "cache error")
	}
	if len(anon) == 0 {
		return nil
	}

	//公開中の variant だけ移す
	ids := make([]int64, 0, len(anon))
	for id := range anon {
		ids = append(ids, id)
	}
	variants, err := u.productRepo.FindVariants(ctx, ids)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	err = u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateDraftByClientID(ctx, clientID)
		if err != nil {
			return err
		}
		items, err := r.Carts().ListItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		existing := make(map[int64]int, len(items))
		for _, it := range items {
			existing[it.VariantID] = it.Quantity
		}

		for _, v := range variants {
			if !purchasable(v) {
				continue
			}
			q := anon[v.ID]
			if existing[v.ID] >= q {
				continue
			}
			if err := r.Carts().SetItem(ctx, cart.ID, v.ID, q); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.anonRepo.Clear(ctx, anonID); err != nil {
		u.log.WithError(err).WithField("client_id", clientID).Warn("anonymous cart not cleared after merge")
	}
	u.log.WithFields(logrus.Fields{"client_id": clientID, "lines": len(variants)}).Info("anonymous cart merged")
	return nil
}

// 新しい順
func (u *CartUsecase) History(ctx context.Context, clientID int64) ([]OrderSummaryDTO, error) {
	if clientID <= 0 {
		return nil, ErrUnauthorized
	}
	carts, err := u.cartRepo.ListOrdered(ctx, clientID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	out := make([]OrderSummaryDTO, 0, len(carts))
	for _, c := range carts {
		out = append(out, toOrderSummaryDTO(c))
	}
	return out, nil
}

func (u *CartUsecase) OrderDetail(ctx context.Context, clientID int64, orderID int64) (OrderDetailDTO, error) {
	order, err := u.ownOrder(ctx, clientID, orderID)
	if err != nil {
		return OrderDetailDTO{}, err
	}
	items, err := u.cartRepo.ListItems(ctx, order.ID)
	if err != nil {
		return OrderDetailDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	lines, _ := buildCart(itemVariants(items), itemQty(items), u.url)

	return OrderDetailDTO{
		OrderSummaryDTO: toOrderSummaryDTO(order),
		DeliveryType:    string(order.DeliveryType),
		Address:         order.Address,
		AddressComment:  order.AddressComment,
		PickupID:        order.PickupID,
		Items:           lines.Items,
	}, nil
}

// Repeat は注文の明細をdraftに入れる。
// 注文にある variant は注文時の数量で上書きし、draft の他の明細はそのまま。
// 今は買えない variant は飛ばす。
func (u *CartUsecase) Repeat(ctx context.Context, clientID int64, orderID int64) (RepeatDTO, error) {
	order, err := u.ownOrder(ctx, clientID, orderID)
	if err != nil {
		return RepeatDTO{}, err
	}
	items, err := u.cartRepo.ListItems(ctx, order.ID)
	if err != nil {
		return RepeatDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var out RepeatDTO
	err = u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateDraftByClientID(ctx, clientID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if it.Variant == nil || !purchasable(*it.Variant) || it.Quantity <= 0 {
				continue
			}
			if err := r.Carts().SetItem(ctx, cart.ID, it.VariantID, it.Quantity); err != nil {
				return err
			}
			out.Moved++
		}
		return nil
	})
	if err != nil {
		return RepeatDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	u.log.WithFields(logrus.Fields{"client_id": clientID, "order_id": orderID, "moved": out.Moved}).Info("order repeated into draft")
	return out, nil
}

func (u *CartUsecase) ownOrder(ctx context.Context, clientID int64, orderID int64) (model.Cart, error) {
	if clientID <= 0 {
		return model.Cart{}, ErrUnauthorized
	}
	if orderID <= 0 {
		return model.Cart{}, ErrOrderNotFound
	}
	order, err := u.cartRepo.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, ErrOrderNotFound
	}
	if err != nil {
		return model.Cart{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	//他人の注文・draftは見せない
	if order.ClientID != clientID || order.Status != model.CartStatusOrdered {
		return model.Cart{}, ErrOrderNotFound
	}
	return order, nil
}

// variant も親商品も公開中
func purchasable(v model.ProductVariant) bool {
	return v.IsActive && v.Product != nil && v.Product.IsActive
}

func (u *CartUsecase) requireOwner(owner CartOwner) error {
	if !owner.IsClient() && owner.AnonID == "" {
		return NewHTTPError(http.StatusBadRequest, "header "+u.anonHeader+" required")
	}
	return nil
}

// draftの明細と合計（payment でも使う）
func (u *CartUsecase) draftLines(ctx context.Context, carts repo.CartRepository, cartID int64) (CartDTO, decimal.Decimal, error) {
	items, err := carts.ListItems(ctx, cartID)
	if err != nil {
		return CartDTO{}, decimal.Zero, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	dto, total := buildCart(itemVariants(items), itemQty(items), u.url)
	return dto, total, nil
}

func (u *CartUsecase) anonLines(ctx context.Context, qty map[int64]int) (CartDTO, error) {
	if len(qty) == 0 {
		return emptyCart(), nil
	}
	ids := make([]int64, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	variants, err := u.productRepo.FindVariants(ctx, ids)
	if err != nil {
		return CartDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	dto, _ := buildCart(variants, qty, u.url)
	return dto, nil
}

func emptyCart() CartDTO {
	return CartDTO{Items: []CartLineDTO{}, Total: money(decimal.Zero)}
}

func itemVariants(items []model.CartItem) []model.ProductVariant {
	out := make([]model.ProductVariant, 0, len(items))
	for _, it := range items {
		if it.Variant != nil {
			out = append(out, *it.Variant)
		}
	}
	return out
}

func itemQty(items []model.CartItem) map[int64]int {
	out := make(map[int64]int, len(items))
	for _, it := range items {
		out[it.VariantID] = it.Quantity
	}
	return out
}
