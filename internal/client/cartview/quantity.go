package cartview

import (
	"context"

	"storefront/internal/client/api"
	"storefront/internal/client/broadcast"
	"storefront/internal/client/optimistic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// 有効なバリエーションが無い
var ErrNotPurchasable = errors.New("cartview: product has no purchasable variant")

type Options struct {
	// 成功後に GET /orders/ で確定値を取り直す（既定 true）
	DisableResync bool
	// 表示更新
	OnChange func(variantID int64, st optimistic.State[int])
	Log      logrus.FieldLogger

	// カート全体を受け取る（CartPage 用）
	onSnapshot func(api.Cart)
}

// QuantityControl は商品カード / 商品詳細の数量ボタン。
// バリエーションごとに楽観的に表示を変え、失敗したら戻す。
type QuantityControl struct {
	api CartAPI
	res *optimistic.Resource[int64, int]
	w   *watcher
	log logrus.FieldLogger
}

func NewQuantityControl(cartAPI CartAPI, bus *broadcast.Broadcaster, opts Options) *QuantityControl {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	q := &QuantityControl{api: cartAPI, log: log}

	cfg := optimistic.Config[int64, int]{
		Commit:   q.commit,
		OnChange: opts.OnChange,
		Log:      log,
	}
	if !opts.DisableResync {
		cfg.Fetch = q.fetch
	}
	q.res = optimistic.New(cfg)

	q.w = newWatcher(cartAPI, bus, log, func(cart api.Cart) {
		q.res.SyncAll(cart.QuantityMap())
		if opts.onSnapshot != nil {
			opts.onSnapshot(cart)
		}
	})
	return q
}

// 初回表示
func (q *QuantityControl) Load(ctx context.Context) error {
	return q.w.refresh(ctx)
}

func (q *QuantityControl) Quantity(variantID int64) int {
	return q.res.Value(variantID)
}

func (q *QuantityControl) Busy(variantID int64) bool {
	return q.res.Busy(variantID)
}

func (q *QuantityControl) Increment(ctx context.Context, variantID int64) (optimistic.Outcome, error) {
	return q.res.Apply(ctx, variantID, func(v int) int { return v + 1 })
}

// 0 になったら明細削除
func (q *QuantityControl) Decrement(ctx context.Context, variantID int64) (optimistic.Outcome, error) {
	return q.res.Apply(ctx, variantID, func(v int) int {
		if v <= 0 {
			return 0
		}
		return v - 1
	})
}

func (q *QuantityControl) SetQuantity(ctx context.Context, variantID int64, qty int) (optimistic.Outcome, error) {
	if qty < 0 {
		return optimistic.Noop, api.ErrInvalidQuantity
	}
	return q.res.Apply(ctx, variantID, func(int) int { return qty })
}

func (q *QuantityControl) Remove(ctx context.Context, variantID int64) (optimistic.Outcome, error) {
	return q.SetQuantity(ctx, variantID, 0)
}

// 「カートに入れる」：サイズから買えるバリエーションを選んで +1
func (q *QuantityControl) AddToCart(ctx context.Context, p api.Product, sizeLabel string) (int64, optimistic.Outcome, error) {
	v, ok := p.PurchasableVariant(sizeLabel)
	if !ok {
		return 0, optimistic.Noop, ErrNotPurchasable
	}
	out, err := q.Increment(ctx, v.ID)
	return v.ID, out, err
}

// 一覧のカードから（default_variant_id を使う）
func (q *QuantityControl) AddSummary(ctx context.Context, p api.ProductSummary) (int64, optimistic.Outcome, error) {
	if p.DefaultVariantID == nil {
		return 0, optimistic.Noop, ErrNotPurchasable
	}
	out, err := q.Increment(ctx, *p.DefaultVariantID)
	return *p.DefaultVariantID, out, err
}

// 画面を閉じる。以降の応答は反映しない
func (q *QuantityControl) Close() {
	q.res.Close()
	q.w.close()
}

func (q *QuantityControl) commit(ctx context.Context, variantID int64, from int, to int) error {
	if to <= 0 {
		return q.api.DeleteCartItem(ctx, variantID)
	}
	return q.api.SetCartItem(ctx, variantID, to)
}

func (q *QuantityControl) fetch(ctx context.Context, variantID int64) (int, error) {
	cart, err := q.api.Cart(ctx)
	if err != nil {
		return 0, err
	}
	return cart.Quantity(variantID), nil
}
