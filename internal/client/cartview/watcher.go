// Package cartview はカートを表示する画面側のロジック
// （商品カード / 商品詳細の数量ボタン、カートページ、ヘッダーのバッジ）。
package cartview

import (
	"context"
	"sync"

	"storefront/internal/client/api"
	"storefront/internal/client/broadcast"

	"github.com/sirupsen/logrus"
)

// 画面が使うカートAPI
type CartAPI interface {
	Cart(ctx context.Context) (api.Cart, error)
	SetCartItem(ctx context.Context, variantID int64, qty int) error
	DeleteCartItem(ctx context.Context, variantID int64) error
}

// watcher は cart changed のたびに GET /orders/ を取り直す。
// 新しいリクエストの結果を反映した後に届いた古い結果は捨てる。
// apply はロックの外で、1本ずつ呼ぶ（apply の中から refresh してもよい）。
type watcher struct {
	api   CartAPI
	apply func(api.Cart)
	log   logrus.FieldLogger

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()

	mu         sync.Mutex
	issued     uint64
	applied    uint64
	closed     bool
	latest     *api.Cart // まだ apply していない最新の結果
	delivering bool
}

func newWatcher(cartAPI CartAPI, bus *broadcast.Broadcaster, log logrus.FieldLogger, apply func(api.Cart)) *watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &watcher{
		api:    cartAPI,
		apply:  apply,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	w.unsubscribe = bus.Subscribe(broadcast.CartChanged, func() {
		if err := w.refresh(w.ctx); err != nil {
			w.log.WithError(err).Debug("cart refetch failed")
		}
	})
	return w
}

func (w *watcher) refresh(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.issued++
	gen := w.issued
	w.mu.Unlock()

	cart, err := w.api.Cart(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	//閉じた後 / 新しい結果を反映済みなら捨てる
	if w.closed || gen <= w.applied {
		w.mu.Unlock()
		return nil
	}
	w.applied = gen
	w.latest = &cart
	if w.delivering {
		//反映中の側が続けて apply する
		w.mu.Unlock()
		return nil
	}

	w.delivering = true
	for w.latest != nil && !w.closed {
		next := *w.latest
		w.latest = nil
		w.mu.Unlock()

		w.apply(next)

		w.mu.Lock()
	}
	w.latest = nil
	w.delivering = false
	w.mu.Unlock()
	return nil
}

func (w *watcher) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	w.unsubscribe()
	w.cancel()
}
