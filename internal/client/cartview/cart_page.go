package cartview

import (
	"sync"

	"storefront/internal/client/api"
	"storefront/internal/client/broadcast"
)

// CartPage はカートページ。サーバーのスナップショット（明細と合計）と
// 明細ごとの数量ボタン（削除は Remove）を持つ。
type CartPage struct {
	*QuantityControl

	mu       sync.RWMutex
	snapshot api.Cart
	loaded   bool
	onCart   func(api.Cart)
}

func NewCartPage(cartAPI CartAPI, bus *broadcast.Broadcaster, opts Options, onCart func(api.Cart)) *CartPage {
	p := &CartPage{onCart: onCart}
	opts.onSnapshot = p.setSnapshot
	p.QuantityControl = NewQuantityControl(cartAPI, bus, opts)
	return p
}

func (p *CartPage) setSnapshot(cart api.Cart) {
	p.mu.Lock()
	p.snapshot = cart
	p.loaded = true
	p.mu.Unlock()

	if p.onCart != nil {
		p.onCart(cart)
	}
}

// 最後に取れたカート
func (p *CartPage) Snapshot() (api.Cart, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot, p.loaded
}
