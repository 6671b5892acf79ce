package cartview

import (
	"context"
	"sync"

	"storefront/internal/client/api"
	"storefront/internal/client/broadcast"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ヘッダーの合計金額と件数。取得に失敗しても前の値のまま
type HeaderBadge struct {
	mu    sync.RWMutex
	total decimal.Decimal
	count int

	w        *watcher
	onChange func(total decimal.Decimal, count int)
}

func NewHeaderBadge(cartAPI CartAPI, bus *broadcast.Broadcaster, log logrus.FieldLogger, onChange func(total decimal.Decimal, count int)) *HeaderBadge {
	if log == nil {
		log = logrus.StandardLogger()
	}
	b := &HeaderBadge{onChange: onChange}
	b.w = newWatcher(cartAPI, bus, log, b.set)
	return b
}

// 初回表示（失敗は無視）
func (b *HeaderBadge) Load(ctx context.Context) {
	if err := b.w.refresh(ctx); err != nil {
		b.w.log.WithError(err).Debug("header badge load failed")
	}
}

func (b *HeaderBadge) Total() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.total
}

func (b *HeaderBadge) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

func (b *HeaderBadge) Close() {
	b.w.close()
}

func (b *HeaderBadge) set(cart api.Cart) {
	b.mu.Lock()
	b.total = cart.Total
	b.count = cart.Count()
	b.mu.Unlock()

	if b.onChange != nil {
		b.onChange(cart.Total, cart.Count())
	}
}
