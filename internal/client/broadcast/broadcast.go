// Package broadcast はアプリ内の変更通知（cart / favorites）。
//
// 購読者ごとにgoroutineと1枠のシグナルを持つ。ハンドラは非同期に、
// 購読者ごとには直列で実行され、Emit のたびに少なくとも1回は呼ばれる。
// 実行中に届いた通知はまとめて次の1回になる。購読者間の順序は保証しない。
package broadcast

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type Channel string

const (
	CartChanged      Channel = "cart:changed"
	FavoritesChanged Channel = "favorites:changed"
)

type Broadcaster struct {
	mu     sync.Mutex
	subs   map[Channel]map[uint64]*subscriber
	nextID uint64
	closed bool

	//未処理シグナル数（Wait用）
	pendMu  sync.Mutex
	pending int
	idle    *sync.Cond

	log logrus.FieldLogger
}

type subscriber struct {
	ch     Channel
	fn     func()
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func New(log logrus.FieldLogger) *Broadcaster {
	b := &Broadcaster{
		subs: map[Channel]map[uint64]*subscriber{},
		log:  log,
	}
	b.idle = sync.NewCond(&b.pendMu)
	return b
}

// 購読。戻り値で解除（何度呼んでもよい）
func (b *Broadcaster) Subscribe(ch Channel, fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	id := b.nextID
	sub := &subscriber{
		ch:     ch,
		fn:     fn,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	if b.subs[ch] == nil {
		b.subs[ch] = map[uint64]*subscriber{}
	}
	b.subs[ch][id] = sub

	go b.run(sub)

	return func() { b.unsubscribe(ch, id) }
}

// 通知（ブロックしない）
func (b *Broadcaster) Emit(ch Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.log.WithField("channel", string(ch)).Debug("emit")

	for _, sub := range b.subs[ch] {
		//送信前に数える（受信側の -1 が先に走っても負にならない）
		b.addPending(1)
		select {
		case sub.signal <- struct{}{}:
		default:
			//既に未処理がある → まとめる
			b.addPending(-1)
		}
	}
}

// 全購読を解除
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for ch, m := range b.subs {
		for id, sub := range m {
			sub.stop()
			delete(m, id)
		}
		delete(b.subs, ch)
	}
}

// 未処理の通知がすべて処理されるまで待つ
func (b *Broadcaster) Wait() {
	b.pendMu.Lock()
	defer b.pendMu.Unlock()
	for b.pending > 0 {
		b.idle.Wait()
	}
}

func (b *Broadcaster) unsubscribe(ch Channel, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := b.subs[ch]
	if m == nil {
		return
	}
	if sub, ok := m[id]; ok {
		sub.stop()
		delete(m, id)
	}
}

func (b *Broadcaster) run(sub *subscriber) {
	for {
		select {
		case <-sub.done:
			b.drain(sub)
			return
		case <-sub.signal:
			select {
			case <-sub.done:
				//解除済みなら呼ばない
				b.addPending(-1)
				b.drain(sub)
				return
			default:
			}
			b.invoke(sub)
			b.addPending(-1)
		}
	}
}

func (b *Broadcaster) invoke(sub *subscriber) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{
				"channel": string(sub.ch),
				"panic":   r,
			}).Error("subscriber panicked")
		}
	}()
	sub.fn()
}

func (b *Broadcaster) drain(sub *subscriber) {
	select {
	case <-sub.signal:
		b.addPending(-1)
	default:
	}
}

func (b *Broadcaster) addPending(n int) {
	b.pendMu.Lock()
	b.pending += n
	if b.pending == 0 {
		b.idle.Broadcast()
	}
	b.pendMu.Unlock()
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}
