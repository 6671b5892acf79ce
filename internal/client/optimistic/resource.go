// Package optimistic はキー単位の楽観的更新（表示を先に変えて、失敗したら戻す）。
//
// キーごとに Idle / Mutating の2状態を持つ。同じキーに対して同時に2本の
// Commit は走らない。Mutating 中の操作は1つの後続操作に合成され、
// 確定値に対して改めて適用される。
package optimistic

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrClosed = errors.New("optimistic: resource closed")

type Outcome int

const (
	// 値が変わらないので何もしていない
	Noop Outcome = iota
	// サーバーが受け付けた
	Committed
	// 実行中の操作の後ろに積んだ
	Queued
	// 失敗して元の値に戻した
	RolledBack
	// Close 後に届いた応答なので捨てた
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Noop:
		return "noop"
	case Committed:
		return "committed"
	case Queued:
		return "queued"
	case RolledBack:
		return "rolled_back"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// 表示用の状態
type State[V comparable] struct {
	Value V
	Busy  bool
}

type Config[K comparable, V comparable] struct {
	// サーバーへの変更（必須）
	Commit func(ctx context.Context, key K, from V, to V) error
	// 成功後の再取得（任意）
	Fetch func(ctx context.Context, key K) (V, error)
	// 表示更新フック（任意）
	OnChange func(key K, st State[V])
	Log      logrus.FieldLogger
}

type Resource[K comparable, V comparable] struct {
	mu      sync.Mutex
	cfg     Config[K, V]
	entries map[K]*entry[V]
	closed  bool
}

type entry[V comparable] struct {
	value   V
	shown   V
	busy    bool
	pending func(V) V
}

func New[K comparable, V comparable](cfg Config[K, V]) *Resource[K, V] {
	if cfg.Log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		cfg.Log = l
	}
	return &Resource[K, V]{
		cfg:     cfg,
		entries: map[K]*entry[V]{},
	}
}

// 表示中の値
func (r *Resource[K, V]) Value(key K) V {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		return e.shown
	}
	var zero V
	return zero
}

func (r *Resource[K, V]) Busy(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		return e.busy
	}
	return false
}

// サーバーの値で上書き（処理中のキーは触らない）
func (r *Resource[K, V]) Sync(key K, v V) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	e := r.entryLocked(key)
	if e.busy || (e.value == v && e.shown == v) {
		r.mu.Unlock()
		return
	}
	e.value = v
	e.shown = v
	r.mu.Unlock()

	r.notify(key, State[V]{Value: v})
}

// スナップショット全体で上書き。載っていないキーはゼロ値になる
func (r *Resource[K, V]) SyncAll(snapshot map[K]V) {
	r.mu.Lock()
	keys := make([]K, 0, len(r.entries)+len(snapshot))
	for k := range r.entries {
		keys = append(keys, k)
	}
	for k := range snapshot {
		if _, ok := r.entries[k]; !ok {
			keys = append(keys, k)
		}
	}
	r.mu.Unlock()

	for _, k := range keys {
		r.Sync(k, snapshot[k])
	}
}

// Apply は intent を楽観的に適用してサーバーに送る。
// 処理中なら後続に積んで Queued をすぐ返す。
func (r *Resource[K, V]) Apply(ctx context.Context, key K, intent func(V) V) (Outcome, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Dropped, ErrClosed
	}
	e := r.entryLocked(key)

	if e.busy {
		prev := e.pending
		if prev == nil {
			e.pending = intent
		} else {
			e.pending = func(v V) V { return intent(prev(v)) }
		}
		e.shown = intent(e.shown)
		st := State[V]{Value: e.shown, Busy: true}
		r.mu.Unlock()

		r.notify(key, st)
		return Queued, nil
	}

	from := e.value
	to := intent(from)
	if to == from {
		r.mu.Unlock()
		return Noop, nil
	}
	e.busy = true
	e.shown = to
	r.mu.Unlock()

	r.notify(key, State[V]{Value: to, Busy: true})
	return r.run(ctx, key, from, to)
}

// Close 後は応答を反映しない
func (r *Resource[K, V]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// 結果は最後の Commit のもの。途中の失敗はログに残すだけ
func (r *Resource[K, V]) run(ctx context.Context, key K, from V, to V) (Outcome, error) {
	for {
		err := r.cfg.Commit(ctx, key, from, to)

		settled := to
		if err != nil {
			settled = from
			r.cfg.Log.WithError(err).WithField("key", key).Warn("optimistic update rolled back")
		} else if r.cfg.Fetch != nil {
			if v, ferr := r.cfg.Fetch(ctx, key); ferr == nil {
				settled = v
			} else {
				r.cfg.Log.WithError(ferr).WithField("key", key).Debug("resync after commit failed")
			}
		}
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return Dropped, err
		}
		e := r.entryLocked(key)
		e.value = settled

		//後続があれば確定値に対して適用
		if next := e.pending; next != nil {
			e.pending = nil
			nto := next(settled)
			if nto != settled {
				e.shown = nto
				r.mu.Unlock()

				r.notify(key, State[V]{Value: nto, Busy: true})
				from, to = settled, nto
				continue
			}
		}

		e.busy = false
		e.shown = settled
		r.mu.Unlock()

		r.notify(key, State[V]{Value: settled})

		if err != nil {
			return RolledBack, err
		}
		return Committed, nil
	}
}

func (r *Resource[K, V]) entryLocked(key K) *entry[V] {
	e, ok := r.entries[key]
	if !ok {
		e = &entry[V]{}
		r.entries[key] = e
	}
	return e
}

func (r *Resource[K, V]) notify(key K, st State[V]) {
	if r.cfg.OnChange == nil {
		return
	}
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return
	}
	r.cfg.OnChange(key, st)
}
