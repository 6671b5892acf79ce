// Package favorites はお気に入りの切り替え。
// サーバーが正で、ローカルの保存はキャッシュとしてだけ使う。
package favorites

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"storefront/internal/client/broadcast"
	"storefront/internal/client/localstore"
	"storefront/internal/client/optimistic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// 未ログインでは切り替えできない
var ErrAuthRequired = errors.New("favorites: login required")

type API interface {
	Favorites(ctx context.Context) ([]string, error)
	AddFavorite(ctx context.Context, slug string) error
	RemoveFavorite(ctx context.Context, slug string) error
}

type Authenticator interface {
	Authenticated() bool
}

type Options struct {
	// 未ログイン時の遷移先（ログイン / 登録画面）
	OnAuthRequired func(slug string)
	OnChange       func(slug string, st optimistic.State[bool])
	Log            logrus.FieldLogger
}

type Favorites struct {
	api   API
	auth  Authenticator
	store localstore.Store
	bus   *broadcast.Broadcaster
	opts  Options
	log   logrus.FieldLogger
	res   *optimistic.Resource[string, bool]

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()

	mu    sync.Mutex
	cache map[string]struct{}
}

func New(a API, auth Authenticator, store localstore.Store, bus *broadcast.Broadcaster, opts Options) *Favorites {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	f := &Favorites{
		api:    a,
		auth:   auth,
		store:  store,
		bus:    bus,
		opts:   opts,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		cache:  readCache(store, log),
	}
	f.res = optimistic.New(optimistic.Config[string, bool]{
		Commit:   f.commit,
		OnChange: opts.OnChange,
		Log:      log,
	})
	f.res.SyncAll(f.snapshot())

	f.unsubscribe = bus.Subscribe(broadcast.FavoritesChanged, func() {
		if err := f.Load(f.ctx); err != nil {
			f.log.WithError(err).Debug("favorites reload failed")
		}
	})
	return f
}

// Load は GET /favorites/ でキャッシュを書き直す（未ログインなら空にする）
func (f *Favorites) Load(ctx context.Context) error {
	if !f.auth.Authenticated() {
		f.replace(nil)
		return nil
	}
	slugs, err := f.api.Favorites(ctx)
	if err != nil {
		return err
	}
	f.replace(slugs)
	return nil
}

func (f *Favorites) IsFavorite(slug string) bool {
	return f.res.Value(slug)
}

func (f *Favorites) Busy(slug string) bool {
	return f.res.Busy(slug)
}

// キャッシュ上の一覧（slug 順）
func (f *Favorites) Slugs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedKeys(f.cache)
}

// Toggle は表示を先に反転してから PUT / DELETE する
func (f *Favorites) Toggle(ctx context.Context, slug string) (optimistic.Outcome, error) {
	if !f.auth.Authenticated() {
		if f.opts.OnAuthRequired != nil {
			f.opts.OnAuthRequired(slug)
		}
		return optimistic.Noop, ErrAuthRequired
	}
	return f.res.Apply(ctx, slug, func(v bool) bool { return !v })
}

func (f *Favorites) Close() {
	f.res.Close()
	f.unsubscribe()
	f.cancel()
}

func (f *Favorites) commit(ctx context.Context, slug string, from bool, to bool) error {
	var err error
	if to {
		err = f.api.AddFavorite(ctx, slug)
	} else {
		err = f.api.RemoveFavorite(ctx, slug)
	}
	if err != nil {
		return err
	}

	//確定してからキャッシュ → 通知
	f.mu.Lock()
	if to {
		f.cache[slug] = struct{}{}
	} else {
		delete(f.cache, slug)
	}
	f.persistLocked()
	f.mu.Unlock()

	f.bus.Emit(broadcast.FavoritesChanged)
	return nil
}

func (f *Favorites) replace(slugs []string) {
	f.mu.Lock()
	f.cache = make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		f.cache[s] = struct{}{}
	}
	f.persistLocked()
	f.mu.Unlock()

	f.res.SyncAll(f.snapshot())
}

func (f *Favorites) snapshot() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := make(map[string]bool, len(f.cache))
	for s := range f.cache {
		m[s] = true
	}
	return m
}

func (f *Favorites) persistLocked() {
	b, err := json.Marshal(sortedKeys(f.cache))
	if err != nil {
		f.log.WithError(err).Warn("favorites cache encode failed")
		return
	}
	if err := f.store.Set(localstore.KeyFavorites, string(b)); err != nil {
		f.log.WithError(err).Warn("favorites cache write failed")
	}
}

func readCache(store localstore.Store, log logrus.FieldLogger) map[string]struct{} {
	out := map[string]struct{}{}
	raw, ok := store.Get(localstore.KeyFavorites)
	if !ok || raw == "" {
		return out
	}
	var slugs []string
	if err := json.Unmarshal([]byte(raw), &slugs); err != nil {
		log.WithError(err).Warn("favorites cache is broken, ignoring")
		return out
	}
	for _, s := range slugs {
		out[s] = struct{}{}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
