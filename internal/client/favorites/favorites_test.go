package favorites

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"storefront/internal/client/broadcast"
	"storefront/internal/client/localstore"
	"storefront/internal/client/optimistic"
	"storefront/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct{ ok bool }

func (a fakeAuth) Authenticated() bool { return a.ok }

type fakeAPI struct {
	mu      sync.Mutex
	set     map[string]bool
	calls   []string
	failPut error
	lists   int
}

func newFakeAPI(slugs ...string) *fakeAPI {
	f := &fakeAPI{set: map[string]bool{}}
	for _, s := range slugs {
		f.set[s] = true
	}
	return f
}

func (f *fakeAPI) Favorites(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	out := []string{}
	for s := range f.set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeAPI) AddFavorite(ctx context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "PUT "+slug)
	if f.failPut != nil {
		return f.failPut
	}
	f.set[slug] = true
	return nil
}

func (f *fakeAPI) RemoveFavorite(ctx context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "DELETE "+slug)
	delete(f.set, slug)
	return nil
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type env struct {
	api   *fakeAPI
	store *localstore.Memory
	bus   *broadcast.Broadcaster
	emits *int32
}

func newEnv(t *testing.T, a *fakeAPI) env {
	bus := broadcast.New(logging.Discard())
	t.Cleanup(bus.Close)

	var n int32
	unsub := bus.Subscribe(broadcast.FavoritesChanged, func() { atomic.AddInt32(&n, 1) })
	t.Cleanup(unsub)

	return env{api: a, store: localstore.NewMemory(), bus: bus, emits: &n}
}

func TestToggle_UnauthenticatedRedirectsWithoutRequest(t *testing.T) {
	e := newEnv(t, newFakeAPI())
	var redirected string
	f := New(e.api, fakeAuth{ok: false}, e.store, e.bus, Options{
		Log:            logging.Discard(),
		OnAuthRequired: func(slug string) { redirected = slug },
	})
	defer f.Close()

	out, err := f.Toggle(context.Background(), "ball")
	assert.ErrorIs(t, err, ErrAuthRequired)
	assert.Equal(t, optimistic.Noop, out)
	assert.Equal(t, "ball", redirected)
	assert.Empty(t, e.api.Calls())
	assert.False(t, f.IsFavorite("ball"))
}

func TestToggle_AddsPersistsAndBroadcasts(t *testing.T) {
	e := newEnv(t, newFakeAPI())
	f := New(e.api, fakeAuth{ok: true}, e.store, e.bus, Options{Log: logging.Discard()})
	defer f.Close()

	out, err := f.Toggle(context.Background(), "ball")
	require.NoError(t, err)
	assert.Equal(t, optimistic.Committed, out)
	assert.True(t, f.IsFavorite("ball"))
	assert.Equal(t, []string{"PUT ball"}, e.api.Calls())

	raw, ok := e.store.Get(localstore.KeyFavorites)
	require.True(t, ok)
	assert.JSONEq(t, `["ball"]`, raw)

	e.bus.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(e.emits))
}

func TestToggle_RemovesExisting(t *testing.T) {
	e := newEnv(t, newFakeAPI("ball"))
	f := New(e.api, fakeAuth{ok: true}, e.store, e.bus, Options{Log: logging.Discard()})
	defer f.Close()
	require.NoError(t, f.Load(context.Background()))
	assert.True(t, f.IsFavorite("ball"))

	_, err := f.Toggle(context.Background(), "ball")
	require.NoError(t, err)
	assert.False(t, f.IsFavorite("ball"))
	assert.Equal(t, []string{"DELETE ball"}, e.api.Calls())
	assert.Empty(t, f.Slugs())
}

func TestToggle_FailureRollsBackWithoutCacheOrBroadcast(t *testing.T) {
	a := newFakeAPI()
	a.failPut = errors.New("offline")
	e := newEnv(t, a)

	var shown []bool
	var mu sync.Mutex
	f := New(e.api, fakeAuth{ok: true}, e.store, e.bus, Options{
		Log: logging.Discard(),
		OnChange: func(slug string, st optimistic.State[bool]) {
			mu.Lock()
			shown = append(shown, st.Value)
			mu.Unlock()
		},
	})
	defer f.Close()

	out, err := f.Toggle(context.Background(), "ball")
	assert.Error(t, err)
	assert.Equal(t, optimistic.RolledBack, out)
	assert.False(t, f.IsFavorite("ball"))

	mu.Lock()
	assert.Equal(t, []bool{true, false}, shown)
	mu.Unlock()

	_, ok := e.store.Get(localstore.KeyFavorites)
	assert.False(t, ok)
	e.bus.Wait()
	assert.Equal(t, int32(0), atomic.LoadInt32(e.emits))
}

func TestNew_ReadsCache(t *testing.T) {
	e := newEnv(t, newFakeAPI())
	require.NoError(t, e.store.Set(localstore.KeyFavorites, `["ball","racket"]`))

	f := New(e.api, fakeAuth{ok: true}, e.store, e.bus, Options{Log: logging.Discard()})
	defer f.Close()

	assert.True(t, f.IsFavorite("racket"))
	assert.Equal(t, []string{"ball", "racket"}, f.Slugs())
}

func TestLoad_ServerWinsOverCache(t *testing.T) {
	e := newEnv(t, newFakeAPI("skates"))
	require.NoError(t, e.store.Set(localstore.KeyFavorites, `["ball"]`))

	f := New(e.api, fakeAuth{ok: true}, e.store, e.bus, Options{Log: logging.Discard()})
	defer f.Close()
	require.NoError(t, f.Load(context.Background()))

	assert.False(t, f.IsFavorite("ball"))
	assert.True(t, f.IsFavorite("skates"))
	raw, _ := e.store.Get(localstore.KeyFavorites)
	assert.JSONEq(t, `["skates"]`, raw)
}

func TestLoad_UnauthenticatedClearsCache(t *testing.T) {
	e := newEnv(t, newFakeAPI("ball"))
	require.NoError(t, e.store.Set(localstore.KeyFavorites, `["ball"]`))

	f := New(e.api, fakeAuth{ok: false}, e.store, e.bus, Options{Log: logging.Discard()})
	defer f.Close()
	require.NoError(t, f.Load(context.Background()))

	assert.False(t, f.IsFavorite("ball"))
	assert.Equal(t, 0, e.api.lists)
}

func TestBroadcastTriggersReload(t *testing.T) {
	a := newFakeAPI()
	e := newEnv(t, a)
	f := New(e.api, fakeAuth{ok: true}, e.store, e.bus, Options{Log: logging.Discard()})
	defer f.Close()

	a.mu.Lock()
	a.set["gloves"] = true
	a.mu.Unlock()

	e.bus.Emit(broadcast.FavoritesChanged)
	e.bus.Wait()
	assert.True(t, f.IsFavorite("gloves"))
}
