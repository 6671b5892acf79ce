package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/client/broadcast"
	"storefront/internal/client/localstore"
	"storefront/internal/client/session"
	"storefront/internal/logging"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

var jwtSeq int64

// テスト用の署名済みトークン
func jwtFor(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
		"jti": atomic.AddInt64(&jwtSeq, 1),
	})
	s, err := tok.SignedString([]byte("test"))
	require.NoError(t, err)
	return s
}

type seenRequest struct {
	Method string
	Path   string
	Auth   string
	Anon   string
	Body   []byte
}

// REST契約の最小フェイク
type backend struct {
	t      *testing.T
	mu     sync.Mutex
	seen   []seenRequest
	routes map[string]http.HandlerFunc
	srv    *httptest.Server
}

func newBackend(t *testing.T) *backend {
	b := &backend{t: t, routes: map[string]http.HandlerFunc{}}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = h
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	b.mu.Lock()
	b.seen = append(b.seen, seenRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Auth:   r.Header.Get("Authorization"),
		Anon:   r.Header.Get(AnonHeader),
		Body:   body,
	})
	h, ok := b.routes[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	h(w, r)
}

func (b *backend) requests(method, path string) []seenRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []seenRequest
	for _, s := range b.seen {
		if s.Method == method && s.Path == path {
			out = append(out, s)
		}
	}
	return out
}

func (b *backend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.seen)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type fixture struct {
	backend *backend
	store   *localstore.Memory
	session *session.Session
	bus     *broadcast.Broadcaster
	client  *Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := newBackend(t)
	store := localstore.NewMemory()
	sess, err := session.New(store, logging.Discard())
	require.NoError(t, err)
	bus := broadcast.New(logging.Discard())
	t.Cleanup(bus.Close)

	c := New(Config{
		BaseURL:   b.srv.URL + "/api",
		MediaBase: "http://media.test",
		Log:       logging.Discard(),
	}, sess, bus)

	return &fixture{backend: b, store: store, session: sess, bus: bus, client: c}
}

// /api/... のパスを登録
func (f *fixture) handle(method, path string, h http.HandlerFunc) {
	f.backend.handle(method, "/api"+path, h)
}

func (f *fixture) requests(method, path string) []seenRequest {
	return f.backend.requests(method, "/api"+path)
}

// 通知回数を数える
func (f *fixture) count(ch broadcast.Channel) func() int {
	var mu sync.Mutex
	n := 0
	f.bus.Subscribe(ch, func() {
		mu.Lock()
		n++
		mu.Unlock()
	})
	return func() int {
		f.bus.Wait()
		mu.Lock()
		defer mu.Unlock()
		return n
	}
}
