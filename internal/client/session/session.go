// Package session はトークンペアと匿名IDを保持する（グローバル変数は使わない）。
package session

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"storefront/internal/client/localstore"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	// refresh token が無い
	ErrNoRefreshToken = errors.New("session: no refresh token")
	// サーバーが返した access が JWT の形をしていない
	ErrMalformedToken = errors.New("session: malformed access token")
)

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// refresh token を使って新しいペアを取ってくる処理
type RefreshFunc func(ctx context.Context, refreshToken string) (TokenPair, error)

type Session struct {
	mu      sync.RWMutex
	access  string
	refresh string
	anonID  string

	store localstore.Store
	sf    singleflight.Group
	log   logrus.FieldLogger
}

// 保存済みのトークンと匿名IDを読み込む
func New(store localstore.Store, log logrus.FieldLogger) (*Session, error) {
	s := &Session{store: store, log: log}

	access, _ := store.Get(localstore.KeyAccess)
	refresh, _ := store.Get(localstore.KeyRefresh)

	//JWTの形でないaccessは捨てる
	if access != "" && !LooksLikeJWT(access) {
		log.Warn("dropping malformed stored access token")
		access = ""
		if err := store.Delete(localstore.KeyAccess); err != nil {
			return nil, errors.Wrap(err, "drop access token")
		}
	}
	s.access = access
	s.refresh = refresh

	anonID, ok := store.Get(localstore.KeyAnonID)
	if !ok || anonID == "" {
		anonID = uuid.NewString()
		if err := store.Set(localstore.KeyAnonID, anonID); err != nil {
			return nil, errors.Wrap(err, "persist anon id")
		}
	}
	s.anonID = anonID

	return s, nil
}

func (s *Session) Access() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

func (s *Session) AnonID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.anonID
}

func (s *Session) Authenticated() bool {
	return s.Access() != ""
}

// トークンを保存（refresh が空なら今のものを残す）
func (s *Session) Set(pair TokenPair) error {
	if !LooksLikeJWT(pair.Access) {
		return ErrMalformedToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if pair.Refresh == "" {
		pair.Refresh = s.refresh
	}
	s.access = pair.Access
	s.refresh = pair.Refresh

	if err := s.store.Set(localstore.KeyAccess, pair.Access); err != nil {
		return errors.Wrap(err, "persist access token")
	}
	if pair.Refresh != "" {
		if err := s.store.Set(localstore.KeyRefresh, pair.Refresh); err != nil {
			return errors.Wrap(err, "persist refresh token")
		}
	}
	return nil
}

// 両方のトークンを破棄（匿名IDは残す）
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = ""
	s.refresh = ""
	return s.store.Delete(localstore.KeyAccess, localstore.KeyRefresh)
}

// access の exp を検証なしで読む
func (s *Session) AccessExpiresAt() (time.Time, bool) {
	return ExpiresAt(s.Access())
}

// Refresh は同時に走る refresh を1本にまとめる。
// stale は 401 を受けたリクエストが送った access。既に別の呼び出しで
// 差し替わっていれば fn は呼ばずに今の access を返す。
// 失敗したら両方のトークンを捨てる。
func (s *Session) Refresh(ctx context.Context, stale string, fn RefreshFunc) (string, error) {
	if cur := s.Access(); cur != "" && cur != stale {
		return cur, nil
	}

	//呼び出し元が1つキャンセルしても他の待ち手は巻き込まない
	flightCtx := context.WithoutCancel(ctx)

	v, err, shared := s.sf.Do("refresh", func() (interface{}, error) {
		if cur := s.Access(); cur != "" && cur != stale {
			return cur, nil
		}

		rt := s.RefreshToken()
		if rt == "" {
			_ = s.Clear()
			return "", ErrNoRefreshToken
		}

		pair, err := fn(flightCtx, rt)
		if err == nil && !LooksLikeJWT(pair.Access) {
			err = ErrMalformedToken
		}
		if err != nil {
			if cerr := s.Clear(); cerr != nil {
				s.log.WithError(cerr).Warn("clear session after failed refresh")
			}
			return "", errors.Wrap(err, "refresh tokens")
		}

		if pair.Refresh == "" {
			pair.Refresh = rt
		}
		if err := s.Set(pair); err != nil {
			return "", err
		}
		s.log.Info("access token refreshed")
		return pair.Access, nil
	})
	if shared {
		s.log.Debug("joined in-flight token refresh")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// 3つの base64url セグメントから成るか
func LooksLikeJWT(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		if _, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(p, "=")); err != nil {
			return false
		}
	}
	return true
}

func ExpiresAt(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(exp), 0), true
}
