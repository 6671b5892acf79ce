// Package localstore はクライアント側の永続キーバリュー（ブラウザの localStorage 相当）。
package localstore

import "sync"

// 保存に使うキー
const (
	KeyAccess         = "access"
	KeyRefresh        = "refresh"
	KeyAnonID         = "anon_id"
	KeyFavorites      = "favorites"
	KeyLastPaymentCtx = "last_payment_ctx"
)

// 保存・取得・削除の約束
type Store interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
	Delete(keys ...string) error
}

// メモリ実装（テスト / -ephemeral）
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: map[string]string{}}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Set(key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
