// Package auth は認証まわりの部品（ハッシュ・JWT・ID・時計）。
package auth

import (
	"time"

	"github.com/google/uuid"
)

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(clientID int64, tokenVersion int, now time.Time) (token string, expiresAt time.Time, err error)
}

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
