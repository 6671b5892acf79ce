package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// リフレッシュトークンの保存・取得・更新・削除
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	// 未使用・未失効のときだけ used_at を入れる（0件なら ErrRefreshTokenNotFound）
	MarkUsed(ctx context.Context, tokenID string, usedAt time.Time) error
	DeleteAllByClientID(ctx context.Context, clientID int64) error
	DeleteByID(ctx context.Context, tokenID string) error
}
