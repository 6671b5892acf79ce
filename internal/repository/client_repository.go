package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

// 会員が見つかりませんを統一
var ErrClientNotFound = errors.New("client not found")

// email / 電話番号の一意制約違反
var ErrDuplicate = errors.New("duplicate")

// 保存・取得を約束
type ClientRepository interface {
	//新規会員作成
	Create(ctx context.Context, client *model.Client) error
	FindByID(ctx context.Context, id int64) (*model.Client, error)
	FindByEmail(ctx context.Context, email string) (*model.Client, error)
	FindByPhone(ctx context.Context, phone string) (*model.Client, error)
	Update(ctx context.Context, client *model.Client) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, id int64) error
}
