package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain/model"
)

type CartRepository interface {
	GetOrCreateDraftByClientID(ctx context.Context, clientID int64) (model.Cart, error)
	FindDraftByClientID(ctx context.Context, clientID int64) (model.Cart, error)
	FindByID(ctx context.Context, cartID int64) (model.Cart, error)
	// variant / product / brand まで読み込む
	ListItems(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// qty で上書き（無ければ作る）
	SetItem(ctx context.Context, cartID int64, variantID int64, qty int) error
	// 無くてもエラーにしない
	DeleteItem(ctx context.Context, cartID int64, variantID int64) error
	SaveDelivery(ctx context.Context, cart model.Cart) error
	MarkOrdered(ctx context.Context, cartID int64, total decimal.Decimal, at time.Time) error
	ListOrdered(ctx context.Context, clientID int64) ([]model.Cart, error)
}

// 匿名カート（variant_id -> qty）
type AnonCartRepository interface {
	Get(ctx context.Context, anonID string) (map[int64]int, error)
	// qty <= 0 は削除
	Set(ctx context.Context, anonID string, variantID int64, qty int) error
	Delete(ctx context.Context, anonID string, variantID int64) error
	Clear(ctx context.Context, anonID string) error
}
