package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 一覧検索
type ProductListQuery struct {
	Page    int
	Limit   int
	Q       string
	Sort    string // new | price_asc | price_desc
	IsNew   bool
	IsSale  bool
	Popular bool
	InStock bool // 有効な variant がある
	// 数字なら ID、それ以外は名前の部分一致
	Category string
	Brand    string
	// 親カテゴリ名（本人と子カテゴリが対象）
	Group string
	Sizes []string // variant の size_value
}

// 商品の取得だけを約束（公開中のもののみ）
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindBySlug(ctx context.Context, slug string) (model.Product, error)
	// variant と親商品（公開中のみ）
	FindVariant(ctx context.Context, variantID int64) (model.ProductVariant, error)
	FindVariants(ctx context.Context, variantIDs []int64) ([]model.ProductVariant, error)
}
