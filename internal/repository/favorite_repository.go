package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type FavoriteRepository interface {
	// 新しい順
	List(ctx context.Context, clientID int64) ([]model.Product, error)
	// すでにあれば何もしない
	Add(ctx context.Context, clientID int64, productID int64) error
	Remove(ctx context.Context, clientID int64, productID int64) error
	// productIDs のうちお気に入りのもの
	FavoritedIDs(ctx context.Context, clientID int64, productIDs []int64) (map[int64]bool, error)
}
