package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FavoriteGormRepository struct {
	db *gorm.DB
}

// DI
func NewFavoriteGormRepository(db *gorm.DB) *FavoriteGormRepository {
	return &FavoriteGormRepository{db: db}
}

var _ repo.FavoriteRepository = (*FavoriteGormRepository)(nil)

func (r *FavoriteGormRepository) List(ctx context.Context, clientID int64) ([]model.Product, error) {
	var products []model.Product

	err := withCatalog(r.db.WithContext(ctx)).
		Joins("JOIN favorites ON favorites.product_id = products.id").
		Where("favorites.client_id = ? AND products.is_active = ?", clientID, true).
		Order("favorites.created_at desc").
		Find(&products).Error
	if err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// (client_id, product_id) が主キーなので重複は無視
func (r *FavoriteGormRepository) Add(ctx context.Context, clientID int64, productID int64) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Favorite{ClientID: clientID, ProductID: productID}).Error
}

func (r *FavoriteGormRepository) Remove(ctx context.Context, clientID int64, productID int64) error {
	return r.db.WithContext(ctx).
		Where("client_id = ? AND product_id = ?", clientID, productID).
		Delete(&model.Favorite{}).Error
}

func (r *FavoriteGormRepository) FavoritedIDs(ctx context.Context, clientID int64, productIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.Favorite{}).
		Where("client_id = ? AND product_id IN ?", clientID, productIDs).
		Pluck("product_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
