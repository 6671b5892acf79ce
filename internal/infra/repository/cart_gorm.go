package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

var _ repo.CartRepository = (*CartGormRepository)(nil)

// 会員のdraftカートを取得し、無ければ作成
func (r *CartGormRepository) GetOrCreateDraftByClientID(ctx context.Context, clientID int64) (model.Cart, error) {
	var cart model.Cart

	//トランザクションで探す→無ければ作る
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("client_id = ? AND status = ?", clientID, model.CartStatusDraft).
			Order("id desc").
			First(&cart).Error

		if findErr == nil {
			return nil
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		// 無ければ作る
		newCart := model.Cart{
			ClientID: clientID,
			Status:   model.CartStatusDraft,
			Total:    decimal.Zero,
		}
		if err := tx.Create(&newCart).Error; err != nil {
			retryErr := tx.
				Where("client_id = ? AND status = ?", clientID, model.CartStatusDraft).
				Order("id desc").
				First(&cart).Error
			if retryErr == nil {
				return nil
			}
			return err
		}

		cart = newCart
		return nil
	})
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func (r *CartGormRepository) FindDraftByClientID(ctx context.Context, clientID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("client_id = ? AND status = ?", clientID, model.CartStatusDraft).
		Order("id desc").
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func (r *CartGormRepository) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).First(&cart, cartID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// カート明細を一覧取得
func (r *CartGormRepository) ListItems(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Preload("Variant.Product.Brand").
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}
	return items, nil
}

// 数量は加算ではなく上書き
func (r *CartGormRepository) SetItem(ctx context.Context, cartID int64, variantID int64, qty int) error {
	if qty <= 0 {
		return errors.New("invalid quantity")
	}

	item := model.CartItem{CartID: cartID, VariantID: variantID, Quantity: qty}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "variant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity"}),
		}).
		Create(&item).Error
}

func (r *CartGormRepository) DeleteItem(ctx context.Context, cartID int64, variantID int64) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND variant_id = ?", cartID, variantID).
		Delete(&model.CartItem{}).Error
}

// 受け取り方法を保存
func (r *CartGormRepository) SaveDelivery(ctx context.Context, cart model.Cart) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cart.ID).
		Updates(map[string]interface{}{
			"delivery_type":   cart.DeliveryType,
			"address":         cart.Address,
			"address_comment": cart.AddressComment,
			"pickup_id":       cart.PickupID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// draftのときだけorderedにする（二重確定しない）
func (r *CartGormRepository) MarkOrdered(ctx context.Context, cartID int64, total decimal.Decimal, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ? AND status = ?", cartID, model.CartStatusDraft).
		Updates(map[string]interface{}{
			"status":     model.CartStatusOrdered,
			"total":      total,
			"ordered_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CartGormRepository) ListOrdered(ctx context.Context, clientID int64) ([]model.Cart, error) {
	var carts []model.Cart

	if err := r.db.WithContext(ctx).
		Where("client_id = ? AND status = ?", clientID, model.CartStatusOrdered).
		Order("ordered_at desc").
		Order("id desc").
		Find(&carts).Error; err != nil {
		return []model.Cart{}, err
	}
	return carts, nil
}
