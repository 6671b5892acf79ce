package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

// DI
func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

var _ repo.PaymentRepository = (*PaymentGormRepository)(nil)

func (r *PaymentGormRepository) Create(ctx context.Context, p *model.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentGormRepository) FindByPaymentID(ctx context.Context, paymentID string) (model.Payment, error) {
	return r.findOne(ctx, "payment_id = ?", paymentID)
}

func (r *PaymentGormRepository) FindByOrderID(ctx context.Context, orderID string) (model.Payment, error) {
	return r.findOne(ctx, "order_id = ?", orderID)
}

func (r *PaymentGormRepository) FindLiveByCartID(ctx context.Context, cartID int64) (model.Payment, error) {
	live := []model.PaymentStatus{model.PaymentNew, model.PaymentFormShowed, model.PaymentAuthorizing}
	return r.findOne(ctx, "cart_id = ? AND status IN ?", cartID, live)
}

func (r *PaymentGormRepository) findOne(ctx context.Context, query string, args ...interface{}) (model.Payment, error) {
	var p model.Payment

	err := r.db.WithContext(ctx).
		Where(query, args...).
		Order("id desc").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payment{}, err
	}
	return p, nil
}

func (r *PaymentGormRepository) Update(ctx context.Context, p *model.Payment) error {
	return r.db.WithContext(ctx).Save(p).Error
}
