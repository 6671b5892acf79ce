package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	FindByPaymentID(ctx context.Context, paymentID string) (model.Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (model.Payment, error)
	// 決済画面に出したまま結果待ちの最新1件
	FindLiveByCartID(ctx context.Context, cartID int64) (model.Payment, error)
	Update(ctx context.Context, p *model.Payment) error
}
