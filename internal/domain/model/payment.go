package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentNew         PaymentStatus = "NEW"
	PaymentFormShowed  PaymentStatus = "FORM_SHOWED"
	PaymentAuthorizing PaymentStatus = "AUTHORIZING"
	PaymentAuthorized  PaymentStatus = "AUTHORIZED"
	PaymentConfirmed   PaymentStatus = "CONFIRMED"
	PaymentRejected    PaymentStatus = "REJECTED"
	PaymentCanceled    PaymentStatus = "CANCELED"
)

// 決済画面に出したがまだ結果が出ていない状態
func (s PaymentStatus) Live() bool {
	switch s {
	case PaymentNew, PaymentFormShowed, PaymentAuthorizing:
		return true
	}
	return false
}

func (s PaymentStatus) Paid() bool {
	return s == PaymentConfirmed || s == PaymentAuthorized
}

// 決済ゲートウェイ側の1件。OrderID はこちらで採番（cart-<id>-<yyyymmddhhmmss>）
type Payment struct {
	ID         int64           `gorm:"primaryKey;autoIncrement"`
	CartID     int64           `gorm:"not null;index"`
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	OrderID    string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	PaymentID  string          `gorm:"type:varchar(64);not null;default:'';index"`
	Status     PaymentStatus   `gorm:"type:varchar(32);not null;index"`
	PaymentURL string          `gorm:"type:text;not null;default:''"`
	CreatedAt  time.Time       `gorm:"not null;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"not null;autoUpdateTime"`
}
