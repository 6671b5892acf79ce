package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartStatus string

const (
	CartStatusDraft   CartStatus = "draft"
	CartStatusOrdered CartStatus = "ordered"
)

type DeliveryType string

const (
	DeliveryPickup  DeliveryType = "pickup"
	DeliveryCourier DeliveryType = "delivery"
)

// 1会員につきdraftは1つ。支払いが確定したらorderedになり履歴に残る
type Cart struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID       int64           `gorm:"not null;index" json:"client_id"`
	Status         CartStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	DeliveryType   DeliveryType    `gorm:"type:varchar(20);not null;default:''" json:"delivery_type"`
	Address        string          `gorm:"type:text;not null;default:''" json:"address"`
	AddressComment string          `gorm:"type:text;not null;default:''" json:"address_comment"`
	PickupID       string          `gorm:"type:varchar(50);not null;default:''" json:"pickup_id"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total"`
	OrderedAt      *time.Time      `json:"ordered_at"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
