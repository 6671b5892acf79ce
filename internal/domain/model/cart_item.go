package model

// カートの明細（variantごとに1行）
type CartItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	CartID    int64           `gorm:"not null;uniqueIndex:ux_cart_variant"`
	VariantID int64           `gorm:"not null;uniqueIndex:ux_cart_variant"`
	Variant   *ProductVariant `gorm:"foreignKey:VariantID"`
	Quantity  int             `gorm:"not null"`
}
