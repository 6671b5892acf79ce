package api

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// カート明細の商品情報
type CartProduct struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Image string `json:"image"`
	Brand string `json:"brand"`
}

type CartLine struct {
	VariantID int64           `json:"variant_id"`
	Quantity  int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Product   CartProduct     `json:"product"`
}

// GET /orders/ のレスポンス（数量0の明細は含まない）
type Cart struct {
	Lines []CartLine      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

func (c Cart) Quantity(variantID int64) int {
	for _, l := range c.Lines {
		if l.VariantID == variantID {
			return l.Quantity
		}
	}
	return 0
}

func (c Cart) QuantityMap() map[int64]int {
	m := make(map[int64]int, len(c.Lines))
	for _, l := range c.Lines {
		if l.Quantity > 0 {
			m[l.VariantID] = l.Quantity
		}
	}
	return m
}

// 明細数（ヘッダーのバッジ）
func (c Cart) Count() int {
	return len(c.Lines)
}

func (c Cart) Empty() bool {
	return len(c.Lines) == 0
}

type Variant struct {
	ID        int64           `json:"id"`
	SizeType  string          `json:"size_type"`
	SizeValue string          `json:"size_value"`
	Color     string          `json:"color"`
	Price     decimal.Decimal `json:"current_price"`
	IsActive  bool            `json:"is_active"`
	IsOrder   bool            `json:"is_order"`
}

func (v Variant) SizeLabel() string {
	return strings.TrimSpace(strings.TrimSpace(v.SizeType) + " " + strings.TrimSpace(v.SizeValue))
}

// 商品詳細
type Product struct {
	ID          int64           `json:"id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"is_active"`
	IsNew       bool            `json:"is_new"`
	IsSale      bool            `json:"is_sale"`
	IsHit       bool            `json:"is_hit"`
	Sale        int             `json:"sale"`
	Variants    []Variant       `json:"variants"`
	IsFavorited bool            `json:"is_favorited"`
}

// 購入可能なバリエーションを返す。
// sizeLabel が空なら最初の有効なもの。同じラベルが複数あれば先頭を使う。
func (p Product) PurchasableVariant(sizeLabel string) (Variant, bool) {
	sizeLabel = strings.TrimSpace(sizeLabel)
	for _, v := range p.Variants {
		if sizeLabel != "" && v.SizeLabel() != sizeLabel && strings.TrimSpace(v.SizeValue) != sizeLabel {
			continue
		}
		if sizeLabel != "" && !v.IsActive {
			//同じラベルの先頭が無効ならそのサイズは買えない
			return Variant{}, false
		}
		if v.IsActive {
			return v, true
		}
	}
	return Variant{}, false
}

// サイズ選択肢（有効なものだけ、重複なし）
func (p Product) SizeLabels() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(p.Variants))
	for _, v := range p.Variants {
		if !v.IsActive {
			continue
		}
		l := v.SizeLabel()
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// 商品一覧の1件
type ProductSummary struct {
	ID               int64           `json:"id"`
	Slug             string          `json:"slug"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	MinPrice         decimal.Decimal `json:"min_price"`
	Image            string          `json:"image"`
	IsFavorited      bool            `json:"is_favorited"`
	IsNew            bool            `json:"is_new"`
	IsSale           bool            `json:"is_sale"`
	IsHit            bool            `json:"is_hit"`
	Sale             int             `json:"sale"`
	CategoryPath     string          `json:"category_path"`
	Sizes            []string        `json:"sizes"`
	DefaultVariantID *int64          `json:"default_variant_id"`
}

type ProductPage struct {
	Count   int              `json:"count"`
	Results []ProductSummary `json:"results"`
}

// GET /clients/me/
type Profile struct {
	Surname     string `json:"surname"`
	Name        string `json:"name"`
	Patronymic  string `json:"patronymic"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Birthday    string `json:"birthday,omitempty"`
	Image       string `json:"image"`
}

// PATCH /clients/me/（nil は変更しない）
type ProfilePatch struct {
	Surname     *string `json:"surname,omitempty"`
	Name        *string `json:"name,omitempty"`
	Patronymic  *string `json:"patronymic,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Email       *string `json:"email,omitempty"`
	Birthday    *string `json:"birthday,omitempty"`
}

// POST /clients/login/（login はメールまたは電話番号）
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type Registration struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Password    string `json:"password"`
	Name        string `json:"name,omitempty"`
	Surname     string `json:"surname,omitempty"`
}

type OrderSummary struct {
	ID     int64           `json:"id"`
	Number string          `json:"number"`
	Date   string          `json:"date"`
	Status string          `json:"status"`
	Total  decimal.Decimal `json:"total"`
}

// GET /orders/history/{id}/
type OrderDetail struct {
	OrderSummary
	DeliveryType   DeliveryType `json:"delivery_type"`
	Address        string       `json:"shipping_address"`
	AddressComment string       `json:"address_comment"`
	PickupID       string       `json:"pickup_id"`
	Lines          []CartLine   `json:"items"`
}

type DeliveryType string

const (
	DeliveryPickup  DeliveryType = "pickup"
	DeliveryCourier DeliveryType = "delivery"
)

type CheckoutRequest struct {
	DeliveryType   DeliveryType `json:"delivery_type"`
	Address        string       `json:"address,omitempty"`
	AddressComment string       `json:"address_comment,omitempty"`
	PickupID       string       `json:"pickup_id,omitempty"`
}

// 数値でも文字列でも受けるID
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = FlexID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }

type PaymentInit struct {
	PaymentURL string `json:"payment_url"`
	PaymentID  FlexID `json:"payment_id"`
	OrderID    FlexID `json:"order_id"`
}

type PaymentState struct {
	Status  string `json:"status"`
	Success bool   `json:"success"`
}

// 支払い完了とみなす状態か
func (s PaymentState) Paid() bool {
	if s.Success {
		return true
	}
	switch strings.ToUpper(s.Status) {
	case "CONFIRMED", "AUTHORIZED":
		return true
	}
	return false
}
