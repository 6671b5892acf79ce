package usecase

import (
	"sort"
	"strings"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 金額は小数2桁の文字列で返す
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// 相対パスを公開URLにする（空なら空）
type URLFunc func(rel string) string

func PrefixURL(prefix string) URLFunc {
	return func(rel string) string {
		if rel == "" {
			return ""
		}
		if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") {
			return rel
		}
		return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(rel, "/")
	}
}

type TokenPairDTO struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type ProfileDTO struct {
	Surname     string `json:"surname"`
	Name        string `json:"name"`
	Patronymic  string `json:"patronymic"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Birthday    string `json:"birthday,omitempty"`
	Image       string `json:"image"`
}

func toProfileDTO(c *model.Client, url URLFunc) ProfileDTO {
	dto := ProfileDTO{
		Surname:     c.Surname,
		Name:        c.Name,
		Patronymic:  c.Patronymic,
		PhoneNumber: c.Phone(),
		Email:       c.Email,
		Image:       url(c.Image),
	}
	if c.Birthday != nil {
		dto.Birthday = c.Birthday.Format(dateLayout)
	}
	return dto
}

type VariantDTO struct {
	ID           int64  `json:"id"`
	SizeType     string `json:"size_type"`
	SizeValue    string `json:"size_value"`
	Color        string `json:"color"`
	CurrentPrice string `json:"current_price"`
	IsActive     bool   `json:"is_active"`
	IsOrder      bool   `json:"is_order"`
}

type ProductDTO struct {
	ID          int64        `json:"id"`
	Slug        string       `json:"slug"`
	Name        string       `json:"name"`
	Brand       string       `json:"brand"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Image       string       `json:"image"`
	Price       string       `json:"price"`
	IsActive    bool         `json:"is_active"`
	IsNew       bool         `json:"is_new"`
	IsSale      bool         `json:"is_sale"`
	IsHit       bool         `json:"is_hit"`
	Sale        int          `json:"sale"`
	Variants    []VariantDTO `json:"variants"`
	IsFavorited bool         `json:"is_favorited"`
}

type ProductSummaryDTO struct {
	ID               int64    `json:"id"`
	Slug             string   `json:"slug"`
	Name             string   `json:"name"`
	Price            string   `json:"price"`
	MinPrice         string   `json:"min_price"`
	Image            string   `json:"image"`
	IsFavorited      bool     `json:"is_favorited"`
	IsNew            bool     `json:"is_new"`
	IsSale           bool     `json:"is_sale"`
	IsHit            bool     `json:"is_hit"`
	Sale             int      `json:"sale"`
	CategoryPath     string   `json:"category_path"`
	Sizes            []string `json:"sizes"`
	DefaultVariantID *int64   `json:"default_variant_id"`
}

type ProductPageDTO struct {
	Count   int64               `json:"count"`
	Results []ProductSummaryDTO `json:"results"`
}

func toProductDTO(p model.Product, favorited bool, url URLFunc) ProductDTO {
	vs := make([]VariantDTO, 0, len(p.Variants))
	for _, v := range p.Variants {
		vs = append(vs, VariantDTO{
			ID:           v.ID,
			SizeType:     v.SizeType,
			SizeValue:    v.SizeValue,
			Color:        v.Color,
			CurrentPrice: money(v.CurrentPrice),
			IsActive:     v.IsActive,
			IsOrder:      v.IsOrder,
		})
	}
	return ProductDTO{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name,
		Brand:       p.BrandName(),
		Category:    p.CategoryPath(),
		Description: p.Description,
		Image:       url(p.Image),
		Price:       money(p.Price),
		IsActive:    p.IsActive,
		IsNew:       p.IsNew,
		IsSale:      p.IsSale,
		IsHit:       p.IsHit,
		Sale:        p.Sale,
		Variants:    vs,
		IsFavorited: favorited,
	}
}

// 一覧用。min_price / sizes / default_variant_id は有効な variant から
func toProductSummaryDTO(p model.Product, favorited bool, url URLFunc) ProductSummaryDTO {
	dto := ProductSummaryDTO{
		ID:           p.ID,
		Slug:         p.Slug,
		Name:         p.Name,
		Price:        money(p.Price),
		MinPrice:     money(p.Price),
		Image:        url(p.Image),
		IsFavorited:  favorited,
		IsNew:        p.IsNew,
		IsSale:       p.IsSale,
		IsHit:        p.IsHit,
		Sale:         p.Sale,
		CategoryPath: p.CategoryPath(),
		Sizes:        []string{},
	}

	var min *decimal.Decimal
	seen := map[string]struct{}{}
	for _, v := range p.Variants {
		if !v.IsActive {
			continue
		}
		if dto.DefaultVariantID == nil {
			id := v.ID
			dto.DefaultVariantID = &id
		}
		if min == nil || v.CurrentPrice.LessThan(*min) {
			price := v.CurrentPrice
			min = &price
		}
		if l := v.SizeLabel(); l != "" {
			if _, ok := seen[l]; !ok {
				seen[l] = struct{}{}
				dto.Sizes = append(dto.Sizes, l)
			}
		}
	}
	if min != nil {
		dto.MinPrice = money(*min)
	}
	return dto
}

type CartProductDTO struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Image string `json:"image"`
	Brand string `json:"brand"`
}

type CartLineDTO struct {
	VariantID int64          `json:"variant_id"`
	Qty       int            `json:"qty"`
	Price     string         `json:"price"`
	LineTotal string         `json:"line_total"`
	Product   CartProductDTO `json:"product"`
}

type CartDTO struct {
	Items []CartLineDTO `json:"items"`
	Total string        `json:"total"`
}

// variant_id -> qty から明細を組み立てる。非公開商品・数量0は落とす
func buildCart(variants []model.ProductVariant, qty map[int64]int, url URLFunc) (CartDTO, decimal.Decimal) {
	sort.Slice(variants, func(i, j int) bool { return variants[i].ID < variants[j].ID })

	out := CartDTO{Items: []CartLineDTO{}}
	total := decimal.Zero
	for _, v := range variants {
		q := qty[v.ID]
		if q <= 0 || v.Product == nil || !v.Product.IsActive {
			continue
		}
		line := v.CurrentPrice.Mul(decimal.NewFromInt(int64(q)))
		total = total.Add(line)
		out.Items = append(out.Items, CartLineDTO{
			VariantID: v.ID,
			Qty:       q,
			Price:     money(v.CurrentPrice),
			LineTotal: money(line),
			Product: CartProductDTO{
				Slug:  v.Product.Slug,
				Name:  v.Product.Name,
				Image: url(v.Product.Image),
				Brand: v.Product.BrandName(),
			},
		})
	}
	out.Total = money(total)
	return out, total
}

type OrderSummaryDTO struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`
	Date   string `json:"date"`
	Status string `json:"status"`
	Total  string `json:"total"`
}

type OrderDetailDTO struct {
	OrderSummaryDTO
	DeliveryType   string        `json:"delivery_type"`
	Address        string        `json:"shipping_address"`
	AddressComment string        `json:"address_comment"`
	PickupID       string        `json:"pickup_id"`
	Items          []CartLineDTO `json:"items"`
}

func toOrderSummaryDTO(c model.Cart) OrderSummaryDTO {
	dto := OrderSummaryDTO{
		ID:     c.ID,
		Number: formatOrderNumber(c.ID),
		Status: string(c.Status),
		Total:  money(c.Total),
	}
	if c.OrderedAt != nil {
		dto.Date = c.OrderedAt.Format("02.01.2006")
	}
	return dto
}

type PaymentInitDTO struct {
	PaymentURL string `json:"payment_url"`
	PaymentID  string `json:"payment_id"`
	OrderID    string `json:"order_id"`
	Amount     int64  `json:"amount"`
	Status     string `json:"status"`
}

type PaymentSyncDTO struct {
	Status    string `json:"status"`
	Success   bool   `json:"success"`
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	CartID    int64  `json:"cart_id"`
	Total     string `json:"total"`
}
