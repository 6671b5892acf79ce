package db

import (
	"context"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seed は商品が1件も無いときだけデモ用のカタログを入れる。入れた件数を返す
func Seed(ctx context.Context, db *gorm.DB) (int, error) {
	var n int64
	if err := db.WithContext(ctx).Model(&model.Product{}).Count(&n).Error; err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	created := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shoes := model.Category{Name: "Обувь"}
		if err := tx.Create(&shoes).Error; err != nil {
			return err
		}
		sneakers := model.Category{Name: "Кроссовки", ParentID: &shoes.ID}
		clothes := model.Category{Name: "Одежда"}
		for _, c := range []*model.Category{&sneakers, &clothes} {
			if err := tx.Create(c).Error; err != nil {
				return err
			}
		}

		brands := map[string]*model.Brand{"Nike": {Name: "Nike"}, "Adidas": {Name: "Adidas"}, "Demix": {Name: "Demix"}}
		for _, b := range brands {
			if err := tx.Create(b).Error; err != nil {
				return err
			}
		}

		for _, p := range catalog(brands, &sneakers, &clothes) {
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	return created, err
}

func catalog(brands map[string]*model.Brand, sneakers *model.Category, clothes *model.Category) []model.Product {
	d := decimal.RequireFromString
	sizes := func(price string, values ...string) []model.ProductVariant {
		out := make([]model.ProductVariant, 0, len(values))
		for _, v := range values {
			out = append(out, model.ProductVariant{SizeType: "EU", SizeValue: v, CurrentPrice: d(price), IsActive: true})
		}
		return out
	}

	return []model.Product{
		{
			Slug: "nike-air-zoom-pegasus", Name: "Nike Air Zoom Pegasus", Description: "Беговые кроссовки",
			Price: d("11990.00"), IsActive: true, IsNew: true, IsHit: true,
			BrandID: &brands["Nike"].ID, CategoryID: &sneakers.ID,
			Variants: sizes("11990.00", "41", "42", "43"),
		},
		{
			Slug: "adidas-runfalcon", Name: "Adidas Runfalcon", Description: "Кроссовки для ежедневных пробежек",
			Price: d("6490.00"), IsActive: true, IsSale: true, Sale: 20,
			BrandID: &brands["Adidas"].ID, CategoryID: &sneakers.ID,
			Variants: append(sizes("6490.00", "40", "42"), model.ProductVariant{SizeType: "EU", SizeValue: "44", CurrentPrice: d("6490.00"), IsActive: false}),
		},
		{
			Slug: "demix-training-tee", Name: "Футболка Demix", Description: "Тренировочная футболка",
			Price: d("1299.00"), IsActive: true, IsHit: true,
			BrandID: &brands["Demix"].ID, CategoryID: &clothes.ID,
			Variants: []model.ProductVariant{
				{SizeValue: "M", Color: "black", CurrentPrice: d("1299.00"), IsActive: true},
				{SizeValue: "L", Color: "black", CurrentPrice: d("1299.00"), IsActive: true},
			},
		},
		{
			Slug: "demix-windbreaker", Name: "Ветровка Demix", Description: "Снят с продажи",
			Price: d("3990.00"), IsActive: false,
			BrandID: &brands["Demix"].ID, CategoryID: &clothes.ID,
			Variants: []model.ProductVariant{{SizeValue: "M", CurrentPrice: d("3990.00"), IsActive: true}},
		},
	}
}
