package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 一覧・詳細で使う関連
func withCatalog(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Brand").
		Preload("Category.Parent.Parent").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("id asc")
		})
}

// 公開商品のみを、検索/フラグ/ソート/ページング付きで返す。
func (r *ProductGormRepository) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Product{}).Where("is_active = ?", true)

	// q nameを対象
	if s := strings.TrimSpace(q.Q); s != "" {
		tx = tx.Where("name ILIKE ?", contains(s))
	}
	if q.IsNew {
		tx = tx.Where("is_new = ?", true)
	}
	if q.IsSale {
		tx = tx.Where("is_sale = ?", true)
	}
	if q.Popular {
		tx = tx.Where("is_hit = ?", true)
	}
	if q.InStock {
		tx = tx.Where("EXISTS (SELECT 1 FROM product_variants pv WHERE pv.product_id = products.id AND pv.is_active = ?)", true)
	}
	if len(q.Sizes) > 0 {
		tx = tx.Where("EXISTS (SELECT 1 FROM product_variants pv WHERE pv.product_id = products.id AND pv.is_active = ? AND pv.size_value IN ?)", true, q.Sizes)
	}
	if b := q.Brand; b != "" {
		if id, err := strconv.ParseInt(b, 10, 64); err == nil {
			tx = tx.Where("brand_id = ?", id)
		} else {
			tx = tx.Where("brand_id IN (SELECT id FROM brands WHERE name ILIKE ?)", contains(b))
		}
	}
	tx = filterCategory(tx, q.Category, q.Group)

	//total（件数）
	if err := tx.Count(&total).Error; err != nil {
		return []model.Product{}, 0, err
	}

	//sort
	switch q.Sort {
	case "price_asc":
		tx = tx.Order("price asc").Order("id asc")
	case "price_desc":
		tx = tx.Order("price desc").Order("id desc")
	default:
		tx = tx.Order("created_at desc").Order("id desc")
	}

	offset := (q.Page - 1) * q.Limit
	if err := withCatalog(tx).Offset(offset).Limit(q.Limit).Find(&products).Error; err != nil {
		return []model.Product{}, 0, err
	}

	return products, total, nil
}

// category / group の組み合わせ
//   - category のみ: そのカテゴリ
//   - group のみ: 親カテゴリと子カテゴリ
//   - 両方: group の子で category に一致するもの。なければ両方の名前を含むフラットなカテゴリ
func filterCategory(tx *gorm.DB, category, group string) *gorm.DB {
	if category != "" {
		if id, err := strconv.ParseInt(category, 10, 64); err == nil {
			return tx.Where("category_id = ?", id)
		}
	}

	switch {
	case category != "" && group != "":
		return tx.Where(`category_id IN (
			SELECT c.id FROM categories c JOIN categories p ON p.id = c.parent_id
			WHERE c.name ILIKE ? AND p.name ILIKE ?
			UNION
			SELECT c.id FROM categories c WHERE c.name ILIKE ? AND c.name ILIKE ?
		)`, contains(category), contains(group), contains(category), contains(group))
	case category != "":
		return tx.Where("category_id IN (SELECT id FROM categories WHERE name ILIKE ?)", contains(category))
	case group != "":
		return tx.Where(`category_id IN (
			SELECT id FROM categories
			WHERE name ILIKE ? OR parent_id IN (SELECT id FROM categories WHERE name ILIKE ?)
		)`, contains(group), contains(group))
	}
	return tx
}

func contains(s string) string {
	return "%" + s + "%"
}

func (r *ProductGormRepository) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	var p model.Product
	err := withCatalog(r.db.WithContext(ctx)).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 非公開商品の variant は見つからない扱い
func (r *ProductGormRepository) FindVariant(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	vs, err := r.FindVariants(ctx, []int64{variantID})
	if err != nil {
		return model.ProductVariant{}, err
	}
	if len(vs) == 0 {
		return model.ProductVariant{}, repo.ErrNotFound
	}
	return vs[0], nil
}

func (r *ProductGormRepository) FindVariants(ctx context.Context, variantIDs []int64) ([]model.ProductVariant, error) {
	if len(variantIDs) == 0 {
		return []model.ProductVariant{}, nil
	}

	var vs []model.ProductVariant
	err := r.db.WithContext(ctx).
		Joins("JOIN products ON products.id = product_variants.product_id").
		Where("product_variants.id IN ?", variantIDs).
		Where("products.is_active = ? AND products.deleted_at IS NULL", true).
		Preload("Product.Brand").
		Order("product_variants.id asc").
		Find(&vs).Error
	if err != nil {
		return nil, err
	}
	return vs, nil
}
