package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Brand struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"type:varchar(255);not null;uniqueIndex"`
}

// 親をたどると「Обувь / Кроссовки」のようなパスになる
type Category struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	Name     string `gorm:"type:varchar(255);not null"`
	ParentID *int64 `gorm:"index"`
	Parent   *Category
}

func (c *Category) Path() string {
	var parts []string
	for cur := c; cur != nil; cur = cur.Parent {
		parts = append([]string{cur.Name}, parts...)
	}
	return strings.Join(parts, " / ")
}

type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	Slug        string          `gorm:"type:varchar(255);not null;uniqueIndex"`
	Name        string          `gorm:"type:varchar(255);not null"`
	Description string          `gorm:"type:text"`
	Image       string          `gorm:"type:varchar(255);not null;default:''"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	IsActive    bool            `gorm:"not null;default:false"`
	IsNew       bool            `gorm:"not null;default:false"`
	IsSale      bool            `gorm:"not null;default:false"`
	IsHit       bool            `gorm:"not null;default:false"` // 人気
	Sale        int             `gorm:"not null;default:0"`     // 割引率（%）
	BrandID     *int64          `gorm:"index"`
	Brand       *Brand
	CategoryID  *int64 `gorm:"index"`
	Category    *Category
	Variants    []ProductVariant `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time        `gorm:"not null;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"not null;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt   `gorm:"index"`
}

func (p Product) BrandName() string {
	if p.Brand == nil {
		return ""
	}
	return p.Brand.Name
}

func (p Product) CategoryPath() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Path()
}

// サイズ・色ごとの購入単位。カートはこれを持つ
type ProductVariant struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	ProductID    int64           `gorm:"not null;index"`
	Product      *Product        `gorm:"foreignKey:ProductID"`
	SizeType     string          `gorm:"type:varchar(50);not null;default:''"`
	SizeValue    string          `gorm:"type:varchar(50);not null;default:''"`
	Color        string          `gorm:"type:varchar(50);not null;default:''"`
	CurrentPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	IsActive     bool            `gorm:"not null;default:true"`
	IsOrder      bool            `gorm:"not null;default:false"` // 取り寄せ
}

func (v ProductVariant) SizeLabel() string {
	return strings.TrimSpace(strings.TrimSpace(v.SizeType) + " " + strings.TrimSpace(v.SizeValue))
}
