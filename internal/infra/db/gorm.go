package db

import (
	"storefront/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
// 一意制約違反は gorm.ErrDuplicatedKey に変換される。
func Connect(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
}

// Migrate はテーブルを作成・更新する
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Client{},
		&model.RefreshToken{},
		&model.Brand{},
		&model.Category{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Favorite{},
		&model.Cart{},
		&model.CartItem{},
		&model.Payment{},
	)
}
