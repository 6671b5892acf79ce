package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	domainrepo "storefront/internal/repository"

	"gorm.io/gorm"
)

type clientGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewClientGormRepository(db *gorm.DB) domainrepo.ClientRepository {
	return &clientGormRepository{db: db}
}

func (r *clientGormRepository) Create(ctx context.Context, client *model.Client) error {
	if err := r.db.WithContext(ctx).Create(client).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *clientGormRepository) FindByID(ctx context.Context, id int64) (*model.Client, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *clientGormRepository) FindByEmail(ctx context.Context, email string) (*model.Client, error) {
	return r.findOne(ctx, "lower(email) = lower(?)", email)
}

func (r *clientGormRepository) FindByPhone(ctx context.Context, phone string) (*model.Client, error) {
	return r.findOne(ctx, "phone_number = ?", phone)
}

func (r *clientGormRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.Client, error) {
	var c model.Client

	err := r.db.WithContext(ctx).
		Where(query, arg).
		First(&c).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *clientGormRepository) Update(ctx context.Context, client *model.Client) error {
	if err := r.db.WithContext(ctx).Save(client).Error; err != nil {
		return translate(err)
	}
	return nil
}

// token_versionを+1 します。
func (r *clientGormRepository) IncrementTokenVersion(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Client{}).
		Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + ?", 1))

	if res.Error != nil {
		return res.Error
	}

	// 0件更新は「対象がない」
	if res.RowsAffected == 0 {
		return domainrepo.ErrClientNotFound
	}
	return nil
}

// TranslateError 有効時の一意制約違反をドメインのエラーへ
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainrepo.ErrDuplicate
	}
	return err
}
