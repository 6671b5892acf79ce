package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

var ErrProductNotFound = NewHTTPError(http.StatusNotFound, "product_not_found")

type FavoriteUsecase struct {
	productRepo  repo.ProductRepository
	favoriteRepo repo.FavoriteRepository
	url          URLFunc
}

func NewFavoriteUsecase(cfg config.Config, productRepo repo.ProductRepository, favoriteRepo repo.FavoriteRepository) *FavoriteUsecase {
	return &FavoriteUsecase{
		productRepo:  productRepo,
		favoriteRepo: favoriteRepo,
		url:          PrefixURL(cfg.MediaURL),
	}
}

// 新しい順。非公開になった商品は出さない
func (u *FavoriteUsecase) List(ctx context.Context, clientID int64) (ProductPageDTO, error) {
	if clientID <= 0 {
		return ProductPageDTO{}, ErrUnauthorized
	}
	items, err := u.favoriteRepo.List(ctx, clientID)
	if err != nil {
		return ProductPageDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	out := ProductPageDTO{Results: make([]ProductSummaryDTO, 0, len(items))}
	for _, p := range items {
		if !p.IsActive {
			continue
		}
		out.Results = append(out.Results, toProductSummaryDTO(p, true, u.url))
	}
	out.Count = int64(len(out.Results))
	return out, nil
}

func (u *FavoriteUsecase) Add(ctx context.Context, clientID int64, slug string) error {
	p, err := u.product(ctx, clientID, slug)
	if err != nil {
		return err
	}
	if err := u.favoriteRepo.Add(ctx, clientID, p.ID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 無くても成功
func (u *FavoriteUsecase) Remove(ctx context.Context, clientID int64, slug string) error {
	p, err := u.product(ctx, clientID, slug)
	if err != nil {
		if he, ok := AsHTTPError(err); ok && he.Status == http.StatusNotFound {
			return nil
		}
		return err
	}
	if err := u.favoriteRepo.Remove(ctx, clientID, p.ID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *FavoriteUsecase) product(ctx context.Context, clientID int64, slug string) (model.Product, error) {
	if clientID <= 0 {
		return model.Product{}, ErrUnauthorized
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return model.Product{}, ErrProductNotFound
	}
	p, err := u.productRepo.FindBySlug(ctx, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, ErrProductNotFound
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return model.Product{}, ErrProductNotFound
	}
	return p, nil
}
