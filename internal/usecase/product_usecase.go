package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type ProductUsecase struct {
	productRepo  repo.ProductRepository
	favoriteRepo repo.FavoriteRepository
	url          URLFunc
	log          logrus.FieldLogger
}

// DI
func NewProductUsecase(cfg config.Config, productRepo repo.ProductRepository, favoriteRepo repo.FavoriteRepository, log logrus.FieldLogger) *ProductUsecase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ProductUsecase{
		productRepo:  productRepo,
		favoriteRepo: favoriteRepo,
		url:          PrefixURL(cfg.MediaURL),
		log:          log,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page    int
	Limit   int
	Q       string
	Sort    string
	IsNew    bool
	IsSale   bool
	Popular  bool
	InStock  bool
	Category string
	Brand    string
	Group    string
	Sizes    []string
}

// clientID が 0 なら匿名（is_favorited は全部 false）
func (u *ProductUsecase) ListPublicProducts(ctx context.Context, clientID int64, in ListProductsInput) (ProductPageDTO, error) {
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = defaultPageLimit
	}
	if in.Page < 1 {
		return ProductPageDTO{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > maxPageLimit {
		return ProductPageDTO{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductPageDTO{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	for _, f := range []string{in.Category, in.Brand, in.Group} {
		if len(f) > 100 {
			return ProductPageDTO{}, NewHTTPError(http.StatusBadRequest, "filter too long")
		}
	}
	if len(in.Sizes) > 50 {
		return ProductPageDTO{}, NewHTTPError(http.StatusBadRequest, "too many sizes")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductPageDTO{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        strings.TrimSpace(in.Q),
		Sort:     in.Sort,
		IsNew:    in.IsNew,
		IsSale:   in.IsSale,
		Popular:  in.Popular,
		InStock:  in.InStock,
		Category: strings.TrimSpace(in.Category),
		Brand:    strings.TrimSpace(in.Brand),
		Group:    strings.TrimSpace(in.Group),
		Sizes:    cleanSizes(in.Sizes),
	})
	if err != nil {
		u.log.WithError(err).Error("list products")
		return ProductPageDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	fav := u.favorited(ctx, clientID, items)
	out := ProductPageDTO{Count: total, Results: make([]ProductSummaryDTO, 0, len(items))}
	for _, p := range items {
		out.Results = append(out.Results, toProductSummaryDTO(p, fav[p.ID], u.url))
	}
	return out, nil
}

// 空白を落として重複を除く（空なら nil）
func cleanSizes(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, clientID int64, slug string) (ProductDTO, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ProductDTO{}, NewHTTPError(http.StatusBadRequest, "invalid slug")
	}

	p, err := u.productRepo.FindBySlug(ctx, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return ProductDTO{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ProductDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//非公開は見せない
	if !p.IsActive {
		return ProductDTO{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	fav := u.favorited(ctx, clientID, []model.Product{p})
	return toProductDTO(p, fav[p.ID], u.url), nil
}

// お気に入り取得に失敗しても一覧は返す
func (u *ProductUsecase) favorited(ctx context.Context, clientID int64, items []model.Product) map[int64]bool {
	if clientID <= 0 || len(items) == 0 {
		return map[int64]bool{}
	}
	ids := make([]int64, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	fav, err := u.favoriteRepo.FavoritedIDs(ctx, clientID, ids)
	if err != nil {
		u.log.WithError(err).Warn("favorite flags unavailable")
		return map[int64]bool{}
	}
	return fav
}
