package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func catalogProduct() model.Product {
	return model.Product{
		ID:       11,
		Slug:     "nike-air",
		Name:     "Nike Air",
		Image:    "products/air.jpg",
		Price:    decimal.RequireFromString("9990"),
		IsActive: true,
		Brand:    &model.Brand{Name: "Nike"},
		Category: &model.Category{Name: "Кроссовки", Parent: &model.Category{Name: "Обувь"}},
		Variants: []model.ProductVariant{
			{ID: 1, SizeType: "EU", SizeValue: "41", CurrentPrice: decimal.RequireFromString("9990"), IsActive: false},
			{ID: 2, SizeType: "EU", SizeValue: "42", CurrentPrice: decimal.RequireFromString("8990"), IsActive: true},
			{ID: 3, SizeType: "EU", SizeValue: "43", CurrentPrice: decimal.RequireFromString("9490"), IsActive: true},
		},
	}
}

func newProductUC() (*usecase.ProductUsecase, *MockProductRepository, *MockFavoriteRepository) {
	products := new(MockProductRepository)
	favs := new(MockFavoriteRepository)
	cfg := config.Config{MediaURL: "/media/"}
	return usecase.NewProductUsecase(cfg, products, favs, nil), products, favs
}

func TestProductUsecase_List_Defaults(t *testing.T) {
	uc, products, favs := newProductUC()

	products.On("ListPublic", mock.Anything, repo.ProductListQuery{Page: 1, Limit: 20, Q: "air", IsSale: true}).
		Return([]model.Product{catalogProduct()}, int64(1), nil)

	page, err := uc.ListPublicProducts(context.Background(), 0, usecase.ListProductsInput{Q: " air ", IsSale: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Count)
	require.Len(t, page.Results, 1)

	got := page.Results[0]
	assert.Equal(t, "8990.00", got.MinPrice)
	assert.Equal(t, []string{"EU 42", "EU 43"}, got.Sizes)
	require.NotNil(t, got.DefaultVariantID)
	assert.Equal(t, int64(2), *got.DefaultVariantID)
	assert.Equal(t, "Обувь / Кроссовки", got.CategoryPath)
	assert.Equal(t, "/media/products/air.jpg", got.Image)
	assert.False(t, got.IsFavorited)

	// 匿名ならお気に入りは見ない
	favs.AssertNotCalled(t, "FavoritedIDs", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductUsecase_List_CatalogFilters(t *testing.T) {
	uc, products, _ := newProductUC()

	want := repo.ProductListQuery{
		Page: 1, Limit: 20,
		InStock:  true,
		Category: "Кроссовки",
		Brand:    "3",
		Group:    "Обувь",
		Sizes:    []string{"41", "42"},
	}
	products.On("ListPublic", mock.Anything, want).Return([]model.Product{}, int64(0), nil)

	_, err := uc.ListPublicProducts(context.Background(), 0, usecase.ListProductsInput{
		InStock:  true,
		Category: " Кроссовки ",
		Brand:    "3",
		Group:    "Обувь ",
		Sizes:    []string{" 41", "", "42", "41"},
	})
	require.NoError(t, err)
	products.AssertExpectations(t)
}

func TestProductUsecase_List_Invalid(t *testing.T) {
	uc, _, _ := newProductUC()

	cases := []usecase.ListProductsInput{
		{Page: -1},
		{Limit: 101},
		{Sort: "random"},
		{Category: strings.Repeat("x", 101)},
		{Sizes: make([]string, 51)},
	}
	for _, in := range cases {
		_, err := uc.ListPublicProducts(context.Background(), 0, in)
		he, ok := usecase.AsHTTPError(err)
		require.True(t, ok)
		assert.Equal(t, 400, he.Status)
	}
}

func TestProductUsecase_List_FavoritesFailureStillLists(t *testing.T) {
	uc, products, favs := newProductUC()
	products.On("ListPublic", mock.Anything, mock.Anything).Return([]model.Product{catalogProduct()}, int64(1), nil)
	favs.On("FavoritedIDs", mock.Anything, int64(7), []int64{11}).Return(nil, errors.New("db down"))

	page, err := uc.ListPublicProducts(context.Background(), 7, usecase.ListProductsInput{})
	require.NoError(t, err)
	assert.False(t, page.Results[0].IsFavorited)
}

func TestProductUsecase_Detail(t *testing.T) {
	uc, products, favs := newProductUC()
	products.On("FindBySlug", mock.Anything, "nike-air").Return(catalogProduct(), nil)
	products.On("FindBySlug", mock.Anything, "gone").Return(model.Product{}, repo.ErrNotFound)
	favs.On("FavoritedIDs", mock.Anything, int64(7), []int64{11}).Return(map[int64]bool{11: true}, nil)

	p, err := uc.GetProductDetail(context.Background(), 7, "nike-air")
	require.NoError(t, err)
	assert.True(t, p.IsFavorited)
	assert.Equal(t, "Nike", p.Brand)
	assert.Len(t, p.Variants, 3)
	assert.Equal(t, "8990.00", p.Variants[1].CurrentPrice)

	_, err = uc.GetProductDetail(context.Background(), 7, "gone")
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 404, he.Status)
}

func TestFavoriteUsecase(t *testing.T) {
	products := new(MockProductRepository)
	favs := new(MockFavoriteRepository)
	uc := usecase.NewFavoriteUsecase(config.Config{MediaURL: "/media/"}, products, favs)
	ctx := context.Background()

	inactive := catalogProduct()
	inactive.ID = 12
	inactive.IsActive = false

	products.On("FindBySlug", mock.Anything, "nike-air").Return(catalogProduct(), nil)
	products.On("FindBySlug", mock.Anything, "ghost").Return(model.Product{}, repo.ErrNotFound)
	favs.On("Add", mock.Anything, int64(7), int64(11)).Return(nil)
	favs.On("Remove", mock.Anything, int64(7), int64(11)).Return(nil)
	favs.On("List", mock.Anything, int64(7)).Return([]model.Product{catalogProduct(), inactive}, nil)

	assert.NoError(t, uc.Add(ctx, 7, "nike-air"))
	assert.ErrorIs(t, uc.Add(ctx, 7, "ghost"), usecase.ErrProductNotFound)
	assert.ErrorIs(t, uc.Add(ctx, 0, "nike-air"), usecase.ErrUnauthorized)

	// 削除は無くても成功
	assert.NoError(t, uc.Remove(ctx, 7, "nike-air"))
	assert.NoError(t, uc.Remove(ctx, 7, "ghost"))

	page, err := uc.List(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Count)
	assert.Equal(t, "nike-air", page.Results[0].Slug)
	assert.True(t, page.Results[0].IsFavorited)

	favs.AssertExpectations(t)
}
