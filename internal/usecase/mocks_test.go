package usecase_test

import (
	"context"
	"io"
	"strconv"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/paygate"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mock: ClientRepository
// =====================

type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) Create(ctx context.Context, client *model.Client) error {
	args := m.Called(ctx, client)
	if args.Error(0) == nil && client.ID == 0 {
		client.ID = 1
	}
	return args.Error(0)
}

func (m *MockClientRepository) FindByID(ctx context.Context, id int64) (*model.Client, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*model.Client)
	return c, args.Error(1)
}

func (m *MockClientRepository) FindByEmail(ctx context.Context, email string) (*model.Client, error) {
	args := m.Called(ctx, email)
	c, _ := args.Get(0).(*model.Client)
	return c, args.Error(1)
}

func (m *MockClientRepository) FindByPhone(ctx context.Context, phone string) (*model.Client, error) {
	args := m.Called(ctx, phone)
	c, _ := args.Get(0).(*model.Client)
	return c, args.Error(1)
}

func (m *MockClientRepository) Update(ctx context.Context, client *model.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientRepository) IncrementTokenVersion(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// =====================
// Mock: RefreshTokenRepository
// =====================

type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	rt, _ := args.Get(0).(*model.RefreshToken)
	return rt, args.Error(1)
}

func (m *MockRefreshTokenRepository) MarkUsed(ctx context.Context, tokenID string, usedAt time.Time) error {
	args := m.Called(ctx, tokenID, usedAt)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) DeleteAllByClientID(ctx context.Context, clientID int64) error {
	args := m.Called(ctx, clientID)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) DeleteByID(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

// =====================
// Mock: AuthValidator
// =====================

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateRegister(ctx context.Context, in usecase.RegisterInput) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateLogin(ctx context.Context, login string, password string) error {
	args := m.Called(ctx, login, password)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateRefresh(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateProfile(ctx context.Context, clientID int64, patch usecase.ProfilePatch) error {
	args := m.Called(ctx, clientID, patch)
	return args.Error(0)
}

// =====================
// Mock: MediaStorage
// =====================

type MockMediaStorage struct {
	mock.Mock
}

func (m *MockMediaStorage) Save(ctx context.Context, dir string, filename string, r io.Reader) (string, error) {
	args := m.Called(ctx, dir, filename, r)
	return args.String(0), args.Error(1)
}

func (m *MockMediaStorage) Remove(rel string) error {
	args := m.Called(rel)
	return args.Error(0)
}

// =====================
// Mock: ProductRepository / FavoriteRepository
// =====================

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	args := m.Called(ctx, slug)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *MockProductRepository) FindVariant(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	args := m.Called(ctx, variantID)
	v, _ := args.Get(0).(model.ProductVariant)
	return v, args.Error(1)
}

func (m *MockProductRepository) FindVariants(ctx context.Context, variantIDs []int64) ([]model.ProductVariant, error) {
	args := m.Called(ctx, variantIDs)
	vs, _ := args.Get(0).([]model.ProductVariant)
	return vs, args.Error(1)
}

type MockFavoriteRepository struct {
	mock.Mock
}

func (m *MockFavoriteRepository) List(ctx context.Context, clientID int64) ([]model.Product, error) {
	args := m.Called(ctx, clientID)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Error(1)
}

func (m *MockFavoriteRepository) Add(ctx context.Context, clientID int64, productID int64) error {
	args := m.Called(ctx, clientID, productID)
	return args.Error(0)
}

func (m *MockFavoriteRepository) Remove(ctx context.Context, clientID int64, productID int64) error {
	args := m.Called(ctx, clientID, productID)
	return args.Error(0)
}

func (m *MockFavoriteRepository) FavoritedIDs(ctx context.Context, clientID int64, productIDs []int64) (map[int64]bool, error) {
	args := m.Called(ctx, clientID, productIDs)
	fav, _ := args.Get(0).(map[int64]bool)
	return fav, args.Error(1)
}

// =====================
// Mock: CartRepository / AnonCartRepository
// =====================

type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) GetOrCreateDraftByClientID(ctx context.Context, clientID int64) (model.Cart, error) {
	args := m.Called(ctx, clientID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *MockCartRepository) FindDraftByClientID(ctx context.Context, clientID int64) (model.Cart, error) {
	args := m.Called(ctx, clientID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *MockCartRepository) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	args := m.Called(ctx, cartID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *MockCartRepository) ListItems(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *MockCartRepository) SetItem(ctx context.Context, cartID int64, variantID int64, qty int) error {
	args := m.Called(ctx, cartID, variantID, qty)
	return args.Error(0)
}

func (m *MockCartRepository) DeleteItem(ctx context.Context, cartID int64, variantID int64) error {
	args := m.Called(ctx, cartID, variantID)
	return args.Error(0)
}

func (m *MockCartRepository) SaveDelivery(ctx context.Context, cart model.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *MockCartRepository) MarkOrdered(ctx context.Context, cartID int64, total decimal.Decimal, at time.Time) error {
	args := m.Called(ctx, cartID, total, at)
	return args.Error(0)
}

func (m *MockCartRepository) ListOrdered(ctx context.Context, clientID int64) ([]model.Cart, error) {
	args := m.Called(ctx, clientID)
	cs, _ := args.Get(0).([]model.Cart)
	return cs, args.Error(1)
}

type MockAnonCartRepository struct {
	mock.Mock
}

func (m *MockAnonCartRepository) Get(ctx context.Context, anonID string) (map[int64]int, error) {
	args := m.Called(ctx, anonID)
	q, _ := args.Get(0).(map[int64]int)
	return q, args.Error(1)
}

func (m *MockAnonCartRepository) Set(ctx context.Context, anonID string, variantID int64, qty int) error {
	args := m.Called(ctx, anonID, variantID, qty)
	return args.Error(0)
}

func (m *MockAnonCartRepository) Delete(ctx context.Context, anonID string, variantID int64) error {
	args := m.Called(ctx, anonID, variantID)
	return args.Error(0)
}

func (m *MockAnonCartRepository) Clear(ctx context.Context, anonID string) error {
	args := m.Called(ctx, anonID)
	return args.Error(0)
}

// =====================
// Mock: PaymentRepository / TransactionManager / Gateway
// =====================

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil && p.ID == 0 {
		p.ID = 10
	}
	return args.Error(0)
}

func (m *MockPaymentRepository) FindByPaymentID(ctx context.Context, paymentID string) (model.Payment, error) {
	args := m.Called(ctx, paymentID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentRepository) FindByOrderID(ctx context.Context, orderID string) (model.Payment, error) {
	args := m.Called(ctx, orderID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentRepository) FindLiveByCartID(ctx context.Context, cartID int64) (model.Payment, error) {
	args := m.Called(ctx, cartID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentRepository) Update(ctx context.Context, p *model.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// トランザクションはそのまま同じモックで実行する
type fakeTx struct {
	carts    *MockCartRepository
	payments *MockPaymentRepository
}

func (f *fakeTx) Carts() repo.CartRepository       { return f.carts }
func (f *fakeTx) Payments() repo.PaymentRepository { return f.payments }

func (f *fakeTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(f)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Init(ctx context.Context, req paygate.InitRequest) (paygate.InitResult, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(paygate.InitResult)
	return r, args.Error(1)
}

func (m *MockGateway) GetState(ctx context.Context, paymentID string, orderID string) (paygate.State, error) {
	args := m.Called(ctx, paymentID, orderID)
	s, _ := args.Get(0).(paygate.State)
	return s, args.Error(1)
}

// =====================
// Helper
// =====================

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixedID struct{ id string }

func (g fixedID) NewID() string { return g.id }

func variant(id int64, price string, active bool) model.ProductVariant {
	return model.ProductVariant{
		ID:           id,
		ProductID:    100 + id,
		SizeType:     "EU",
		SizeValue:    "42",
		CurrentPrice: decimal.RequireFromString(price),
		IsActive:     active,
		Product: &model.Product{
			ID:       100 + id,
			Slug:     "p-" + strconv.FormatInt(id, 10),
			Name:     "Product",
			IsActive: true,
			Brand:    &model.Brand{Name: "Nike"},
		},
	}
}

// 商品ごと非公開にしたコピー
func withInactiveProduct(v model.ProductVariant) model.ProductVariant {
	p := *v.Product
	p.IsActive = false
	v.Product = &p
	return v
}

func item(cartID int64, v model.ProductVariant, qty int) model.CartItem {
	vv := v
	return model.CartItem{CartID: cartID, VariantID: v.ID, Variant: &vv, Quantity: qty}
}
