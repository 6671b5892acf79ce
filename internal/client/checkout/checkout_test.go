package checkout

import (
	"context"
	"errors"
	"net/url"
	"sync/atomic"
	"testing"

	"storefront/internal/client/api"
	"storefront/internal/client/broadcast"
	"storefront/internal/client/localstore"
	"storefront/internal/logging"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAPI struct{ mock.Mock }

func (m *MockAPI) Cart(ctx context.Context) (api.Cart, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).(api.Cart)
	return c, args.Error(1)
}

func (m *MockAPI) InitPayment(ctx context.Context, req api.CheckoutRequest) (api.PaymentInit, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(api.PaymentInit)
	return p, args.Error(1)
}

func (m *MockAPI) SyncPayment(ctx context.Context, paymentID string, orderID string) (api.PaymentState, error) {
	args := m.Called(ctx, paymentID, orderID)
	s, _ := args.Get(0).(api.PaymentState)
	return s, args.Error(1)
}

var oneLine = api.Cart{
	Lines: []api.CartLine{{VariantID: 5, Quantity: 2, UnitPrice: decimal.NewFromInt(1000)}},
	Total: decimal.NewFromInt(2000),
}

func setup(t *testing.T) (*Checkout, *MockAPI, *localstore.Memory, func() int32) {
	bus := broadcast.New(logging.Discard())
	t.Cleanup(bus.Close)

	var n int32
	t.Cleanup(bus.Subscribe(broadcast.CartChanged, func() { atomic.AddInt32(&n, 1) }))

	m := new(MockAPI)
	store := localstore.NewMemory()
	c := New(m, store, bus, logging.Discard())
	return c, m, store, func() int32 {
		bus.Wait()
		return atomic.LoadInt32(&n)
	}
}

func TestCanPay(t *testing.T) {
	tests := []struct {
		name string
		cart api.Cart
		req  api.CheckoutRequest
		want error
	}{
		{"empty cart", api.Cart{}, api.CheckoutRequest{DeliveryType: api.DeliveryPickup, PickupID: "maykop"}, ErrEmptyCart},
		{"no delivery type", oneLine, api.CheckoutRequest{}, ErrNoDeliveryType},
		{"unknown pickup", oneLine, api.CheckoutRequest{DeliveryType: api.DeliveryPickup, PickupID: "moscow"}, ErrUnknownPickup},
		{"pickup ok", oneLine, api.CheckoutRequest{DeliveryType: api.DeliveryPickup, PickupID: "krasnodar"}, nil},
		{"short address", oneLine, api.CheckoutRequest{DeliveryType: api.DeliveryCourier, Address: "  ул. "}, ErrAddressTooShort},
		{"cyrillic address", oneLine, api.CheckoutRequest{DeliveryType: api.DeliveryCourier, Address: "Мира 1"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanPay(tt.cart, tt.req)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStart_StoresPaymentContext(t *testing.T) {
	c, m, store, _ := setup(t)
	req := api.CheckoutRequest{DeliveryType: api.DeliveryCourier, Address: "  ул. Мира, 1  "}
	sent := api.CheckoutRequest{DeliveryType: api.DeliveryCourier, Address: "ул. Мира, 1"}

	m.On("Cart", mock.Anything).Return(oneLine, nil).Once()
	m.On("InitPayment", mock.Anything, sent).Return(api.PaymentInit{
		PaymentURL: "https://pay.example/abc",
		PaymentID:  "777",
		OrderID:    "42",
	}, nil).Once()

	pay, err := c.Start(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/abc", pay.PaymentURL)

	raw, ok := store.Get(localstore.KeyLastPaymentCtx)
	require.True(t, ok)
	assert.JSONEq(t, `{"payment_id":"777","order_id":"42"}`, raw)
	m.AssertExpectations(t)
}

func TestStart_InvalidFormDoesNotInit(t *testing.T) {
	c, m, _, _ := setup(t)
	m.On("Cart", mock.Anything).Return(api.Cart{}, nil).Once()

	_, err := c.Start(context.Background(), api.CheckoutRequest{DeliveryType: api.DeliveryPickup, PickupID: "maykop"})
	assert.ErrorIs(t, err, ErrEmptyCart)
	m.AssertNotCalled(t, "InitPayment", mock.Anything, mock.Anything)
}

func TestComplete_QueryIDsAndConfirmedClearsContext(t *testing.T) {
	c, m, store, emits := setup(t)
	require.NoError(t, store.Set(localstore.KeyLastPaymentCtx, `{"payment_id":"1","order_id":"2"}`))

	m.On("SyncPayment", mock.Anything, "900", "2").Return(api.PaymentState{Status: "CONFIRMED"}, nil).Once()
	m.On("Cart", mock.Anything).Return(api.Cart{}, nil).Once()

	st, err := c.Complete(context.Background(), url.Values{"paymentId": {"900"}})
	require.NoError(t, err)
	assert.True(t, st.Paid())

	_, ok := store.Get(localstore.KeyLastPaymentCtx)
	assert.False(t, ok)
	assert.Equal(t, int32(1), emits())
	m.AssertExpectations(t)
}

func TestComplete_PendingKeepsContext(t *testing.T) {
	c, m, store, emits := setup(t)
	require.NoError(t, store.Set(localstore.KeyLastPaymentCtx, `{"payment_id":"1","order_id":"2"}`))

	m.On("SyncPayment", mock.Anything, "1", "2").Return(api.PaymentState{Status: "NEW"}, nil).Once()
	m.On("Cart", mock.Anything).Return(oneLine, nil).Once()

	st, err := c.Complete(context.Background(), url.Values{})
	require.NoError(t, err)
	assert.False(t, st.Paid())

	assert.Equal(t, PaymentContext{PaymentID: "1", OrderID: "2"}, c.LastContext())
	assert.Equal(t, int32(1), emits())
}

func TestComplete_SyncFailureStillRefreshesCart(t *testing.T) {
	c, m, _, emits := setup(t)

	m.On("SyncPayment", mock.Anything, "5", "6").Return(nil, errors.New("bad gateway")).Once()
	m.On("Cart", mock.Anything).Return(oneLine, nil).Once()

	_, err := c.Complete(context.Background(), url.Values{"PaymentId": {"5"}, "order_id": {"6"}})
	assert.Error(t, err)
	assert.Equal(t, int32(1), emits())
	m.AssertExpectations(t)
}

func TestComplete_NoContext(t *testing.T) {
	c, m, _, emits := setup(t)
	m.On("Cart", mock.Anything).Return(api.Cart{}, nil).Once()

	_, err := c.Complete(context.Background(), url.Values{})
	assert.ErrorIs(t, err, ErrNoPaymentContext)
	m.AssertNotCalled(t, "SyncPayment", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, int32(1), emits())
}

func TestPickupIDs_Sorted(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, []string{"krasnodar", "maykop"}, PickupIDs())
	}
	for _, id := range PickupIDs() {
		assert.NotEmpty(t, PickupPoints[id])
	}
}
