package cartview

import (
	"context"
	"sort"
	"sync"

	"storefront/internal/client/api"
	"storefront/internal/client/broadcast"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockCartAPI struct{ mock.Mock }

func (m *MockCartAPI) Cart(ctx context.Context) (api.Cart, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).(api.Cart)
	return c, args.Error(1)
}

func (m *MockCartAPI) SetCartItem(ctx context.Context, variantID int64, qty int) error {
	args := m.Called(ctx, variantID, qty)
	return args.Error(0)
}

func (m *MockCartAPI) DeleteCartItem(ctx context.Context, variantID int64) error {
	args := m.Called(ctx, variantID)
	return args.Error(0)
}

type setCall struct {
	VariantID int64
	Qty       int
}

// サーバー側のカートをメモリで再現（成功時は api.Client と同じく通知する）
type fakeCart struct {
	mu       sync.Mutex
	qty      map[int64]int
	bus      *broadcast.Broadcaster
	sets     []setCall
	deletes  []int64
	carts    int
	inFlight int
	maxSeen  int

	setErr  error
	cartErr error
	gate    chan struct{}
}

func newFakeCart(bus *broadcast.Broadcaster) *fakeCart {
	return &fakeCart{qty: map[int64]int{}, bus: bus}
}

var unitPrice = decimal.RequireFromString("10.00")

func (f *fakeCart) Cart(ctx context.Context) (api.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts++
	if f.cartErr != nil {
		return api.Cart{}, f.cartErr
	}

	ids := make([]int64, 0, len(f.qty))
	for id := range f.qty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	cart := api.Cart{Lines: []api.CartLine{}, Total: decimal.Zero}
	for _, id := range ids {
		q := f.qty[id]
		line := unitPrice.Mul(decimal.NewFromInt(int64(q)))
		cart.Lines = append(cart.Lines, api.CartLine{VariantID: id, Quantity: q, UnitPrice: unitPrice, LineTotal: line})
		cart.Total = cart.Total.Add(line)
	}
	return cart, nil
}

func (f *fakeCart) enter() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
}

func (f *fakeCart) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeCart) SetCartItem(ctx context.Context, variantID int64, qty int) error {
	f.mu.Lock()
	f.sets = append(f.sets, setCall{variantID, qty})
	f.mu.Unlock()

	f.enter()
	defer f.leave()

	f.mu.Lock()
	if f.setErr != nil {
		err := f.setErr
		f.mu.Unlock()
		return err
	}
	f.qty[variantID] = qty
	f.mu.Unlock()

	f.bus.Emit(broadcast.CartChanged)
	return nil
}

func (f *fakeCart) DeleteCartItem(ctx context.Context, variantID int64) error {
	f.mu.Lock()
	f.deletes = append(f.deletes, variantID)
	f.mu.Unlock()

	f.enter()
	defer f.leave()

	f.mu.Lock()
	delete(f.qty, variantID)
	f.mu.Unlock()

	f.bus.Emit(broadcast.CartChanged)
	return nil
}

func (f *fakeCart) Sets() []setCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]setCall(nil), f.sets...)
}

func (f *fakeCart) put(variantID int64, qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.qty[variantID] = qty
}
