package paygate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"storefront/internal/logging"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKopecks(t *testing.T) {
	assert.Equal(t, int64(1199000), Kopecks(decimal.RequireFromString("11990")))
	assert.Equal(t, int64(1050), Kopecks(decimal.RequireFromString("10.495")))
	assert.Equal(t, int64(0), Kopecks(decimal.Zero))
}

func TestToken(t *testing.T) {
	payload := map[string]interface{}{
		"TerminalKey": "TinkoffBankTest",
		"Amount":      int64(19200),
		"OrderId":     "21050",
		"Description": "Подарочная карта на 1000 рублей",
		"DATA":        map[string]interface{}{"Email": "a@b.c"},
		"Receipt":     nil,
		"Token":       "ignored",
	}
	assert.Equal(t, "0fdd0829a809a5c14ec604f9bfeb5178799b71b7e295c2db658792e1d1a9cbcd", Token(payload, "usaf8fw8fsw21g"))
}

func TestVerify_JSONNumbers(t *testing.T) {
	raw := `{"TerminalKey":"TinkoffBankTest","Amount":19200,"OrderId":"21050","Description":"Подарочная карта на 1000 рублей","Token":"0FDD0829A809A5C14EC604F9BFEB5178799B71B7E295C2DB658792E1D1A9CBCD"}`
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var payload map[string]interface{}
	require.NoError(t, dec.Decode(&payload))

	assert.True(t, Verify(payload, "usaf8fw8fsw21g"))
	assert.False(t, Verify(payload, "other"))
	delete(payload, "Token")
	assert.False(t, Verify(payload, "usaf8fw8fsw21g"))
}

func TestTBank_Init(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/Init", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "term", body["TerminalKey"])
		assert.Equal(t, "cart-1-100", body["OrderId"])
		assert.Equal(t, "https://shop/success", body["SuccessURL"])
		assert.NotEmpty(t, body["Token"])

		_, _ = w.Write([]byte(`{"Success":true,"ErrorCode":"0","Status":"NEW","PaymentId":13660,"PaymentURL":"https://pay/abc"}`))
	}))
	defer srv.Close()

	tb := NewTBank(TBankConfig{BaseURL: srv.URL + "/", TerminalKey: "term", Password: "pw", SuccessURL: "https://shop/success"})
	res, err := tb.Init(context.Background(), InitRequest{Amount: 1000, OrderID: "cart-1-100"})
	require.NoError(t, err)
	assert.Equal(t, InitResult{PaymentID: "13660", PaymentURL: "https://pay/abc", Status: "NEW"}, res)
}

func TestTBank_GetStateSignsPaymentID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "e4b5e3bfbcb7d11d8e41be0a10c4eb086a332b9dff51c609b5f797673fad42ff", body["Token"])
		assert.NotContains(t, body, "OrderId")

		_, _ = w.Write([]byte(`{"Success":true,"Status":"CONFIRMED","PaymentId":"700","OrderId":"cart-2-5","Amount":500}`))
	}))
	defer srv.Close()

	tb := NewTBank(TBankConfig{BaseURL: srv.URL, TerminalKey: "T", Password: "pw"})
	st, err := tb.GetState(context.Background(), "700", "cart-2-5")
	require.NoError(t, err)
	assert.True(t, st.Success)
	assert.Equal(t, "CONFIRMED", st.Status)
	assert.Equal(t, "cart-2-5", st.OrderID)
}

func TestTBank_Errors(t *testing.T) {
	var status int32 = http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(atomic.LoadInt32(&status)))
		_, _ = w.Write([]byte(`{"Success":false,"ErrorCode":"204","Message":"Неверный токен"}`))
	}))
	defer srv.Close()

	tb := NewTBank(TBankConfig{BaseURL: srv.URL, TerminalKey: "T", Password: "pw"})

	_, err := tb.Init(context.Background(), InitRequest{Amount: 1, OrderID: "x"})
	assert.ErrorIs(t, err, ErrRejected)

	atomic.StoreInt32(&status, http.StatusBadGateway)
	_, err = tb.Init(context.Background(), InitRequest{Amount: 1, OrderID: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

type flaky struct {
	calls int32
	err   error
}

func (f *flaky) Init(ctx context.Context, req InitRequest) (InitResult, error) {
	atomic.AddInt32(&f.calls, 1)
	return InitResult{}, f.err
}

func (f *flaky) GetState(ctx context.Context, paymentID string, orderID string) (State, error) {
	atomic.AddInt32(&f.calls, 1)
	return State{Status: "REJECTED"}, f.err
}

func TestBreaker_OpensOnOutage(t *testing.T) {
	next := &flaky{err: ErrUnavailable}
	b := NewBreaker(next, logging.Discard())

	for i := 0; i < 5; i++ {
		_, err := b.Init(context.Background(), InitRequest{})
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.GetState(context.Background(), "1", "")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(5), atomic.LoadInt32(&next.calls))
}

func TestBreaker_RejectionsDoNotTrip(t *testing.T) {
	next := &flaky{err: ErrRejected}
	b := NewBreaker(next, logging.Discard())

	for i := 0; i < 10; i++ {
		st, err := b.GetState(context.Background(), "1", "")
		assert.ErrorIs(t, err, ErrRejected)
		assert.Equal(t, "REJECTED", st.Status)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestLocal_ConfirmsImmediately(t *testing.T) {
	l := NewLocal("http://localhost:5173/pay/success")
	ctx := context.Background()

	res, err := l.Init(ctx, InitRequest{Amount: 100, OrderID: "cart-3-1"})
	require.NoError(t, err)
	assert.Equal(t, "1", res.PaymentID)

	u, err := url.Parse(res.PaymentURL)
	require.NoError(t, err)
	assert.Equal(t, "1", u.Query().Get("PaymentId"))
	assert.Equal(t, "cart-3-1", u.Query().Get("OrderId"))

	st, err := l.GetState(ctx, "", "cart-3-1")
	require.NoError(t, err)
	assert.True(t, st.Success)
	assert.Equal(t, "CONFIRMED", st.Status)

	_, err = l.GetState(ctx, "99", "")
	assert.ErrorIs(t, err, ErrRejected)
}
