package paygate

import (
	"context"
	"net/url"
	"strconv"
	"sync"
)

// Local は端末キーが無いとき用。Init した決済は GetState で即 CONFIRMED になる。
// 支払いURLは成功ページへの戻りURLそのもの。
type Local struct {
	successURL string

	mu       sync.Mutex
	seq      int64
	payments map[string]State // payment id -> state
}

func NewLocal(successURL string) *Local {
	return &Local{successURL: successURL, payments: map[string]State{}}
}

func (l *Local) Init(ctx context.Context, req InitRequest) (InitResult, error) {
	if err := ctx.Err(); err != nil {
		return InitResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	id := strconv.FormatInt(l.seq, 10)
	l.payments[id] = State{
		Success:   true,
		Status:    "CONFIRMED",
		PaymentID: id,
		OrderID:   req.OrderID,
		Amount:    req.Amount,
	}

	q := url.Values{"PaymentId": {id}, "OrderId": {req.OrderID}, "Success": {"true"}}
	return InitResult{
		PaymentID:  id,
		PaymentURL: l.successURL + "?" + q.Encode(),
		Status:     "NEW",
	}, nil
}

func (l *Local) GetState(ctx context.Context, paymentID string, orderID string) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if st, ok := l.payments[paymentID]; ok {
		return st, nil
	}
	for _, st := range l.payments {
		if orderID != "" && st.OrderID == orderID {
			return st, nil
		}
	}
	return State{Success: false, ErrorCode: "7", Message: "payment not found"}, ErrRejected
}
