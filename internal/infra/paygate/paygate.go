// Package paygate は決済ゲートウェイ（T-Bank /v2）とのやり取り。
package paygate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ゲートウェイが Success=false を返した（業務エラー）
	ErrRejected = errors.New("paygate: rejected")
	// 通信できない・ブレーカーが開いている
	ErrUnavailable = errors.New("paygate: unavailable")
)

type InitRequest struct {
	Amount      int64 // コペイカ
	OrderID     string
	Description string
}

type InitResult struct {
	PaymentID  string
	PaymentURL string
	Status     string
}

type State struct {
	Success   bool
	Status    string
	PaymentID string
	OrderID   string
	Amount    int64
	ErrorCode string
	Message   string
}

type Gateway interface {
	Init(ctx context.Context, req InitRequest) (InitResult, error)
	// paymentID と orderID のどちらかがあればよい
	GetState(ctx context.Context, paymentID string, orderID string) (State, error)
}

// Kopecks はルーブルをコペイカにする（四捨五入）
func Kopecks(rub decimal.Decimal) int64 {
	return rub.Shift(2).Round(0).IntPart()
}

// Token は T-Bank の署名。
// Token と空値・入れ子を除き Password を足して、キー順に値を連結した sha256。
func Token(payload map[string]interface{}, password string) string {
	flat := make(map[string]string, len(payload)+1)
	for k, v := range payload {
		if k == "Token" || v == nil {
			continue
		}
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			continue
		}
		s := fmt.Sprint(v)
		if s == "" {
			continue
		}
		flat[k] = s
	}
	flat["Password"] = password

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(flat[k])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Verify は通知（webhook）の Token を検証する
func Verify(payload map[string]interface{}, password string) bool {
	got, _ := payload["Token"].(string)
	if got == "" {
		return false
	}
	return strings.EqualFold(got, Token(payload, password))
}
