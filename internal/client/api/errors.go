package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// レスポンスが返ってこなかった
	ErrNetwork = errors.New("api: network error")
	// JSONが必要なのにJSONでない
	ErrDecode = errors.New("api: unexpected response body")
	// 数量は1以上（0は DeleteCartItem を使う）
	ErrInvalidQuantity = errors.New("api: quantity must be >= 1")
)

// HTTP 4xx/5xx
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Detail)
}

func (e *StatusError) ClientError() bool { return e.Status >= 400 && e.Status < 500 }
func (e *StatusError) ServerError() bool { return e.Status >= 500 }

// err が指定ステータスの StatusError か
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

func newStatusError(status int, body json.RawMessage) *StatusError {
	return &StatusError{Status: status, Detail: detailOf(body)}
}

// {"detail": "..."} / {"error": "..."} から取り出す
func detailOf(body json.RawMessage) string {
	if len(body) == 0 {
		return ""
	}
	var v struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}
	if v.Detail != "" {
		return v.Detail
	}
	return v.Error
}
