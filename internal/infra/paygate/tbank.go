package paygate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type TBankConfig struct {
	BaseURL     string
	TerminalKey string
	Password    string
	SuccessURL  string
	FailURL     string
	Timeout     time.Duration
}

// T-Bank /v2 の最小クライアント
type TBank struct {
	cfg  TBankConfig
	http *http.Client
}

func NewTBank(cfg TBankConfig) *TBank {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &TBank{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// PaymentId は文字列でも数値でも返ってくる
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	*f = flexString(strings.Trim(s, `"`))
	return nil
}

type tbankResponse struct {
	Success    bool       `json:"Success"`
	ErrorCode  flexString `json:"ErrorCode"`
	Message    string     `json:"Message"`
	Details    string     `json:"Details"`
	Status     string     `json:"Status"`
	PaymentID  flexString `json:"PaymentId"`
	OrderID    flexString `json:"OrderId"`
	Amount     int64      `json:"Amount"`
	PaymentURL string     `json:"PaymentURL"`
}

func (r tbankResponse) err() error {
	if r.Success {
		return nil
	}
	return errors.Wrapf(ErrRejected, "code=%s %s %s", r.ErrorCode, r.Message, r.Details)
}

// POST /v2/Init
func (t *TBank) Init(ctx context.Context, req InitRequest) (InitResult, error) {
	payload := map[string]interface{}{
		"TerminalKey": t.cfg.TerminalKey,
		"Amount":      req.Amount,
		"OrderId":     req.OrderID,
	}
	if req.Description != "" {
		payload["Description"] = req.Description
	}
	if t.cfg.SuccessURL != "" {
		payload["SuccessURL"] = t.cfg.SuccessURL
	}
	if t.cfg.FailURL != "" {
		payload["FailURL"] = t.cfg.FailURL
	}

	res, err := t.post(ctx, "Init", payload)
	if err != nil {
		return InitResult{}, err
	}
	if err := res.err(); err != nil {
		return InitResult{}, err
	}
	return InitResult{
		PaymentID:  string(res.PaymentID),
		PaymentURL: res.PaymentURL,
		Status:     res.Status,
	}, nil
}

// POST /v2/GetState（PaymentId を優先）
func (t *TBank) GetState(ctx context.Context, paymentID string, orderID string) (State, error) {
	payload := map[string]interface{}{"TerminalKey": t.cfg.TerminalKey}
	if paymentID != "" {
		payload["PaymentId"] = paymentID
	} else {
		payload["OrderId"] = orderID
	}

	res, err := t.post(ctx, "GetState", payload)
	if err != nil {
		return State{}, err
	}
	st := State{
		Success:   res.Success,
		Status:    res.Status,
		PaymentID: string(res.PaymentID),
		OrderID:   string(res.OrderID),
		Amount:    res.Amount,
		ErrorCode: string(res.ErrorCode),
		Message:   res.Message,
	}
	return st, res.err()
}

func (t *TBank) post(ctx context.Context, method string, payload map[string]interface{}) (tbankResponse, error) {
	payload["Token"] = Token(payload, t.cfg.Password)

	body, err := json.Marshal(payload)
	if err != nil {
		return tbankResponse{}, errors.Wrap(err, "encode payload")
	}

	url := t.cfg.BaseURL + "/v2/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return tbankResponse{}, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return tbankResponse{}, errors.Wrapf(ErrUnavailable, "%s: %v", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return tbankResponse{}, errors.Wrapf(ErrUnavailable, "%s: http %d", method, resp.StatusCode)
	}

	var out tbankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return tbankResponse{}, errors.Wrapf(ErrUnavailable, "%s: decode: %v", method, err)
	}
	return out, nil
}
