// Package api はストアフロントREST APIのクライアント。
//
// すべてのリクエストに匿名ID（X-Anon-Id）を付け、access があれば Bearer で送る。
// 401 のときは refresh を1回だけ試し、成功すれば新しい access で1回だけ再送、
// 失敗すればトークンを捨てて匿名で1回だけ再送する。ループはしない。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/client/broadcast"
	"storefront/internal/client/session"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const AnonHeader = "X-Anon-Id"

type Config struct {
	BaseURL    string
	MediaBase  string
	HTTPClient *http.Client
	Timeout    time.Duration
	Log        logrus.FieldLogger
}

type Client struct {
	base      string
	mediaBase string
	http      *http.Client
	session   *session.Session
	bus       *broadcast.Broadcaster
	log       logrus.FieldLogger
}

// DI
func New(cfg Config, sess *session.Session, bus *broadcast.Broadcaster) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		mediaBase: strings.TrimRight(cfg.MediaBase, "/"),
		http:      hc,
		session:   sess,
		bus:       bus,
		log:       log,
	}
}

func (c *Client) Session() *session.Session {
	return c.session
}

// 結果（HTTPエラーはここでは error にしない）
type Result struct {
	OK     bool
	Status int
	// JSONでないときは nil
	Data json.RawMessage
}

func (r Result) Decode(v interface{}) error {
	if len(r.Data) == 0 {
		return ErrDecode
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return errors.Wrap(ErrDecode, err.Error())
	}
	return nil
}

// 失敗なら *StatusError
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return newStatusError(r.Status, r.Data)
}

// 送信済みのボディ（再送できるようにbytesで持つ）
type payload struct {
	body        []byte
	contentType string
}

// そのまま送るボディ（multipart など）
type RawBody struct {
	Data        []byte
	ContentType string
}

func encodeBody(body interface{}) (payload, error) {
	switch b := body.(type) {
	case nil:
		return payload{}, nil
	case RawBody:
		return payload{body: b.Data, contentType: b.ContentType}, nil
	case *RawBody:
		return payload{body: b.Data, contentType: b.ContentType}, nil
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return payload{}, errors.Wrap(err, "encode request body")
		}
		return payload{body: raw, contentType: "application/json"}, nil
	}
}

// Request はAPIを呼ぶ。error はネットワーク失敗（ErrNetwork）と
// リクエスト組み立ての失敗のときだけ返る。
func (c *Client) Request(ctx context.Context, method string, path string, body interface{}) (Result, error) {
	p, err := encodeBody(body)
	if err != nil {
		return Result{}, err
	}

	token := c.session.Access()
	res, err := c.send(ctx, method, path, p, token)
	if err != nil {
		return Result{}, err
	}
	if res.Status != http.StatusUnauthorized {
		return res, nil
	}

	//トークンを送っていない & refresh も無い → そのまま返す
	if token == "" && c.session.RefreshToken() == "" {
		return res, nil
	}

	fresh, rerr := c.session.Refresh(ctx, token, c.refreshTokens)
	if rerr == nil {
		return c.send(ctx, method, path, p, fresh)
	}

	c.log.WithError(rerr).WithField("http.req.path", path).Warn("token refresh failed")
	if token == "" {
		return res, nil
	}
	//匿名で1回だけ再送
	return c.send(ctx, method, path, p, "")
}

// POST /clients/refresh/（401処理を通さない）
func (c *Client) refreshTokens(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	p, err := encodeBody(map[string]string{"refresh": refreshToken})
	if err != nil {
		return session.TokenPair{}, err
	}
	res, err := c.send(ctx, http.MethodPost, "/clients/refresh/", p, "")
	if err != nil {
		return session.TokenPair{}, err
	}
	if !res.OK {
		return session.TokenPair{}, res.Err()
	}

	var pair session.TokenPair
	if err := res.Decode(&pair); err != nil {
		return session.TokenPair{}, err
	}
	return pair, nil
}

func (c *Client) send(ctx context.Context, method string, path string, p payload, token string) (Result, error) {
	var reader io.Reader
	if p.body != nil {
		reader = bytes.NewReader(p.body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return Result{}, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if p.contentType != "" {
		req.Header.Set("Content-Type", p.contentType)
	}
	if anon := c.session.AnonID(); anon != "" {
		req.Header.Set(AnonHeader, anon)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"http.req.method": method,
			"http.req.path":   path,
		}).WithError(err).Debug("request failed")
		return Result{}, errors.Wrapf(ErrNetwork, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, errors.Wrapf(ErrNetwork, "%s %s: read body: %v", method, path, err)
	}

	c.log.WithFields(logrus.Fields{
		"http.req.method":   method,
		"http.req.path":     path,
		"http.resp.status":  resp.StatusCode,
		"http.resp.took_ms": time.Since(start).Milliseconds(),
	}).Debug("request")

	res := Result{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && json.Valid(raw) {
		res.Data = json.RawMessage(raw)
	}
	return res, nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.base + path
}

func (c *Client) emit(ch broadcast.Channel) {
	if c.bus != nil {
		c.bus.Emit(ch)
	}
}

// 成功なら v にデコード、失敗なら *StatusError
func (c *Client) call(ctx context.Context, method string, path string, body interface{}, v interface{}) error {
	res, err := c.Request(ctx, method, path, body)
	if err != nil {
		return err
	}
	if err := res.Err(); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	return res.Decode(v)
}
