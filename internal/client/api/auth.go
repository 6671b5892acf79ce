package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"storefront/internal/client/broadcast"
	"storefront/internal/client/session"

	"github.com/pkg/errors"
)

// ログイン → トークン保存 → 匿名カートを統合
func (c *Client) Login(ctx context.Context, in Credentials) error {
	var pair session.TokenPair
	if err := c.call(ctx, http.MethodPost, "/clients/login/", in, &pair); err != nil {
		return err
	}
	return c.signedIn(ctx, pair)
}

func (c *Client) Register(ctx context.Context, in Registration) error {
	var pair session.TokenPair
	if err := c.call(ctx, http.MethodPost, "/clients/register/", in, &pair); err != nil {
		return err
	}
	return c.signedIn(ctx, pair)
}

func (c *Client) signedIn(ctx context.Context, pair session.TokenPair) error {
	if err := c.session.Set(pair); err != nil {
		return errors.Wrap(err, "store tokens")
	}

	//匿名カートの統合は失敗してもログイン自体は成功
	if err := c.MergeCart(ctx); err != nil {
		c.log.WithError(err).Debug("merge anonymous cart")
	}

	c.emit(broadcast.CartChanged)
	c.emit(broadcast.FavoritesChanged)
	return nil
}

// トークンを捨てる（匿名IDは残る）
func (c *Client) Logout() error {
	if err := c.session.Clear(); err != nil {
		return errors.Wrap(err, "clear session")
	}
	c.emit(broadcast.CartChanged)
	c.emit(broadcast.FavoritesChanged)
	return nil
}

func (c *Client) Me(ctx context.Context) (Profile, error) {
	var p Profile
	err := c.call(ctx, http.MethodGet, "/clients/me/", nil, &p)
	return p, err
}

func (c *Client) UpdateMe(ctx context.Context, patch ProfilePatch) (Profile, error) {
	var p Profile
	err := c.call(ctx, http.MethodPatch, "/clients/me/", patch, &p)
	return p, err
}

// アバター画像を multipart で送る
func (c *Client) UploadAvatar(ctx context.Context, filename string, r io.Reader) (Profile, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return Profile{}, errors.Wrap(err, "create form file")
	}
	if _, err := io.Copy(part, r); err != nil {
		return Profile{}, errors.Wrap(err, "copy avatar")
	}
	if err := w.Close(); err != nil {
		return Profile{}, errors.Wrap(err, "close multipart")
	}

	var p Profile
	err = c.call(ctx, http.MethodPatch, "/clients/me/", RawBody{
		Data:        buf.Bytes(),
		ContentType: w.FormDataContentType(),
	}, &p)
	return p, err
}
