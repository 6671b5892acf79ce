package api

import (
	"context"
	"net/http"
	"strconv"

	"storefront/internal/client/broadcast"
)

// GET /orders/
func (c *Client) Cart(ctx context.Context) (Cart, error) {
	var cart Cart
	if err := c.call(ctx, http.MethodGet, "/orders/", nil, &cart); err != nil {
		return Cart{}, err
	}
	if cart.Lines == nil {
		cart.Lines = []CartLine{}
	}
	return cart, nil
}

// 数量を設定（1以上）。成功したら cart changed を通知
func (c *Client) SetCartItem(ctx context.Context, variantID int64, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}

	body := struct {
		VariantID int64 `json:"variant_id"`
		Qty       int   `json:"qty"`
	}{variantID, qty}

	if err := c.call(ctx, http.MethodPost, "/orders/items/", body, nil); err != nil {
		return err
	}
	c.emit(broadcast.CartChanged)
	return nil
}

// 明細削除。404 は既に無いので成功扱い
func (c *Client) DeleteCartItem(ctx context.Context, variantID int64) error {
	path := "/orders/items/" + strconv.FormatInt(variantID, 10) + "/"

	res, err := c.Request(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	if !res.OK && res.Status != http.StatusNotFound {
		return res.Err()
	}
	c.emit(broadcast.CartChanged)
	return nil
}

// 匿名カートをログイン中のカートへ統合
func (c *Client) MergeCart(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/orders/merge/", nil, nil)
}

func (c *Client) OrderHistory(ctx context.Context) ([]OrderSummary, error) {
	var out []OrderSummary
	if err := c.call(ctx, http.MethodGet, "/orders/history/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) OrderDetail(ctx context.Context, orderID int64) (OrderDetail, error) {
	var out OrderDetail
	path := "/orders/history/" + strconv.FormatInt(orderID, 10) + "/"
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return OrderDetail{}, err
	}
	if out.Lines == nil {
		out.Lines = []CartLine{}
	}
	return out, nil
}

// 注文の明細をカートに戻す。戻した明細数を返し、cart changed を通知
func (c *Client) RepeatOrder(ctx context.Context, orderID int64) (int, error) {
	var out struct {
		Moved int `json:"moved"`
	}
	path := "/orders/cart/repeat/" + strconv.FormatInt(orderID, 10) + "/"
	if err := c.call(ctx, http.MethodPost, path, nil, &out); err != nil {
		return 0, err
	}
	c.emit(broadcast.CartChanged)
	return out.Moved, nil
}
