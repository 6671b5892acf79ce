package api

import (
	"context"
	"net/http"
)

// POST /payments/init/
func (c *Client) InitPayment(ctx context.Context, req CheckoutRequest) (PaymentInit, error) {
	var out PaymentInit
	err := c.call(ctx, http.MethodPost, "/payments/init/", req, &out)
	return out, err
}

// POST /payments/sync/
func (c *Client) SyncPayment(ctx context.Context, paymentID string, orderID string) (PaymentState, error) {
	body := map[string]string{
		"payment_id": paymentID,
		"order_id":   orderID,
	}
	var out PaymentState
	err := c.call(ctx, http.MethodPost, "/payments/sync/", body, &out)
	return out, err
}
