package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// GET /products/ の検索条件
type ProductQuery struct {
	Q        string
	Page     int
	Limit    int
	Sort     string
	IsNew    bool
	IsSale   bool
	Popular  bool
	InStock  bool
	Category string // ID か名前
	Brand    string // ID か名前
	Group    string // 親カテゴリ名
	Sizes    []string
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.IsNew {
		v.Set("is_new", "true")
	}
	if q.IsSale {
		v.Set("is_sale", "true")
	}
	if q.Popular {
		v.Set("popular", "true")
	}
	if q.InStock {
		v.Set("in_stock", "true")
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Brand != "" {
		v.Set("brand", q.Brand)
	}
	if q.Group != "" {
		v.Set("group", q.Group)
	}
	if len(q.Sizes) > 0 {
		v.Set("sizes", strings.Join(q.Sizes, ","))
	}
	return v
}

// 一覧（ページ形式と配列の両方を受ける）
func (c *Client) Products(ctx context.Context, q ProductQuery) (ProductPage, error) {
	path := "/products/"
	if qs := q.values().Encode(); qs != "" {
		path += "?" + qs
	}

	res, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return ProductPage{}, err
	}
	if err := res.Err(); err != nil {
		return ProductPage{}, err
	}
	return decodePage(res.Data)
}

func (c *Client) Product(ctx context.Context, slug string) (Product, error) {
	var p Product
	err := c.call(ctx, http.MethodGet, "/products/"+url.PathEscape(slug)+"/", nil, &p)
	return p, err
}

func decodePage(raw json.RawMessage) (ProductPage, error) {
	if len(raw) == 0 {
		return ProductPage{}, ErrDecode
	}
	if raw[0] == '[' {
		var items []ProductSummary
		if err := json.Unmarshal(raw, &items); err != nil {
			return ProductPage{}, ErrDecode
		}
		return ProductPage{Count: len(items), Results: items}, nil
	}
	var page ProductPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return ProductPage{}, ErrDecode
	}
	return page, nil
}
