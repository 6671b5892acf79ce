package api

import (
	"context"
	"net/http"
	"net/url"
)

// GET /favorites/ の slug 一覧
func (c *Client) Favorites(ctx context.Context) ([]string, error) {
	res, err := c.Request(ctx, http.MethodGet, "/favorites/", nil)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	page, err := decodePage(res.Data)
	if err != nil {
		return nil, err
	}

	slugs := make([]string, 0, len(page.Results))
	for _, p := range page.Results {
		if p.Slug != "" {
			slugs = append(slugs, p.Slug)
		}
	}
	return slugs, nil
}

// PUT /favorites/{slug}/（204）
func (c *Client) AddFavorite(ctx context.Context, slug string) error {
	return c.call(ctx, http.MethodPut, favoritePath(slug), nil, nil)
}

// DELETE /favorites/{slug}/（204）
func (c *Client) RemoveFavorite(ctx context.Context, slug string) error {
	return c.call(ctx, http.MethodDelete, favoritePath(slug), nil, nil)
}

func favoritePath(slug string) string {
	return "/favorites/" + url.PathEscape(slug) + "/"
}
