package api

import "strings"

// 相対パスのメディアURLをメディアのオリジンで解決する
func (c *Client) MediaURL(u string) string {
	return ResolveMedia(c.mediaBase, u)
}

func ResolveMedia(base string, u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return u
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(u, "/")
}
