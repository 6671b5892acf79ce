package auth

import (
	"net/mail"
	"strings"
	"unicode"
)

// メールチェック
func IsValidEmail(email string) bool {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return false
	}
	addr, err := mail.ParseAddress(trimmed)
	return err == nil && addr.Address == trimmed
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone は「+7XXXXXXXXXX」にそろえる。
// 8 始まりの11桁と 10桁は ロシアの番号として扱う。数字が足りなければ "" を返す
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case len(d) == 11 && (d[0] == '8' || d[0] == '7'):
		return "+7" + d[1:]
	case len(d) == 10:
		return "+7" + d
	case len(d) >= 11 && len(d) <= 15 && strings.HasPrefix(strings.TrimSpace(phone), "+"):
		return "+" + d
	}
	return ""
}

// ログインIDがメールかどうか
func IsEmailLogin(login string) bool {
	return strings.Contains(login, "@")
}
