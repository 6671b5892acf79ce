package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTIssuer_RoundTrip(t *testing.T) {
	i := NewJWTIssuer("secret", 15*time.Minute)
	now := time.Now()

	raw, exp, err := i.Issue(42, 3, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute).Unix(), exp.Unix())

	c, err := i.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.ClientID)
	assert.Equal(t, 3, c.TokenVersion)
	assert.Equal(t, exp.Unix(), c.ExpiresAt.Unix())
}

func TestJWTIssuer_Rejects(t *testing.T) {
	i := NewJWTIssuer("secret", time.Minute)

	//期限切れ
	raw, _, err := i.Issue(1, 0, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = i.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	//別の鍵
	other, _, err := NewJWTIssuer("other", time.Minute).Issue(1, 0, time.Now())
	require.NoError(t, err)
	_, err = i.Parse(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	//HS256以外
	none, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "1", "tv": 0, "exp": time.Now().Add(time.Minute).Unix()}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = i.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = i.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken(t *testing.T) {
	p1, h1, err := NewRefreshToken()
	require.NoError(t, err)
	p2, _, err := NewRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
	assert.Equal(t, h1, HashToken(p1))
	assert.NotEqual(t, p1, h1)
}

func TestCheckPassword(t *testing.T) {
	assert.ErrorIs(t, CheckPassword("short"), ErrPasswordTooShort)
	assert.ErrorIs(t, CheckPassword("Password123"), ErrWeakPassword)
	assert.NoError(t, CheckPassword("s3cure-enough"))
}

func TestBcrypt(t *testing.T) {
	h := NewBcryptPasswordHasher(4)
	hashed, err := h.Hash("s3cure-enough")
	require.NoError(t, err)
	assert.True(t, h.Verify("s3cure-enough", hashed))
	assert.False(t, h.Verify("wrong", hashed))
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"8 (918) 123-45-67": "+79181234567",
		"+7 918 123 45 67":  "+79181234567",
		"9181234567":        "+79181234567",
		"+375 29 123 45 67": "+375291234567",
		"123":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePhone(in), in)
	}
}

func TestEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.ru"))
	assert.False(t, IsValidEmail("Name <a@b.ru>"))
	assert.False(t, IsValidEmail("nope"))
	assert.Equal(t, "a@b.ru", NormalizeEmail("  A@B.ru "))
	assert.True(t, IsEmailLogin("a@b.ru"))
	assert.False(t, IsEmailLogin("+79181234567"))
}
