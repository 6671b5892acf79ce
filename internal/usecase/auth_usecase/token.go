package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// access token の中身
type Claims struct {
	ClientID     int64
	TokenVersion int
	ExpiresAt    time.Time
}

// HS256 の発行と検証
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), ttl: ttl}
}

func (i *JWTIssuer) Issue(clientID int64, tokenVersion int, now time.Time) (string, time.Time, error) {
	exp := now.Add(i.ttl)

	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(clientID, 10),
		"tv":  tokenVersion,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse は署名と期限を検証して中身を返す
func (i *JWTIssuer) Parse(raw string) (Claims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	id, err := parseInt64(mc["sub"])
	if err != nil || id <= 0 {
		return Claims{}, ErrInvalidToken
	}
	tv, err := parseInt64(mc["tv"])
	if err != nil || tv < 0 {
		return Claims{}, ErrInvalidToken
	}
	exp, err := parseInt64(mc["exp"])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	return Claims{ClientID: id, TokenVersion: int(tv), ExpiresAt: time.Unix(exp, 0)}, nil
}

func parseInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected claim type %T", v)
	}
}

// NewRefreshToken は refresh token の平文とDB保存用hashを作る
func NewRefreshToken() (plain string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	plain = base64.RawURLEncoding.EncodeToString(b)
	return plain, HashToken(plain), nil
}

func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
