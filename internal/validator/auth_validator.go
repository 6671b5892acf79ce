package validator

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/repository"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"
)

var (
	// 入力が不正
	ErrInvalidInput = usecase.NewHTTPError(http.StatusBadRequest, "invalid input")

	// emailが既に使用済み
	ErrEmailAlreadyUsed = usecase.NewHTTPError(http.StatusConflict, "email already used")

	// 電話番号が既に使用済み
	ErrPhoneAlreadyUsed = usecase.NewHTTPError(http.StatusConflict, "phone already used")

	// refresh tokenが不正
	ErrInvalidRefresh = usecase.NewHTTPError(http.StatusBadRequest, "refresh required")
)

type authValidator struct {
	clients repository.ClientRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(clients repository.ClientRepository) usecase.AuthValidator {
	return &authValidator{clients: clients}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, in usecase.RegisterInput) error {
	email := auth.NormalizeEmail(in.Email)

	// 必須チェック
	if email == "" || in.Password == "" {
		return ErrInvalidInput
	}

	// email形式
	if !auth.IsValidEmail(email) {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid email")
	}

	// パスワード規則
	if err := auth.CheckPassword(in.Password); err != nil {
		return passwordError(err)
	}

	// 電話番号は任意（書いたなら正しい形式）
	phone := ""
	if strings.TrimSpace(in.PhoneNumber) != "" {
		phone = auth.NormalizePhone(in.PhoneNumber)
		if phone == "" {
			return usecase.NewHTTPError(http.StatusBadRequest, "invalid phone_number")
		}
	}

	// 重複チェック（DBが必要）
	if c, err := v.clients.FindByEmail(ctx, email); err == nil && c != nil {
		return ErrEmailAlreadyUsed
	}
	if phone != "" {
		if c, err := v.clients.FindByPhone(ctx, phone); err == nil && c != nil {
			return ErrPhoneAlreadyUsed
		}
	}

	return nil
}

// ログインの入力を検証（メールか電話番号）
func (v *authValidator) ValidateLogin(ctx context.Context, login string, password string) error {
	login = strings.TrimSpace(login)

	// 必須チェック
	if login == "" || password == "" {
		return ErrInvalidInput
	}

	if auth.IsEmailLogin(login) {
		if !auth.IsValidEmail(auth.NormalizeEmail(login)) {
			return ErrInvalidInput
		}
		return nil
	}
	if auth.NormalizePhone(login) == "" {
		return ErrInvalidInput
	}
	return nil
}

// refresh 入力を検証
func (v *authValidator) ValidateRefresh(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return ErrInvalidRefresh
	}
	return nil
}

// プロフィール更新（nil は見ない）
func (v *authValidator) ValidateProfile(ctx context.Context, clientID int64, patch usecase.ProfilePatch) error {
	if patch.Email != nil {
		email := auth.NormalizeEmail(*patch.Email)
		if !auth.IsValidEmail(email) {
			return usecase.NewHTTPError(http.StatusBadRequest, "invalid email")
		}
		if c, err := v.clients.FindByEmail(ctx, email); err == nil && c != nil && c.ID != clientID {
			return ErrEmailAlreadyUsed
		}
	}

	if patch.PhoneNumber != nil && strings.TrimSpace(*patch.PhoneNumber) != "" {
		phone := auth.NormalizePhone(*patch.PhoneNumber)
		if phone == "" {
			return usecase.NewHTTPError(http.StatusBadRequest, "invalid phone_number")
		}
		if c, err := v.clients.FindByPhone(ctx, phone); err == nil && c != nil && c.ID != clientID {
			return ErrPhoneAlreadyUsed
		}
	}

	if patch.Birthday != nil && strings.TrimSpace(*patch.Birthday) != "" {
		b, err := time.Parse("2006-01-02", strings.TrimSpace(*patch.Birthday))
		if err != nil || b.After(time.Now()) {
			return usecase.NewHTTPError(http.StatusBadRequest, "invalid birthday")
		}
	}

	for _, s := range []*string{patch.Name, patch.Surname, patch.Patronymic} {
		if s != nil && len(*s) > 150 {
			return usecase.NewHTTPError(http.StatusBadRequest, "name too long")
		}
	}
	return nil
}

func passwordError(err error) error {
	switch {
	case errors.Is(err, auth.ErrPasswordTooShort):
		return usecase.NewHTTPError(http.StatusBadRequest, "password too short")
	case errors.Is(err, auth.ErrWeakPassword):
		return usecase.NewHTTPError(http.StatusBadRequest, "password too weak")
	}
	return ErrInvalidInput
}
