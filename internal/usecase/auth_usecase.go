package usecase

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/infra/media"
	"storefront/internal/repository"
	auth "storefront/internal/usecase/auth_usecase"

	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

var (
	//401 認証失敗
	ErrUnauthorized = NewHTTPError(http.StatusUnauthorized, "unauthorized")
	//401 ログイン失敗
	ErrInvalidCredentials = NewHTTPError(http.StatusUnauthorized, "invalid_credentials")
	//401 再利用されてしまっている
	ErrSecurityIncident = NewHTTPError(http.StatusUnauthorized, "token_reused")
	//403 停止中
	ErrForbidden = NewHTTPError(http.StatusForbidden, "client_inactive")
	//409 競合
	ErrConflict = NewHTTPError(http.StatusConflict, "email_or_phone_taken")
	//500
	ErrInternal = NewHTTPError(http.StatusInternalServerError, "internal error")
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, in RegisterInput) error
	ValidateLogin(ctx context.Context, login string, password string) error
	ValidateRefresh(ctx context.Context, refreshToken string) error
	ValidateProfile(ctx context.Context, clientID int64, patch ProfilePatch) error
}

// アバター画像の保存先
type MediaStorage interface {
	Save(ctx context.Context, dir string, filename string, r io.Reader) (rel string, err error)
	Remove(rel string) error
}

type RegisterInput struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Surname     string `json:"surname"`
}

// nil は変更しない
type ProfilePatch struct {
	Surname     *string `json:"surname"`
	Name        *string `json:"name"`
	Patronymic  *string `json:"patronymic"`
	PhoneNumber *string `json:"phone_number"`
	Email       *string `json:"email"`
	Birthday    *string `json:"birthday"`
}

type AuthUsecase struct {
	cfg       config.Config
	clients   repository.ClientRepository
	rtRepo    repository.RefreshTokenRepository
	validator AuthValidator
	hasher    auth.PasswordHasher
	verifier  auth.PasswordVerifier
	issuer    auth.AccessTokenIssuer
	idGen     auth.IDGenerator
	clock     auth.Clock
	media     MediaStorage
	url       URLFunc
	log       logrus.FieldLogger
}

type AuthDeps struct {
	Clients   repository.ClientRepository
	Tokens    repository.RefreshTokenRepository
	Validator AuthValidator
	Hasher    auth.PasswordHasher
	Verifier  auth.PasswordVerifier
	Issuer    auth.AccessTokenIssuer
	IDGen     auth.IDGenerator
	Clock     auth.Clock
	Media     MediaStorage
	Log       logrus.FieldLogger
}

func NewAuthUsecase(cfg config.Config, d AuthDeps) *AuthUsecase {
	if d.IDGen == nil {
		d.IDGen = auth.UUIDGenerator{}
	}
	if d.Clock == nil {
		d.Clock = auth.SystemClock{}
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &AuthUsecase{
		cfg:       cfg,
		clients:   d.Clients,
		rtRepo:    d.Tokens,
		validator: d.Validator,
		hasher:    d.Hasher,
		verifier:  d.Verifier,
		issuer:    d.Issuer,
		idGen:     d.IDGen,
		clock:     d.Clock,
		media:     d.Media,
		url:       PrefixURL(cfg.MediaURL),
		log:       d.Log,
	}
}

// 会員登録してそのままログイン状態のペアを返す
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput, userAgent string) (*TokenPairDTO, error) {
	in.Email = auth.NormalizeEmail(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)

	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, in); err != nil {
		return nil, err
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return nil, ErrInternal
	}

	client := &model.Client{
		Email:        in.Email,
		PasswordHash: pwHash,
		Name:         strings.TrimSpace(in.Name),
		Surname:      strings.TrimSpace(in.Surname),
		TokenVersion: 0,
		IsActive:     true,
	}
	if phone := auth.NormalizePhone(in.PhoneNumber); phone != "" {
		client.PhoneNumber = &phone
	}

	if err := u.clients.Create(ctx, client); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, ErrInternal
	}

	u.log.WithField("client_id", client.ID).Info("client registered")
	return u.issuePair(ctx, client, userAgent)
}

// login はメールか電話番号
func (u *AuthUsecase) Login(ctx context.Context, login string, password string, userAgent string) (*TokenPairDTO, error) {
	login = strings.TrimSpace(login)
	if err := u.validator.ValidateLogin(ctx, login, password); err != nil {
		return nil, err
	}

	var (
		client *model.Client
		err    error
	)
	if auth.IsEmailLogin(login) {
		client, err = u.clients.FindByEmail(ctx, auth.NormalizeEmail(login))
	} else {
		client, err = u.clients.FindByPhone(ctx, auth.NormalizePhone(login))
	}
	if err != nil || client == nil {
		return nil, ErrInvalidCredentials
	}

	//停止ユーザーはログイン不可
	if !client.IsActive {
		return nil, ErrForbidden
	}

	//パスワード照合（bcrypt）
	if !u.verifier.Verify(password, client.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	//last_login更新
	now := u.clock.Now()
	client.LastLoginAt = &now
	if err := u.clients.Update(ctx, client); err != nil {
		u.log.WithError(err).Warn("last_login_at not updated")
	}

	return u.issuePair(ctx, client, userAgent)
}

// Refresh は refresh token を1回だけ使えるものとしてローテーションする。
// 使用済みが再提示されたら、その会員のトークンを全て失効させる。
func (u *AuthUsecase) Refresh(ctx context.Context, refreshTokenPlain string, userAgent string) (*TokenPairDTO, error) {
	//入力検証
	if err := u.validator.ValidateRefresh(ctx, refreshTokenPlain); err != nil {
		return nil, err
	}

	rt, err := u.rtRepo.FindByTokenHash(ctx, auth.HashToken(refreshTokenPlain))
	if err != nil || rt == nil {
		return nil, ErrUnauthorized
	}

	now := u.clock.Now()

	//期限切れ
	if rt.ExpiresAt.Before(now) {
		_ = u.rtRepo.DeleteByID(ctx, rt.ID)
		return nil, ErrUnauthorized
	}

	//revoked
	if rt.RevokedAt != nil {
		return nil, ErrUnauthorized
	}

	//used済みが来たら replay → 全削除
	if rt.UsedAt != nil {
		u.revokeAll(ctx, rt.ClientID, "refresh token replay")
		return nil, ErrSecurityIncident
	}

	client, err := u.clients.FindByID(ctx, rt.ClientID)
	if err != nil || client == nil {
		return nil, ErrUnauthorized
	}
	if !client.IsActive {
		return nil, ErrForbidden
	}

	//旧tokenをusedにする（同時に使われたら片方だけ通る）
	if err := u.rtRepo.MarkUsed(ctx, rt.ID, now); err != nil {
		u.revokeAll(ctx, rt.ClientID, "refresh token raced")
		return nil, ErrSecurityIncident
	}

	if userAgent == "" {
		userAgent = rt.UserAgent
	}
	return u.issuePair(ctx, client, userAgent)
}

// 全 refresh token を消し、発行済み access token も無効にする
func (u *AuthUsecase) revokeAll(ctx context.Context, clientID int64, reason string) {
	log := u.log.WithFields(logrus.Fields{"client_id": clientID, "reason": reason})
	if err := u.rtRepo.DeleteAllByClientID(ctx, clientID); err != nil {
		log.WithError(err).Error("refresh tokens not revoked")
	}
	if err := u.clients.IncrementTokenVersion(ctx, clientID); err != nil {
		log.WithError(err).Error("token version not bumped")
	}
	log.Warn("security incident: all sessions revoked")
}

func (u *AuthUsecase) Me(ctx context.Context, clientID int64) (*ProfileDTO, error) {
	client, err := u.activeClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	dto := toProfileDTO(client, u.url)
	return &dto, nil
}

func (u *AuthUsecase) UpdateMe(ctx context.Context, clientID int64, patch ProfilePatch) (*ProfileDTO, error) {
	client, err := u.activeClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if err := u.validator.ValidateProfile(ctx, clientID, patch); err != nil {
		return nil, err
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&client.Surname, patch.Surname)
	set(&client.Name, patch.Name)
	set(&client.Patronymic, patch.Patronymic)
	if patch.Email != nil {
		client.Email = auth.NormalizeEmail(*patch.Email)
	}
	if patch.PhoneNumber != nil {
		if phone := auth.NormalizePhone(*patch.PhoneNumber); phone != "" {
			client.PhoneNumber = &phone
		} else {
			client.PhoneNumber = nil
		}
	}
	if patch.Birthday != nil {
		if s := strings.TrimSpace(*patch.Birthday); s == "" {
			client.Birthday = nil
		} else {
			b, _ := time.Parse(dateLayout, s)
			client.Birthday = &b
		}
	}

	if err := u.clients.Update(ctx, client); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, ErrInternal
	}

	dto := toProfileDTO(client, u.url)
	return &dto, nil
}

// UploadAvatar は画像を保存して差し替える（古い画像は消す）
func (u *AuthUsecase) UploadAvatar(ctx context.Context, clientID int64, filename string, r io.Reader) (*ProfileDTO, error) {
	client, err := u.activeClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	rel, err := u.media.Save(ctx, "avatars", filename, r)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrUnsupportedType):
			return nil, NewHTTPError(http.StatusBadRequest, "unsupported image type")
		case errors.Is(err, media.ErrTooLarge):
			return nil, NewHTTPError(http.StatusRequestEntityTooLarge, "image too large")
		}
		u.log.WithError(err).Error("avatar not saved")
		return nil, ErrInternal
	}

	old := client.Image
	client.Image = rel
	if err := u.clients.Update(ctx, client); err != nil {
		_ = u.media.Remove(rel)
		return nil, ErrInternal
	}
	if old != "" {
		if err := u.media.Remove(old); err != nil {
			u.log.WithError(err).Debug("old avatar not removed")
		}
	}

	dto := toProfileDTO(client, u.url)
	return &dto, nil
}

func (u *AuthUsecase) activeClient(ctx context.Context, clientID int64) (*model.Client, error) {
	if clientID <= 0 {
		return nil, ErrUnauthorized
	}
	client, err := u.clients.FindByID(ctx, clientID)
	if err != nil || client == nil {
		return nil, ErrUnauthorized
	}
	if !client.IsActive {
		return nil, ErrForbidden
	}
	return client, nil
}

// access と refresh を発行（refresh はhashだけ保存）
func (u *AuthUsecase) issuePair(ctx context.Context, client *model.Client, userAgent string) (*TokenPairDTO, error) {
	now := u.clock.Now()

	access, _, err := u.issuer.Issue(client.ID, client.TokenVersion, now)
	if err != nil {
		return nil, ErrInternal
	}

	plain, hash, err := auth.NewRefreshToken()
	if err != nil {
		return nil, ErrInternal
	}

	rt := &model.RefreshToken{
		ID:        u.idGen.NewID(),
		ClientID:  client.ID,
		TokenHash: hash,
		UserAgent: userAgent,
		ExpiresAt: now.Add(u.cfg.RefreshTTL),
	}
	if err := u.rtRepo.Create(ctx, rt); err != nil {
		return nil, ErrInternal
	}

	return &TokenPairDTO{Access: access, Refresh: plain}, nil
}
