package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"app/internal/config"
	"app/internal/domain/model"
	repo "app/internal/repository"
)

// accesstokenの有効期限
const accessTokenTTL = 15 * time.Minute

// refreshtokenの有効期限
const refreshTokenTTL = 30 * 24 * time.Hour

type UserDTO struct {
	ID              int64  `json:"id"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	ServiceCenterID *int64 `json:"service_center_id"`
	IsActive        bool   `json:"is_active"`
}

type AuthRegisterInput struct {
	Email           string
	Password        string
	Role            string
	ServiceCenterID *int64
}

type AuthLoginInput struct {
	Email    string
	Password string
}

type AuthTokenOutput struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type AuthLoginOutput struct {
	User  UserDTO         `json:"user"`
	Token AuthTokenOutput `json:"token"`

	//cookieに載せる平文。bodyには出さない
	RefreshTokenPlain string `json:"-"`
}

type AuthUsecase struct {
	cfg    config.Config
	users  repo.UserRepository
	tokens repo.RefreshTokenRepository
	now    func() time.Time
}

func NewAuthUsecase(cfg config.Config, users repo.UserRepository, tokens repo.RefreshTokenRepository) *AuthUsecase {
	return &AuthUsecase{
		cfg:    cfg,
		users:  users,
		tokens: tokens,
		now:    time.Now,
	}
}

// ユーザー登録。SERVICE_CENTERロールには所属センターが必須。
func (u *AuthUsecase) Register(ctx context.Context, in AuthRegisterInput) (UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	if len(in.Password) < 8 {
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}

	role := model.Role(strings.ToUpper(strings.TrimSpace(in.Role)))
	if role == "" {
		role = model.RoleServiceCenter
	}
	switch role {
	case model.RoleServiceCenter:
		if in.ServiceCenterID == nil {
			return UserDTO{}, NewHTTPError(http.StatusBadRequest, "service_center_id required for SERVICE_CENTER role")
		}
	case model.RoleCIM, model.RoleAdmin:
		//スタッフはセンターに属さない
		in.ServiceCenterID = nil
	default:
		return UserDTO{}, NewHTTPError(http.StatusBadRequest, "invalid role")
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserDTO{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	created, err := u.users.Create(ctx, model.User{
		Email:           email,
		PasswordHash:    string(pwHash),
		Role:            role,
		ServiceCenterID: in.ServiceCenterID,
		IsActive:        true,
	})
	if err != nil {
		if err == repo.ErrConflict {
			return UserDTO{}, NewHTTPError(http.StatusConflict, "email already registered")
		}
		return UserDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toUserDTO(created), nil
}

func (u *AuthUsecase) Login(ctx context.Context, in AuthLoginInput) (AuthLoginOutput, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		//存在しないメールとパスワード不一致は区別しない
		return AuthLoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return AuthLoginOutput{}, NewHTTPError(http.StatusForbidden, "account disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return AuthLoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	_ = u.users.UpdateLastLogin(ctx, user.ID)

	accessToken, expiresIn, err := u.issueAccessToken(user)
	if err != nil {
		return AuthLoginOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	//refresh tokenはDBにhashだけ保存する
	refreshPlain, refreshHash, err := newRandomTokenAndHash()
	if err != nil {
		return AuthLoginOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := u.tokens.Create(ctx, model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: refreshHash,
		ExpiresAt: u.now().Add(refreshTokenTTL),
	}); err != nil {
		return AuthLoginOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return AuthLoginOutput{
		User: toUserDTO(user),
		Token: AuthTokenOutput{
			AccessToken: accessToken,
			ExpiresIn:   expiresIn,
		},
		RefreshTokenPlain: refreshPlain,
	}, nil
}

// refresh tokenのローテーション。旧tokenはrevokeして新しい組を返す。
func (u *AuthUsecase) Refresh(ctx context.Context, refreshTokenPlain string) (AuthLoginOutput, error) {
	if refreshTokenPlain == "" {
		return AuthLoginOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	rt, err := u.tokens.FindByTokenHash(ctx, hashToken(refreshTokenPlain))
	if err != nil {
		return AuthLoginOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if rt.RevokedAt != nil || rt.ExpiresAt.Before(u.now()) {
		return AuthLoginOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.users.FindByID(ctx, rt.UserID)
	if err != nil {
		return AuthLoginOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !user.IsActive {
		return AuthLoginOutput{}, NewHTTPError(http.StatusForbidden, "account disabled")
	}

	if err := u.tokens.Revoke(ctx, rt.ID); err != nil {
		return AuthLoginOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	accessToken, expiresIn, err := u.issueAccessToken(user)
	if err != nil {
		return AuthLoginOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	refreshPlain, refreshHash, err := newRandomTokenAndHash()
	if err != nil {
		return AuthLoginOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := u.tokens.Create(ctx, model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: refreshHash,
		ExpiresAt: u.now().Add(refreshTokenTTL),
	}); err != nil {
		return AuthLoginOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return AuthLoginOutput{
		User: toUserDTO(user),
		Token: AuthTokenOutput{
			AccessToken: accessToken,
			ExpiresIn:   expiresIn,
		},
		RefreshTokenPlain: refreshPlain,
	}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (UserDTO, error) {
	if userID <= 0 {
		return UserDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return UserDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return toUserDTO(user), nil
}

func (u *AuthUsecase) issueAccessToken(user model.User) (string, int, error) {
	now := u.now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(accessTokenTTL).Unix(),
	}
	if user.ServiceCenterID != nil {
		claims["service_center_id"] = *user.ServiceCenterID
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(u.cfg.JWTSecret))
	if err != nil {
		return "", 0, err
	}
	return signed, int(accessTokenTTL.Seconds()), nil
}

// refresh token生成（平文 + DB保存hash）
func newRandomTokenAndHash() (plain string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	plain = base64.RawURLEncoding.EncodeToString(b)
	sum := sha256.Sum256([]byte(plain))
	hash = base64.RawURLEncoding.EncodeToString(sum[:])
	return plain, hash, nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func toUserDTO(u model.User) UserDTO {
	return UserDTO{
		ID:              u.ID,
		Email:           u.Email,
		Role:            string(u.Role),
		ServiceCenterID: u.ServiceCenterID,
		IsActive:        u.IsActive,
	}
}
