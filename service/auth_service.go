package service

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"pharmacy-api/common"
	"pharmacy-api/config"
	"pharmacy-api/logger"
	"pharmacy-api/model"
	"pharmacy-api/repository"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// Email verification links are short-lived; a fresh one can always be requested.
const emailTokenTTL = 10 * time.Minute

// AuthService owns the whole token lifecycle: password hashing, token
// signing/verification, and the single-use refresh rotation protocol backed
// by the token ledger. Signing material is captured at construction; nothing
// here reads global configuration at call time.
type AuthService struct {
	userRepo  repository.IUserRepository
	tokenRepo repository.ITokenRepository
	jwtCfg    config.JWTConfig
	mailer    Mailer
}

func NewAuthService(userRepo repository.IUserRepository, tokenRepo repository.ITokenRepository, jwtCfg config.JWTConfig, mailer Mailer) *AuthService {
	if mailer == nil {
		mailer = &LogMailer{}
	}
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		jwtCfg:    jwtCfg,
		mailer:    mailer,
	}
}

// AuthResult bundles the outcome of register/login: the user plus a fresh
// access/refresh pair.
type AuthResult struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
}

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), nil
}

func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func (s *AuthService) secretFor(kind model.TokenKind) ([]byte, error) {
	switch kind {
	case model.TokenKindAccess:
		return []byte(s.jwtCfg.AccessSecret), nil
	case model.TokenKindRefresh:
		return []byte(s.jwtCfg.RefreshSecret), nil
	}
	return nil, fmt.Errorf("no signing key for token kind %q", kind)
}

func (s *AuthService) signToken(user *model.User, kind model.TokenKind, ttl time.Duration) (string, error) {
	secret, err := s.secretFor(kind)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := &model.AppClaims{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		Status:      user.Status,
		ProfileID:   user.ID,
		Permissions: model.PermissionsForRole(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			// The token ID keeps two tokens issued within the same second
			// from colliding; the ledger relies on token uniqueness.
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		logger.Log.WithError(err).WithField("email", user.Email).Error("Failed to sign JWT")
		return "", fmt.Errorf("failed to sign token string: %w", err)
	}
	return tokenString, nil
}

// GenerateTokenPair issues an access/refresh pair for the user. The two
// tokens carry the same claims but are signed with different secrets and
// expire independently.
func (s *AuthService) GenerateTokenPair(user *model.User) (accessToken, refreshToken string, err error) {
	accessToken, err = s.signToken(user, model.TokenKindAccess, s.jwtCfg.AccessTTL())
	if err != nil {
		return "", "", err
	}
	refreshToken, err = s.signToken(user, model.TokenKindRefresh, s.jwtCfg.RefreshTTL())
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// VerifyToken checks signature and expiry for the given kind and returns the
// embedded claims. The returned error distinguishes malformed, bad-signature
// and expired tokens for logging; callers must present all three to the
// client as the same generic failure.
func (s *AuthService) VerifyToken(tokenString string, kind model.TokenKind) (*model.AppClaims, error) {
	secret, err := s.secretFor(kind)
	if err != nil {
		return nil, err
	}

	claims := &model.AppClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, common.ErrTokenSignature
		default:
			return nil, common.ErrTokenMalformed
		}
	}
	if !token.Valid {
		return nil, common.ErrTokenSignature
	}
	return claims, nil
}

// Register creates a new user and opens their first session. The email
// address is normalized to lower case before the uniqueness check.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*AuthResult, error) {
	role := req.Role
	if role == "" {
		role = model.RoleStaff
	}
	if !model.ValidRole(role) {
		return nil, common.ErrInvalidRole
	}

	hashedPassword, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		FullName: strings.TrimSpace(req.FullName),
		Email:    normalizeEmail(req.Email),
		Password: hashedPassword,
		Role:     role,
		Status:   model.StatusActive,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	result, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.issueEmailVerification(ctx, user); err != nil {
		// The account and session are already committed; verification can be retried.
		logger.Log.WithError(err).WithField("user_id", user.ID).Warn("Failed to issue email verification token")
	}

	return result, nil
}

// Login authenticates by email and password. Unknown email and wrong
// password are indistinguishable to the caller; the status check runs only
// after the password has verified, so it leaks nothing about which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.CheckPasswordHash(password, user.Password) {
		return nil, common.ErrInvalidCredentials
	}

	if user.Status != model.StatusActive {
		return nil, common.ErrAccountInactive
	}

	return s.openSession(ctx, user)
}

// Refresh rotates a refresh token: the old token must verify, still be
// active in the ledger, and belong to an active user. The old entry is
// consumed before the new one is recorded; under concurrent attempts with
// the same token only the caller whose consume wins receives tokens. Once
// the consume has committed the old token stays spent even if this call
// fails later.
func (s *AuthService) Refresh(ctx context.Context, oldRefreshToken string) (accessToken, refreshToken string, err error) {
	claims, err := s.VerifyToken(oldRefreshToken, model.TokenKindRefresh)
	if err != nil {
		logger.Log.WithError(err).Info("Refresh token failed verification")
		return "", "", common.ErrTokenNotFound
	}

	entry, err := s.tokenRepo.FindActive(ctx, oldRefreshToken, model.TokenKindRefresh)
	if err != nil {
		return "", "", err
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return "", "", common.ErrTokenNotFound
		}
		return "", "", err
	}
	if user.Status != model.StatusActive {
		return "", "", common.ErrAccountInactive
	}

	accessToken, refreshToken, err = s.GenerateTokenPair(user)
	if err != nil {
		return "", "", err
	}

	if err := s.tokenRepo.Consume(ctx, entry.ID); err != nil {
		// Lost the rotation race or the entry vanished; no tokens for this caller.
		return "", "", err
	}

	if err := s.recordRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// Logout revokes the refresh token if it exists. Unknown or already-used
// tokens are quietly accepted so the endpoint discloses nothing about token
// validity.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokenRepo.Revoke(ctx, refreshToken, model.TokenKindRefresh)
}

func (s *AuthService) GetProfile(ctx context.Context, userID int) (*model.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID int, req model.UpdateProfileRequest) (*model.User, error) {
	return s.userRepo.UpdateProfile(ctx, userID, strings.TrimSpace(req.FullName), normalizeEmail(req.Email))
}

// VerifyEmail consumes an email verification token and marks the account
// verified. Verification tokens are single-use through the same ledger
// mechanism as refresh tokens.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) error {
	entry, err := s.tokenRepo.FindActive(ctx, s.hmacDigest(rawToken), model.TokenKindEmailVerification)
	if err != nil {
		return err
	}
	if err := s.tokenRepo.Consume(ctx, entry.ID); err != nil {
		return err
	}
	return s.userRepo.SetEmailVerified(ctx, entry.UserID)
}

func (s *AuthService) openSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	accessToken, refreshToken, err := s.GenerateTokenPair(user)
	if err != nil {
		return nil, err
	}

	if err := s.recordRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.Log.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	}

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *AuthService) recordRefreshToken(ctx context.Context, userID int, refreshToken string) error {
	return s.tokenRepo.Create(ctx, &model.AuthToken{
		UserID:    userID,
		Token:     refreshToken,
		Kind:      model.TokenKindRefresh,
		ExpiresAt: time.Now().Add(s.jwtCfg.RefreshTTL()),
	})
}

// issueEmailVerification stores the HMAC digest of a random token in the
// ledger and hands the raw token to the mailer. Only the digest is ever
// persisted.
func (s *AuthService) issueEmailVerification(ctx context.Context, user *model.User) error {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	rawToken := hex.EncodeToString(raw)

	err := s.tokenRepo.Create(ctx, &model.AuthToken{
		UserID:    user.ID,
		Token:     s.hmacDigest(rawToken),
		Kind:      model.TokenKindEmailVerification,
		ExpiresAt: time.Now().Add(emailTokenTTL),
	})
	if err != nil {
		return err
	}

	return s.mailer.SendVerificationEmail(ctx, user.Email, rawToken)
}

func (s *AuthService) hmacDigest(value string) string {
	mac := hmac.New(sha256.New, []byte(s.jwtCfg.HMACSecret))
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
