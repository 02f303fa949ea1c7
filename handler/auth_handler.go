package handler

import (
	"errors"
	"net/http"
	"pharmacy-api/common"
	"pharmacy-api/logger"
	"pharmacy-api/model"
	"pharmacy-api/service"

	"github.com/sirupsen/logrus"
)

// accessTokenCookie mirrors the access token into an HTTP-only cookie so
// browser clients need not manage the Authorization header themselves.
const accessTokenCookie = "token"

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type tokenPairResponse struct {
	User         *model.User `json:"user,omitempty"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
}

func setAccessTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearAccessTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// Register godoc
// @Summary      Register a new pharmacy user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.RegisterRequest true "Registration payload"
// @Success      201 {object} common.SuccessResponse
// @Failure      409 {object} common.AppError
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	log := logger.Log.WithField("email", req.Email)
	log.Info("Register request received")

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrEmailTaken):
			return common.Conflict("User with this email already exists", nil)
		case errors.Is(err, common.ErrInvalidRole):
			return common.BadRequest("Invalid role specified", nil)
		default:
			return common.Internal("Registration failed", err)
		}
	}

	setAccessTokenCookie(w, result.AccessToken)
	common.SendSuccess(w, http.StatusCreated, "User registered successfully", tokenPairResponse{
		User:         result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
	return nil
}

// Login godoc
// @Summary      Authenticate and receive an access/refresh token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.LoginRequest true "Login payload"
// @Success      200 {object} common.SuccessResponse
// @Failure      401 {object} common.AppError
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	log := logger.Log.WithField("email", req.Email)
	log.Info("Login request received")

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidCredentials):
			return common.Unauthorized("Invalid email or password", nil)
		case errors.Is(err, common.ErrAccountInactive):
			return common.Unauthorized("Account is not active", nil)
		default:
			return common.Internal("Login failed", err)
		}
	}

	setAccessTokenCookie(w, result.AccessToken)
	common.SendSuccess(w, http.StatusOK, "Login successful", tokenPairResponse{
		User:         result.User,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
	return nil
}

// Refresh exchanges a valid refresh token for a new pair. Every failure mode
// (expired, replayed, unknown, malformed) produces the same response; the
// real cause is only logged.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	accessToken, refreshToken, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrTokenNotFound),
			errors.Is(err, common.ErrTokenUsed),
			errors.Is(err, common.ErrAccountInactive):
			logger.Log.WithError(err).Info("Refresh rejected")
			return common.Unauthorized("Invalid or expired refresh token", nil)
		default:
			return common.Internal("Token refresh failed", err)
		}
	}

	setAccessTokenCookie(w, accessToken)
	common.SendSuccess(w, http.StatusOK, "Token refreshed successfully", tokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
	return nil
}

// Logout revokes the supplied refresh token. It succeeds regardless of
// whether the token was known, valid, or already used.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LogoutRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		return common.Internal("Logout failed", err)
	}

	clearAccessTokenCookie(w)
	common.SendSuccess(w, http.StatusOK, "Logout successful", nil)
	return nil
}

// GetProfile returns the authenticated user's profile.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := r.Context().Value(UserIDKey).(int)
	if !ok {
		return common.Unauthorized("Invalid user ID in token", nil)
	}

	user, err := h.authService.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return common.NotFound("User not found", nil)
		}
		return common.Internal("Failed to get profile", err)
	}

	common.SendSuccess(w, http.StatusOK, "Profile retrieved successfully", user)
	return nil
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := r.Context().Value(UserIDKey).(int)
	if !ok {
		return common.Unauthorized("Invalid user ID in token", nil)
	}

	var req model.UpdateProfileRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	user, err := h.authService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrUserNotFound):
			return common.NotFound("User not found", nil)
		case errors.Is(err, common.ErrEmailTaken):
			return common.Conflict("User with this email already exists", nil)
		default:
			return common.Internal("Failed to update profile", err)
		}
	}

	common.SendSuccess(w, http.StatusOK, "Profile updated successfully", user)
	return nil
}

// VerifyEmail consumes an email verification token from the URL path.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) *common.AppError {
	token := r.PathValue("token")
	if token == "" {
		return common.BadRequest("Verification token is required", nil)
	}

	if err := h.authService.VerifyEmail(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, common.ErrTokenNotFound), errors.Is(err, common.ErrTokenUsed):
			logger.Log.WithFields(logrus.Fields{"reason": err.Error()}).Info("Email verification rejected")
			return common.Unauthorized("Invalid or expired verification token", nil)
		default:
			return common.Internal("Email verification failed", err)
		}
	}

	common.SendSuccess(w, http.StatusOK, "Email verified successfully", nil)
	return nil
}
