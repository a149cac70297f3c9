package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brightmarket/storefront/internal/auth"
	"github.com/brightmarket/storefront/internal/models"
	"github.com/brightmarket/storefront/internal/services"
	pkghttp "github.com/brightmarket/storefront/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, email, password, name string, meta services.RequestMeta) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string, rememberMe bool, meta services.RequestMeta) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID string) error
	ForgotPassword(ctx context.Context, email string, meta services.RequestMeta) error
	ResetPassword(ctx context.Context, plainToken, newPassword string, meta services.RequestMeta) error
}

// EmailVerificationServiceInterface defines the interface for email verification
type EmailVerificationServiceInterface interface {
	VerifyEmail(ctx context.Context, plainToken string) (string, error)
	ResendVerification(ctx context.Context, email string) error
}

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	service             AuthServiceInterface
	verificationService EmailVerificationServiceInterface
	ipConfig            *pkghttp.IPConfig
	cookieConfig        auth.CookieConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	service AuthServiceInterface,
	verificationService EmailVerificationServiceInterface,
	ipConfig *pkghttp.IPConfig,
	cookieConfig auth.CookieConfig,
) *AuthHandler {
	return &AuthHandler{
		service:             service,
		verificationService: verificationService,
		ipConfig:            ipConfig,
		cookieConfig:        cookieConfig,
	}
}

// Request DTOs

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"omitempty,max=100"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// ForgotPasswordRequest represents the request body for a reset link request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request body for completing a reset
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// VerifyEmailRequest represents the request body for email verification
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// ResendVerificationRequest represents the request body for a new verification link
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// AuthPayload is the data half of register/login/refresh responses. The
// refresh token never appears here; it travels in the HttpOnly cookie.
type AuthPayload struct {
	User        *services.UserResponse `json:"user"`
	AccessToken string                 `json:"accessToken"`
}

// MessagePayload carries a human-readable message with no other data
type MessagePayload struct {
	Message string `json:"message"`
}

func (h *AuthHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		UserAgent: r.Header.Get("User-Agent"),
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	result, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name, h.requestMeta(r))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteUserExists(w)
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteValidationError(w, err.Error())
		default:
			pkghttp.WriteInternalError(w)
		}
		return
	}

	auth.SetRefreshTokenCookie(w, result.RefreshToken, result.RefreshTTL, h.cookieConfig)
	pkghttp.WriteSuccess(w, http.StatusCreated, AuthPayload{User: result.User, AccessToken: result.AccessToken})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password, req.RememberMe, h.requestMeta(r))
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteInvalidCredentials(w)
		} else {
			pkghttp.WriteInternalError(w)
		}
		return
	}

	auth.SetRefreshTokenCookie(w, result.RefreshToken, result.RefreshTTL, h.cookieConfig)
	pkghttp.WriteSuccess(w, http.StatusOK, AuthPayload{User: result.User, AccessToken: result.AccessToken})
}

// Refresh handles POST /auth/refresh. The refresh token comes from the
// cookie; a rejected token also clears the cookie so the client stops
// retrying a dead session.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken, err := auth.GetRefreshTokenCookie(r)
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	result, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			auth.ClearRefreshTokenCookie(w, h.cookieConfig)
			pkghttp.WriteUnauthorized(w, "Session expired")
		} else {
			pkghttp.WriteInternalError(w)
		}
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, AuthPayload{User: result.User, AccessToken: result.AccessToken})
}

// Logout handles POST /auth/logout. Always succeeds: a missing or invalid
// cookie means there is nothing left to revoke.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken, _ := auth.GetRefreshTokenCookie(r)

	if err := h.service.Logout(r.Context(), refreshToken); err != nil {
		pkghttp.WriteInternalError(w)
		return
	}

	auth.ClearRefreshTokenCookie(w, h.cookieConfig)
	pkghttp.WriteSuccess(w, http.StatusOK, MessagePayload{Message: "Logged out"})
}

// LogoutAll handles POST /auth/logout-all for the authenticated user
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	if err := h.service.LogoutAll(r.Context(), claims.UserID); err != nil {
		pkghttp.WriteInternalError(w)
		return
	}

	auth.ClearRefreshTokenCookie(w, h.cookieConfig)
	pkghttp.WriteSuccess(w, http.StatusOK, MessagePayload{Message: "Logged out from all devices"})
}

const forgotPasswordMessage = "If an account exists for that email, a password reset link has been sent."

// ForgotPassword handles POST /auth/forgot-password. The response is the
// same whether or not the account exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email, h.requestMeta(r)); err != nil {
		pkghttp.WriteInternalError(w)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, MessagePayload{Message: forgotPasswordMessage})
}

// ResetPassword handles POST /auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password, h.requestMeta(r)); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidToken):
			pkghttp.WriteInvalidToken(w)
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteValidationError(w, err.Error())
		default:
			pkghttp.WriteInternalError(w)
		}
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, MessagePayload{Message: "Password updated. Please sign in with your new password."})
}

// VerifyEmail handles POST /auth/verify-email
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	if _, err := h.verificationService.VerifyEmail(r.Context(), req.Token); err != nil {
		if errors.Is(err, models.ErrInvalidToken) {
			pkghttp.WriteInvalidToken(w)
		} else {
			pkghttp.WriteInternalError(w)
		}
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, MessagePayload{Message: "Email verified"})
}

const resendVerificationMessage = "If an account exists for that email, a verification link has been sent."

// ResendVerification handles POST /auth/resend-verification with the same
// anti-enumeration shape as ForgotPassword
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	if err := h.verificationService.ResendVerification(r.Context(), req.Email); err != nil {
		pkghttp.WriteInternalError(w)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, MessagePayload{Message: resendVerificationMessage})
}
