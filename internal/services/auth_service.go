package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brightmarket/storefront/internal/auth"
	"github.com/brightmarket/storefront/internal/models"
	pkgauth "github.com/brightmarket/storefront/pkg/auth"
	pkglogger "github.com/brightmarket/storefront/pkg/logger"
	"github.com/google/uuid"
)

// SessionRepository defines the interface for session data access
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// PasswordResetRepository defines the interface for password reset token operations
type PasswordResetRepository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.OneTimeToken, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.OneTimeToken, error)
	InvalidateByUserID(ctx context.Context, userID string) error
	Consume(ctx context.Context, tokenID, userID, passwordHash string) error
}

// VerificationSender sends the initial verification email after registration
type VerificationSender interface {
	SendVerificationEmail(ctx context.Context, userID, email string) error
}

// AuthService handles authentication business logic
type AuthService struct {
	userRepo         UserRepository
	sessionRepo      SessionRepository
	resetRepo        PasswordResetRepository
	verification     VerificationSender
	emailService     EmailService
	tm               *auth.TokenManager
	logger           *slog.Logger
	auditLogger      *pkglogger.AuditLogger
	resetTokenExpiry time.Duration
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	resetRepo PasswordResetRepository,
	verification VerificationSender,
	emailService EmailService,
	tm *auth.TokenManager,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	resetTokenExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		sessionRepo:      sessionRepo,
		resetRepo:        resetRepo,
		verification:     verification,
		emailService:     emailService,
		tm:               tm,
		logger:           logger,
		auditLogger:      auditLogger,
		resetTokenExpiry: resetTokenExpiry,
	}
}

// RequestMeta carries per-request client details into the session row
type RequestMeta struct {
	UserAgent string
	IPAddress string
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

// AuthResult is the outcome of a successful login, registration, or OAuth
// callback. The refresh token travels in an HttpOnly cookie, never in the
// response body; the handler uses RefreshTTL to size the cookie.
type AuthResult struct {
	User         *UserResponse
	AccessToken  string
	RefreshToken string
	RefreshTTL   time.Duration
}

// Register creates a new account with a password credential
func (s *AuthService) Register(ctx context.Context, email, password, name string, meta RequestMeta) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" {
		return nil, models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrBadRequest, err.Error())
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: user already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.userRepo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         name,
		Role:         models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Verification email delivery must not block registration
	if err := s.verification.SendVerificationEmail(ctx, user.ID, user.Email); err != nil {
		s.logger.Error("failed to send verification email after registration",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction("user_registered", user.ID, meta.IPAddress, nil)

	return s.IssueSession(ctx, user, false, meta)
}

// Login authenticates a password credential and starts a session
func (s *AuthService) Login(ctx context.Context, email, password string, rememberMe bool, meta RequestMeta) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, models.ErrUnauthorized
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				IPAddress:     meta.IPAddress,
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// OAuth-only accounts have no password hash; fail the same way a wrong
	// password does so the responses are indistinguishable
	if user.PasswordHash == "" || !pkgauth.ComparePassword(user.PasswordHash, password) {
		s.logger.Info("login failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     meta.IPAddress,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return nil, models.ErrUnauthorized
	}

	if err := s.userRepo.TouchLogin(ctx, user.ID); err != nil {
		s.logger.Error("failed to update last login", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
	})

	return s.IssueSession(ctx, user, rememberMe, meta)
}

// IssueSession creates a session row and mints the token pair for it. The
// session id goes into the refresh token claims before the row is inserted,
// so the persisted row and the token always agree.
func (s *AuthService) IssueSession(ctx context.Context, user *models.User, rememberMe bool, meta RequestMeta) (*AuthResult, error) {
	sessionID := uuid.New().String()

	refreshToken, err := s.tm.GenerateRefreshToken(user.ID, sessionID, rememberMe)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	ttl := s.tm.RefreshTokenTTL(rememberMe)

	_, err = s.sessionRepo.Create(ctx, &models.Session{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: pkgauth.HashToken(refreshToken),
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		ExpiresAt: time.Now().Add(ttl),
	})
	if err != nil {
		s.logger.Error("failed to create session", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResult{
		User:         userModelToResponse(user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		RefreshTTL:   ttl,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// session row is the source of truth: a deleted row means the token is
// revoked regardless of its JWT expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateToken(refreshToken)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	if claims.Type != models.TokenTypeRefresh {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	session, err := s.sessionRepo.GetByTokenHash(ctx, pkgauth.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("refresh rejected: session revoked", slog.String("user_id", claims.UserID))
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to look up session", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if session.IsExpired() {
		s.logger.Info("refresh rejected: session expired", slog.String("user_id", session.UserID))
		return nil, models.ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for refresh", slog.String("user_id", session.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Tokens issued before a password change are no longer trusted
	if user.PasswordChangedAt != nil && claims.IssuedAt != nil && claims.IssuedAt.Time.Before(*user.PasswordChangedAt) {
		s.logger.Info("refresh rejected: issued before password change", slog.String("user_id", user.ID))
		return nil, models.ErrUnauthorized
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResult{
		User:        userModelToResponse(user),
		AccessToken: accessToken,
	}, nil
}

// Logout revokes the session backing a refresh token. It is idempotent: a
// missing, invalid, or already-revoked token still logs out cleanly.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByTokenHash(ctx, pkgauth.HashToken(refreshToken)); err != nil {
		s.logger.Error("failed to delete session on logout", slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}

// LogoutAll revokes every session of a user ("sign out everywhere")
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.sessionRepo.DeleteAllForUser(ctx, userID); err != nil {
		s.logger.Error("failed to revoke user sessions", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user logged out from all devices", slog.String("user_id", userID))
	return nil
}

// ForgotPassword issues a reset token and emails the link. Whether the
// account exists or not the caller gets the same nil result, so responses
// cannot be used to enumerate registered addresses.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, meta RequestMeta) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		s.logger.Error("failed to get user for password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	// A new token supersedes any outstanding ones
	if err := s.resetRepo.InvalidateByUserID(ctx, user.ID); err != nil {
		s.logger.Error("failed to invalidate previous reset tokens", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	plainToken, err := pkgauth.GenerateOneTimeToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := time.Now().Add(s.resetTokenExpiry)

	if _, err := s.resetRepo.Create(ctx, user.ID, pkgauth.HashToken(plainToken), expiresAt); err != nil {
		s.logger.Error("failed to store reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.emailService.SendPasswordResetEmail(ctx, user.Email, plainToken, expiresAt); err != nil {
		s.logger.Error("failed to send password reset email", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_reset_requested", user.ID, meta.IPAddress, nil)
	return nil
}

// ResetPassword consumes a reset token and sets the new password. All of the
// user's sessions are revoked in the same transaction.
func (s *AuthService) ResetPassword(ctx context.Context, plainToken, newPassword string, meta RequestMeta) error {
	if plainToken == "" {
		return models.ErrInvalidToken
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %s", models.ErrBadRequest, err.Error())
	}

	token, err := s.resetRepo.GetByTokenHash(ctx, pkgauth.HashToken(plainToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("reset token not found")
			return models.ErrInvalidToken
		}
		s.logger.Error("failed to retrieve reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !token.IsValid() {
		s.logger.Info("reset token used or expired", slog.String("token_id", token.ID))
		return models.ErrInvalidToken
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.resetRepo.Consume(ctx, token.ID, token.UserID, hashedPassword); err != nil {
		if errors.Is(err, models.ErrInvalidToken) {
			return models.ErrInvalidToken
		}
		s.logger.Error("failed to consume reset token", slog.String("token_id", token.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password reset completed", slog.String("user_id", token.UserID))
	s.auditLogger.LogPasswordChange(token.UserID, meta.IPAddress, true)
	return nil
}

// userModelToResponse converts a user model to its response DTO
func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
		AvatarURL:     user.AvatarURL,
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     user.UpdatedAt.Format(time.RFC3339),
	}
}
