package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brightmarket/storefront/internal/models"
	pkgauth "github.com/brightmarket/storefront/pkg/auth"
)

// EmailVerificationRepository defines the interface for verification token operations
type EmailVerificationRepository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.OneTimeToken, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.OneTimeToken, error)
	InvalidateByUserID(ctx context.Context, userID string) error
	Consume(ctx context.Context, tokenID, userID string) error
}

// EmailVerificationService handles email verification business logic
type EmailVerificationService struct {
	tokenRepo    EmailVerificationRepository
	userRepo     UserRepository
	emailService EmailService
	logger       *slog.Logger
	tokenExpiry  time.Duration
}

// NewEmailVerificationService creates a new EmailVerificationService
func NewEmailVerificationService(
	tokenRepo EmailVerificationRepository,
	userRepo UserRepository,
	emailService EmailService,
	logger *slog.Logger,
	tokenExpiry time.Duration,
) *EmailVerificationService {
	return &EmailVerificationService{
		tokenRepo:    tokenRepo,
		userRepo:     userRepo,
		emailService: emailService,
		logger:       logger,
		tokenExpiry:  tokenExpiry,
	}
}

// SendVerificationEmail generates a token and emails the verification link.
// Only the SHA-256 hash is stored; the plaintext exists only in the link.
func (s *EmailVerificationService) SendVerificationEmail(ctx context.Context, userID, email string) error {
	plainToken, err := pkgauth.GenerateOneTimeToken()
	if err != nil {
		s.logger.Error("failed to generate verification token", slog.Any("error", err))
		return fmt.Errorf("failed to generate token: %w", err)
	}

	expiresAt := time.Now().Add(s.tokenExpiry)

	if _, err := s.tokenRepo.Create(ctx, userID, pkgauth.HashToken(plainToken), expiresAt); err != nil {
		s.logger.Error("failed to store verification token",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return fmt.Errorf("failed to create token: %w", err)
	}

	if err := s.emailService.SendVerificationEmail(ctx, email, plainToken, expiresAt); err != nil {
		s.logger.Error("failed to send verification email",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("verification email sent", slog.String("user_id", userID))
	return nil
}

// VerifyEmail consumes a verification token and flips the user's verified
// flag in the same transaction
func (s *EmailVerificationService) VerifyEmail(ctx context.Context, plainToken string) (string, error) {
	if plainToken == "" {
		return "", models.ErrInvalidToken
	}

	token, err := s.tokenRepo.GetByTokenHash(ctx, pkgauth.HashToken(plainToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("verification token not found")
			return "", models.ErrInvalidToken
		}
		s.logger.Error("failed to retrieve verification token", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if !token.IsValid() {
		s.logger.Info("verification token used or expired", slog.String("token_id", token.ID))
		return "", models.ErrInvalidToken
	}

	if err := s.tokenRepo.Consume(ctx, token.ID, token.UserID); err != nil {
		if errors.Is(err, models.ErrInvalidToken) {
			return "", models.ErrInvalidToken
		}
		s.logger.Error("failed to consume verification token",
			slog.String("token_id", token.ID),
			slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.logger.Info("email verified", slog.String("user_id", token.UserID))
	return token.UserID, nil
}

// ResendVerification issues a fresh verification email. Unknown and
// already-verified addresses get the same nil result as real pending ones,
// so the endpoint cannot confirm whether an address is registered.
func (s *EmailVerificationService) ResendVerification(ctx context.Context, email string) error {
	// Accounts are stored with lowercased emails; look up the same way
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("verification resend requested for unknown email")
			return nil
		}
		s.logger.Error("failed to get user for verification resend", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if user.EmailVerified {
		s.logger.Info("verification resend skipped: already verified", slog.String("user_id", user.ID))
		return nil
	}

	if err := s.tokenRepo.InvalidateByUserID(ctx, user.ID); err != nil {
		s.logger.Error("failed to invalidate previous verification tokens",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	return s.SendVerificationEmail(ctx, user.ID, user.Email)
}
