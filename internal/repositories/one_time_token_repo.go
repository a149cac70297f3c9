package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/brightmarket/storefront/internal/database"
	"github.com/brightmarket/storefront/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// oneTimeTokenStore is the shared data access for the two one-time token
// tables. They are structurally identical; only the Consume side effect
// differs, which lives on the concrete repository types below.
type oneTimeTokenStore struct {
	db    *database.DB
	table string
}

func scanOneTimeTokenRow(scanner rowScanner) (*models.OneTimeToken, error) {
	var token models.OneTimeToken
	var usedAt *time.Time

	err := scanner.Scan(
		&token.ID, &token.UserID, &token.TokenHash,
		&token.ExpiresAt, &usedAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	token.UsedAt = usedAt
	return &token, nil
}

// Create inserts a new token row
func (s *oneTimeTokenStore) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.OneTimeToken, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, user_id, token_hash, expires_at, used_at, created_at
	`, s.table)

	token, err := scanOneTimeTokenRow(s.db.Pool.QueryRow(ctx, query, uuid.New().String(), userID, tokenHash, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return token, nil
}

// GetByTokenHash retrieves a token by its hash
func (s *oneTimeTokenStore) GetByTokenHash(ctx context.Context, tokenHash string) (*models.OneTimeToken, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM %s
		WHERE token_hash = $1
	`, s.table)

	return scanOneTimeTokenRow(s.db.Pool.QueryRow(ctx, query, tokenHash))
}

// InvalidateByUserID marks all of the user's unused tokens as used, so a
// newly issued token supersedes any outstanding ones
func (s *oneTimeTokenStore) InvalidateByUserID(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET used_at = NOW()
		WHERE user_id = $1 AND used_at IS NULL
	`, s.table)

	if _, err := s.db.Pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to invalidate tokens: %w", err)
	}

	return nil
}

// CleanupExpired deletes expired tokens older than the retention threshold
func (s *oneTimeTokenStore) CleanupExpired(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE expires_at < NOW() - INTERVAL '30 days'
	`, s.table)

	result, err := s.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	return result.RowsAffected(), nil
}

// markUsedTx marks a single token consumed inside a transaction, failing
// with ErrInvalidToken if it was consumed concurrently
func (s *oneTimeTokenStore) markUsedTx(ctx context.Context, tx pgx.Tx, tokenID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET used_at = NOW()
		WHERE id = $1 AND used_at IS NULL
	`, s.table)

	result, err := tx.Exec(ctx, query, tokenID)
	if err != nil {
		return fmt.Errorf("failed to mark token as used: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrInvalidToken
	}

	return nil
}

// EmailVerificationRepository handles email verification token data access
type EmailVerificationRepository struct {
	oneTimeTokenStore
}

// NewEmailVerificationRepository creates a new EmailVerificationRepository
func NewEmailVerificationRepository(db *database.DB) *EmailVerificationRepository {
	return &EmailVerificationRepository{oneTimeTokenStore{db: db, table: "email_verification_tokens"}}
}

// Consume atomically marks the token used and flips the user's
// email_verified flag. Both statements commit or neither does.
func (r *EmailVerificationRepository) Consume(ctx context.Context, tokenID, userID string) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := r.markUsedTx(ctx, tx, tokenID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`,
			userID,
		); err != nil {
			return fmt.Errorf("failed to mark email verified: %w", err)
		}

		return nil
	})
}

// PasswordResetRepository handles password reset token data access
type PasswordResetRepository struct {
	oneTimeTokenStore
}

// NewPasswordResetRepository creates a new PasswordResetRepository
func NewPasswordResetRepository(db *database.DB) *PasswordResetRepository {
	return &PasswordResetRepository{oneTimeTokenStore{db: db, table: "password_reset_tokens"}}
}

// Consume atomically marks the token used, updates the password hash and
// password_changed_at, and revokes every session of the user
func (r *PasswordResetRepository) Consume(ctx context.Context, tokenID, userID, passwordHash string) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := r.markUsedTx(ctx, tx, tokenID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE users SET password_hash = $1, password_changed_at = NOW(), updated_at = NOW() WHERE id = $2`,
			passwordHash, userID,
		); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}

		return nil
	})
}
