package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/brightmarket/storefront/internal/database"
	"github.com/brightmarket/storefront/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository tracks issued refresh tokens. One row per token; the
// row is the revocation source of truth.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool}
}

func scanSessionRow(scanner rowScanner) (*models.Session, error) {
	var session models.Session

	err := scanner.Scan(
		&session.ID, &session.UserID, &session.TokenHash,
		&session.UserAgent, &session.IPAddress,
		&session.ExpiresAt, &session.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &session, nil
}

// Create persists a session row. The caller supplies the id so it can be
// embedded in the refresh token claims before the row exists.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	session.CreatedAt = time.Now()

	query := `
		INSERT INTO sessions (id, user_id, token_hash, user_agent, ip_address, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_id, token_hash, user_agent, ip_address, expires_at, created_at
	`

	created, err := scanSessionRow(r.pool.QueryRow(ctx, query,
		session.ID, session.UserID, session.TokenHash,
		session.UserAgent, session.IPAddress,
		session.ExpiresAt, session.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return created, nil
}

// GetByTokenHash looks up the session backing a refresh token
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	query := `
		SELECT id, user_id, token_hash, user_agent, ip_address, expires_at, created_at
		FROM sessions
		WHERE token_hash = $1
	`

	return scanSessionRow(r.pool.QueryRow(ctx, query, tokenHash))
}

// ListByUserID returns the user's sessions, newest first (multi-device view)
func (r *SessionRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, token_hash, user_agent, ip_address, expires_at, created_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return sessions, nil
}

// DeleteByTokenHash revokes the session matching a refresh token. Deleting
// an already-absent row is not an error (logout is idempotent).
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	query := `DELETE FROM sessions WHERE token_hash = $1`

	if _, err := r.pool.Exec(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// DeleteAllForUser revokes every session of a user (password reset, account deletion)
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	query := `DELETE FROM sessions WHERE user_id = $1`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}

	return nil
}

// CleanupExpired deletes sessions past their expiry
func (r *SessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < NOW()`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}

	return result.RowsAffected(), nil
}
