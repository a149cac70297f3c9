package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/brightmarket/storefront/internal/database"
	"github.com/brightmarket/storefront/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OAuthAccountRepository handles external identity link data access
type OAuthAccountRepository struct {
	pool *pgxpool.Pool
}

func NewOAuthAccountRepository(db *database.DB) *OAuthAccountRepository {
	return &OAuthAccountRepository{pool: db.Pool}
}

const oauthAccountColumns = `id, user_id, provider, provider_account_id, access_token, refresh_token, token_expires_at, created_at, updated_at`

func scanOAuthAccountRow(scanner rowScanner) (*models.OAuthAccount, error) {
	var account models.OAuthAccount
	var tokenExpiresAt *time.Time

	err := scanner.Scan(
		&account.ID, &account.UserID, &account.Provider, &account.ProviderAccountID,
		&account.AccessToken, &account.RefreshToken, &tokenExpiresAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	account.TokenExpiresAt = tokenExpiresAt
	return &account, nil
}

// GetByProviderAccount looks up the link for one external identity
func (r *OAuthAccountRepository) GetByProviderAccount(ctx context.Context, provider, providerAccountID string) (*models.OAuthAccount, error) {
	query := `SELECT ` + oauthAccountColumns + ` FROM oauth_accounts WHERE provider = $1 AND provider_account_id = $2`

	return scanOAuthAccountRow(r.pool.QueryRow(ctx, query, provider, providerAccountID))
}

// Create links an external identity to a user
func (r *OAuthAccountRepository) Create(ctx context.Context, account *models.OAuthAccount) (*models.OAuthAccount, error) {
	account.ID = uuid.New().String()

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
		INSERT INTO oauth_accounts (id, user_id, provider, provider_account_id, access_token, refresh_token, token_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + oauthAccountColumns

	created, err := scanOAuthAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, account.UserID, account.Provider, account.ProviderAccountID,
		account.AccessToken, account.RefreshToken, account.TokenExpiresAt,
		account.CreatedAt, account.UpdatedAt,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateTokens refreshes the stored provider tokens on a repeat login
func (r *OAuthAccountRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, tokenExpiresAt *time.Time) error {
	query := `
		UPDATE oauth_accounts
		SET access_token = $1, refresh_token = $2, token_expires_at = $3, updated_at = NOW()
		WHERE id = $4
	`

	result, err := r.pool.Exec(ctx, query, accessToken, refreshToken, tokenExpiresAt, id)
	if err != nil {
		return fmt.Errorf("failed to update oauth tokens: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ListByUserID returns all provider links for a user
func (r *OAuthAccountRepository) ListByUserID(ctx context.Context, userID string) ([]*models.OAuthAccount, error) {
	query := `SELECT ` + oauthAccountColumns + ` FROM oauth_accounts WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query oauth accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*models.OAuthAccount, 0)
	for rows.Next() {
		account, err := scanOAuthAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan oauth account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating oauth account rows: %w", err)
	}

	return accounts, nil
}
