package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/brightmarket/storefront/internal/database"
	"github.com/brightmarket/storefront/internal/models"
	"github.com/brightmarket/storefront/internal/repositories"
	"github.com/brightmarket/storefront/pkg/auth"
)

// TestDB manages a PostgreSQL testcontainer with the schema applied
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase starts a PostgreSQL container and runs all migrations
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := database.NewFromPool(pool, quiet)

	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         db,
	}, nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"products",
		"oauth_accounts",
		"password_reset_tokens",
		"email_verification_tokens",
		"sessions",
		"users",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// Repositories bundles every repository built from one database handle
type Repositories struct {
	Users         *repositories.UserRepository
	Sessions      *repositories.SessionRepository
	Verifications *repositories.EmailVerificationRepository
	Resets        *repositories.PasswordResetRepository
	OAuthAccounts *repositories.OAuthAccountRepository
	Products      *repositories.ProductRepository
}

// InitializeRepositories creates all repository instances
func InitializeRepositories(db *database.DB) Repositories {
	return Repositories{
		Users:         repositories.NewUserRepository(db),
		Sessions:      repositories.NewSessionRepository(db),
		Verifications: repositories.NewEmailVerificationRepository(db),
		Resets:        repositories.NewPasswordResetRepository(db),
		OAuthAccounts: repositories.NewOAuthAccountRepository(db),
		Products:      repositories.NewProductRepository(db),
	}
}

// SeedUser inserts a user with a hashed password, optionally verified
func SeedUser(ctx context.Context, pool *pgxpool.Pool, email, password string, verified bool) (*models.User, error) {
	return seedUserWithRole(ctx, pool, email, password, models.RoleUser, verified)
}

// SeedAdmin inserts a verified user with the admin role
func SeedAdmin(ctx context.Context, pool *pgxpool.Pool, email, password string) (*models.User, error) {
	return seedUserWithRole(ctx, pool, email, password, models.RoleAdmin, true)
}

func seedUserWithRole(ctx context.Context, pool *pgxpool.Pool, email, password, role string, verified bool) (*models.User, error) {
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (id, email, password_hash, name, role, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, email, password_hash, name, role, email_verified, created_at, updated_at
	`

	var user models.User
	err = pool.QueryRow(ctx, query, uuid.NewString(), email, passwordHash, "Seeded User", role, verified).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &user, nil
}

// SeedVerificationToken creates an email verification token and returns
// the plaintext half
func SeedVerificationToken(ctx context.Context, pool *pgxpool.Pool, userID string) (string, error) {
	return seedOneTimeToken(ctx, pool, "email_verification_tokens", userID, "24 hours")
}

// SeedExpiredVerificationToken creates a verification token whose window
// has already closed
func SeedExpiredVerificationToken(ctx context.Context, pool *pgxpool.Pool, userID string) (string, error) {
	return seedOneTimeToken(ctx, pool, "email_verification_tokens", userID, "-1 hour")
}

// SeedPasswordResetToken creates a password reset token and returns the
// plaintext half
func SeedPasswordResetToken(ctx context.Context, pool *pgxpool.Pool, userID string) (string, error) {
	return seedOneTimeToken(ctx, pool, "password_reset_tokens", userID, "1 hour")
}

func seedOneTimeToken(ctx context.Context, pool *pgxpool.Pool, table, userID, expiresIn string) (string, error) {
	token, err := auth.GenerateOneTimeToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, NOW(), NOW() + INTERVAL '%s')
	`, table, expiresIn)

	if _, err := pool.Exec(ctx, query, uuid.NewString(), userID, auth.HashToken(token)); err != nil {
		return "", fmt.Errorf("failed to insert token into %s: %w", table, err)
	}

	return token, nil
}

// SeedProduct inserts a catalog row
func SeedProduct(ctx context.Context, pool *pgxpool.Pool, name, slug string, priceCents int64, active bool) (*models.Product, error) {
	query := `
		INSERT INTO products (id, name, slug, price_cents, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, name, slug, description, price_cents, currency, image_url, active, created_at, updated_at
	`

	var product models.Product
	err := pool.QueryRow(ctx, query, uuid.NewString(), name, slug, priceCents, active).Scan(
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.PriceCents,
		&product.Currency,
		&product.ImageURL,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}

	return &product, nil
}
