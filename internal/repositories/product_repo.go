package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/brightmarket/storefront/internal/database"
	"github.com/brightmarket/storefront/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{pool: db.Pool}
}

const productColumns = `id, name, slug, description, price_cents, currency, image_url, active, created_at, updated_at`

func scanProductRow(scanner rowScanner) (*models.Product, error) {
	var product models.Product

	err := scanner.Scan(
		&product.ID, &product.Name, &product.Slug, &product.Description,
		&product.PriceCents, &product.Currency, &product.ImageURL, &product.Active,
		&product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &product, nil
}

func scanProductRows(rows pgx.Rows) ([]*models.Product, error) {
	defer rows.Close()

	products := make([]*models.Product, 0)

	for rows.Next() {
		product, err := scanProductRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}

	return products, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	return scanProductRow(r.pool.QueryRow(ctx, query, id))
}

// List returns products, optionally restricted to active ones (the public
// storefront view)
func (r *ProductRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	return scanProductRows(rows)
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	product.ID = uuid.New().String()

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	if product.Currency == "" {
		product.Currency = "USD"
	}

	query := `
		INSERT INTO products (id, name, slug, description, price_cents, currency, image_url, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + productColumns

	return scanProductRow(r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Slug, product.Description,
		product.PriceCents, product.Currency, product.ImageURL, product.Active,
		product.CreatedAt, product.UpdatedAt,
	))
}

func (r *ProductRepository) Update(ctx context.Context, id string, product *models.Product) (*models.Product, error) {
	product.UpdatedAt = time.Now()

	query := `
		UPDATE products SET name = $1, slug = $2, description = $3, price_cents = $4, currency = $5, image_url = $6, active = $7, updated_at = $8
		WHERE id = $9
		RETURNING ` + productColumns

	return scanProductRow(r.pool.QueryRow(ctx, query,
		product.Name, product.Slug, product.Description,
		product.PriceCents, product.Currency, product.ImageURL, product.Active,
		product.UpdatedAt, id,
	))
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
