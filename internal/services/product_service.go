package services

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/brightmarket/storefront/internal/models"
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Product, error)
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Update(ctx context.Context, id string, product *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id string) error
}

// ProductService handles catalog business logic
type ProductService struct {
	repo   ProductRepository
	logger *slog.Logger
}

// NewProductService creates a new ProductService
func NewProductService(repo ProductRepository, logger *slog.Logger) *ProductService {
	return &ProductService{
		repo:   repo,
		logger: logger,
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a product name
func Slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// GetProduct retrieves a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get product", slog.String("product_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return product, nil
}

// ListProducts retrieves a page of products. Non-admin callers only see
// active products.
func (s *ProductService) ListProducts(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Product, error) {
	products, err := s.repo.List(ctx, activeOnly, limit, offset)
	if err != nil {
		s.logger.Error("failed to list products", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return products, nil
}

// CreateProduct adds a product to the catalog
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.Name == "" || product.PriceCents < 0 {
		return nil, models.ErrBadRequest
	}

	if product.Slug == "" {
		product.Slug = Slugify(product.Name)
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create product", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("product created", slog.String("product_id", created.ID))
	return created, nil
}

// UpdateProduct applies changes to an existing product
func (s *ProductService) UpdateProduct(ctx context.Context, id string, product *models.Product) (*models.Product, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get product", slog.String("product_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if product.Name != "" {
		existing.Name = product.Name
	}
	if product.Slug != "" {
		existing.Slug = product.Slug
	}
	if product.Description != "" {
		existing.Description = product.Description
	}
	if product.PriceCents > 0 {
		existing.PriceCents = product.PriceCents
	}
	if product.Currency != "" {
		existing.Currency = product.Currency
	}
	if product.ImageURL != "" {
		existing.ImageURL = product.ImageURL
	}
	existing.Active = product.Active

	updated, err := s.repo.Update(ctx, id, existing)
	if err != nil {
		s.logger.Error("failed to update product", slog.String("product_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("product updated", slog.String("product_id", id))
	return updated, nil
}

// DeleteProduct removes a product from the catalog
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete product", slog.String("product_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("product deleted", slog.String("product_id", id))
	return nil
}
