package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/brightmarket/storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "blue-canvas-tote", Slugify("Blue Canvas Tote"))
	assert.Equal(t, "50-off-sale", Slugify("50% Off Sale!"))
	assert.Equal(t, "cafe-mug", Slugify("--Cafe  Mug--"))
}

func TestProductService_CreateProduct_GeneratesSlug(t *testing.T) {
	svc := NewProductService(&MockProductRepository{}, slog.Default())

	created, err := svc.CreateProduct(context.Background(), &models.Product{
		Name:       "Blue Canvas Tote",
		PriceCents: 2500,
		Currency:   "USD",
	})

	require.NoError(t, err)
	assert.Equal(t, "blue-canvas-tote", created.Slug)
}

func TestProductService_CreateProduct_KeepsExplicitSlug(t *testing.T) {
	svc := NewProductService(&MockProductRepository{}, slog.Default())

	created, err := svc.CreateProduct(context.Background(), &models.Product{
		Name:       "Blue Canvas Tote",
		Slug:       "tote-blue",
		PriceCents: 2500,
	})

	require.NoError(t, err)
	assert.Equal(t, "tote-blue", created.Slug)
}

func TestProductService_CreateProduct_Invalid(t *testing.T) {
	svc := NewProductService(&MockProductRepository{}, slog.Default())

	_, err := svc.CreateProduct(context.Background(), &models.Product{PriceCents: 100})
	assert.ErrorIs(t, err, models.ErrBadRequest)

	_, err = svc.CreateProduct(context.Background(), &models.Product{Name: "Tote", PriceCents: -1})
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestProductService_CreateProduct_DuplicateSlug(t *testing.T) {
	mockRepo := &MockProductRepository{
		CreateFunc: func(ctx context.Context, product *models.Product) (*models.Product, error) {
			return nil, models.ErrConflict
		},
	}

	svc := NewProductService(mockRepo, slog.Default())

	_, err := svc.CreateProduct(context.Background(), &models.Product{Name: "Tote", PriceCents: 100})

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestProductService_UpdateProduct_MergesFields(t *testing.T) {
	mockRepo := &MockProductRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Product, error) {
			return &models.Product{
				ID:         id,
				Name:       "Blue Canvas Tote",
				Slug:       "blue-canvas-tote",
				PriceCents: 2500,
				Currency:   "USD",
				Active:     true,
			}, nil
		},
		UpdateFunc: func(ctx context.Context, id string, product *models.Product) (*models.Product, error) {
			return product, nil
		},
	}

	svc := NewProductService(mockRepo, slog.Default())

	updated, err := svc.UpdateProduct(context.Background(), "product123", &models.Product{
		PriceCents: 2900,
		Active:     true,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2900), updated.PriceCents)
	assert.Equal(t, "Blue Canvas Tote", updated.Name)
	assert.Equal(t, "blue-canvas-tote", updated.Slug)
}

func TestProductService_GetProduct_NotFound(t *testing.T) {
	svc := NewProductService(&MockProductRepository{}, slog.Default())

	product, err := svc.GetProduct(context.Background(), "missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Nil(t, product)
}

func TestProductService_ListProducts_PassesActiveFlag(t *testing.T) {
	var gotActiveOnly bool
	mockRepo := &MockProductRepository{
		ListFunc: func(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Product, error) {
			gotActiveOnly = activeOnly
			return []*models.Product{}, nil
		},
	}

	svc := NewProductService(mockRepo, slog.Default())

	_, err := svc.ListProducts(context.Background(), true, 50, 0)

	require.NoError(t, err)
	assert.True(t, gotActiveOnly)
}
