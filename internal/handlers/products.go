package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brightmarket/storefront/internal/models"
	pkghttp "github.com/brightmarket/storefront/pkg/http"
	"github.com/go-chi/chi/v5"
)

// ProductServiceInterface defines the interface for catalog business logic
type ProductServiceInterface interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, activeOnly bool, limit, offset int) ([]*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, product *models.Product) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// ProductHandler handles catalog HTTP requests
type ProductHandler struct {
	service ProductServiceInterface
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(service ProductServiceInterface) *ProductHandler {
	return &ProductHandler{service: service}
}

// ProductRequest represents the request body for create/update
type ProductRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Slug        string `json:"slug" validate:"omitempty,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	PriceCents  int64  `json:"priceCents" validate:"gte=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
	Active      bool   `json:"active"`
}

func (req *ProductRequest) toModel() *models.Product {
	return &models.Product{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		ImageURL:    req.ImageURL,
		Active:      req.Active,
	}
}

// List handles GET /products. The public storefront only sees active
// products; the admin listing passes activeOnly=false.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

// ListAll handles GET /admin/products
func (h *ProductHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	limit, offset := parsePagination(r, 50)

	products, err := h.service.ListProducts(r.Context(), activeOnly, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w)
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, products)
}

// Get handles GET /products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Product not found")
		} else {
			pkghttp.WriteInternalError(w)
		}
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, product)
}

// Create handles POST /admin/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	product, err := h.service.CreateProduct(r.Context(), req.toModel())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteError(w, http.StatusConflict, pkghttp.CodeValidationError, "A product with this slug already exists")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteValidationError(w, "Invalid product data")
		default:
			pkghttp.WriteInternalError(w)
		}
		return
	}

	pkghttp.WriteSuccess(w, http.StatusCreated, product)
}

// Update handles PUT /admin/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req.toModel())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Product not found")
		} else {
			pkghttp.WriteInternalError(w)
		}
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, product)
}

// Delete handles DELETE /admin/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Product not found")
		} else {
			pkghttp.WriteInternalError(w)
		}
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, MessagePayload{Message: "Product deleted"})
}
