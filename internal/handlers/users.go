package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/brightmarket/storefront/internal/auth"
	"github.com/brightmarket/storefront/internal/models"
	"github.com/brightmarket/storefront/internal/services"
	pkghttp "github.com/brightmarket/storefront/pkg/http"
	"github.com/go-chi/chi/v5"
)

// UserServiceInterface defines the interface for user business logic
type UserServiceInterface interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateProfile(ctx context.Context, id, name, avatarURL string) (*models.User, error)
	UpdateRole(ctx context.Context, id, role string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// UserHandler handles user HTTP requests
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// UpdateProfileRequest represents the request body for profile updates
type UpdateProfileRequest struct {
	Name      string `json:"name" validate:"omitempty,min=1,max=100"`
	AvatarURL string `json:"avatarUrl" validate:"omitempty,url"`
}

// UpdateRoleRequest represents the request body for an admin role change
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin superadmin"`
}

func userToResponse(user *models.User) *services.UserResponse {
	return &services.UserResponse{
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

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteUserNotFound(w)
		} else {
			pkghttp.WriteInternalError(w)
		}
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, userToResponse(user))
}

// UpdateMe handles PATCH /users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), claims.UserID, req.Name, req.AvatarURL)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteUserNotFound(w)
		} else {
			pkghttp.WriteInternalError(w)
		}
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, userToResponse(user))
}

// List handles GET /users (admin)
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r, 50)

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w)
		return
	}

	responses := make([]*services.UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, userToResponse(user))
	}

	pkghttp.WriteSuccess(w, http.StatusOK, responses)
}

// Get handles GET /users/{id} (admin)
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteUserNotFound(w)
		} else {
			pkghttp.WriteInternalError(w)
		}
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, userToResponse(user))
}

// UpdateRole handles PATCH /users/{id}/role (admin)
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteValidationError(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	user, err := h.service.UpdateRole(r.Context(), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteUserNotFound(w)
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteValidationError(w, "Invalid role")
		default:
			pkghttp.WriteInternalError(w)
		}
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, userToResponse(user))
}

// Delete handles DELETE /users/{id} (admin)
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")

	// Admins cannot delete themselves through this endpoint
	if claims := auth.GetUserFromContext(r); claims != nil && claims.UserID == targetID {
		pkghttp.WriteForbidden(w, "Cannot delete your own account")
		return
	}

	if err := h.service.DeleteUser(r.Context(), targetID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteUserNotFound(w)
		} else {
			pkghttp.WriteInternalError(w)
		}
		return
	}

	pkghttp.WriteSuccess(w, http.StatusOK, MessagePayload{Message: "User deleted"})
}

// parsePagination reads limit/offset query params with bounds
func parsePagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
