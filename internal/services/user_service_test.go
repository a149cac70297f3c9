package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/brightmarket/storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_GetUserByID_NotFound(t *testing.T) {
	svc := NewUserService(&MockUserRepository{}, slog.Default())

	user, err := svc.GetUserByID(context.Background(), "missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Nil(t, user)
}

func TestUserService_UpdateProfile_PartialUpdate(t *testing.T) {
	mockRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			user := NewTestUser(id, "user@example.com", "Old Name")
			user.AvatarURL = "https://img.example.com/old.jpg"
			return user, nil
		},
		UpdateFunc: func(ctx context.Context, id string, user *models.User) (*models.User, error) {
			return user, nil
		},
	}

	svc := NewUserService(mockRepo, slog.Default())

	updated, err := svc.UpdateProfile(context.Background(), "user123", "New Name", "")

	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "https://img.example.com/old.jpg", updated.AvatarURL, "empty fields stay untouched")
}

func TestUserService_UpdateRole_Success(t *testing.T) {
	mockRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return NewTestUser(id, "user@example.com", "Jane Doe"), nil
		},
		UpdateFunc: func(ctx context.Context, id string, user *models.User) (*models.User, error) {
			return user, nil
		},
	}

	svc := NewUserService(mockRepo, slog.Default())

	updated, err := svc.UpdateRole(context.Background(), "user123", models.RoleAdmin)

	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
}

func TestUserService_UpdateRole_InvalidRole(t *testing.T) {
	svc := NewUserService(&MockUserRepository{}, slog.Default())

	updated, err := svc.UpdateRole(context.Background(), "user123", "owner")

	assert.ErrorIs(t, err, models.ErrBadRequest)
	assert.Nil(t, updated)
}

func TestUserService_DeleteUser(t *testing.T) {
	var deleted string
	mockRepo := &MockUserRepository{
		DeleteFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}

	svc := NewUserService(mockRepo, slog.Default())

	err := svc.DeleteUser(context.Background(), "user123")

	require.NoError(t, err)
	assert.Equal(t, "user123", deleted)
}

func TestUserService_DeleteUser_NotFound(t *testing.T) {
	mockRepo := &MockUserRepository{
		DeleteFunc: func(ctx context.Context, id string) error {
			return models.ErrNotFound
		},
	}

	svc := NewUserService(mockRepo, slog.Default())

	err := svc.DeleteUser(context.Background(), "missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
}
