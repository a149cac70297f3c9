package routes

import (
	"github.com/brightmarket/storefront/internal/auth"
	"github.com/brightmarket/storefront/internal/handlers"
	"github.com/brightmarket/storefront/internal/middleware"
	"github.com/brightmarket/storefront/internal/models"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes under /api/v1
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	oauthHandler *handlers.OAuthHandler,
	userHandler *handlers.UserHandler,
	productHandler *handlers.ProductHandler,
	tokenManager *auth.TokenManager,
	authRateLimit middleware.RateLimitConfig,
) {
	authLimit := middleware.RateLimitByIP(authRateLimit)

	router.Route("/api/v1", func(r chi.Router) {
		// Credential endpoints, rate limited per IP
		r.Group(func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/forgot-password", authHandler.ForgotPassword)
			r.Post("/auth/reset-password", authHandler.ResetPassword)
			r.Post("/auth/verify-email", authHandler.VerifyEmail)
			r.Post("/auth/resend-verification", authHandler.ResendVerification)
		})

		// Session endpoints; the refresh token cookie is the credential
		r.Post("/auth/refresh", authHandler.Refresh)
		r.Post("/auth/logout", authHandler.Logout)

		// OAuth browser flow
		r.Get("/oauth/{provider}", oauthHandler.Redirect)
		r.Get("/oauth/{provider}/callback", oauthHandler.Callback)

		// Public catalog
		r.Get("/products", productHandler.List)
		r.Get("/products/{id}", productHandler.Get)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(tokenManager))

			r.Post("/auth/logout-all", authHandler.LogoutAll)
			r.Get("/users/me", userHandler.Me)
			r.Patch("/users/me", userHandler.UpdateMe)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))

				r.Get("/users", userHandler.List)
				r.Get("/users/{id}", userHandler.Get)
				r.Patch("/users/{id}/role", userHandler.UpdateRole)
				r.Delete("/users/{id}", userHandler.Delete)

				r.Get("/admin/products", productHandler.ListAll)
				r.Post("/admin/products", productHandler.Create)
				r.Put("/admin/products/{id}", productHandler.Update)
				r.Delete("/admin/products/{id}", productHandler.Delete)
			})
		})
	})
}
