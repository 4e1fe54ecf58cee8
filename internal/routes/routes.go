package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/klamberth/helpcenter/internal/auth"
	"github.com/klamberth/helpcenter/internal/handlers"
	"github.com/klamberth/helpcenter/internal/middleware"
	"github.com/klamberth/helpcenter/internal/repositories"
)

// RegisterRoutes registers all application routes under /api
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	accountHandler *handlers.AccountHandler,
	issueHandler *handlers.IssueHandler,
	tokenManager *auth.TokenManager,
	userRepo *repositories.UserRepository,
	uploadDir string,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	router.Route("/api", func(r chi.Router) {
		// Public routes - no authentication required
		r.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/register", authHandler.Register)
		r.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)

		// Protected routes - authentication required
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(tokenManager, userRepo))

			// Test-account purge; destructive, so admin only
			r.With(auth.RequireAdmin).Delete("/auth/cleanup", authHandler.Cleanup)

			r.Route("/users", func(r chi.Router) {
				// Any authenticated user
				r.Get("/me", accountHandler.Me)
				r.Get("/{id}", accountHandler.Get)
				r.Put("/{id}", accountHandler.Update)
				r.Put("/{id}/password", accountHandler.ChangePassword)

				// Manager and above
				r.Group(func(r chi.Router) {
					r.Use(auth.RequireManager)
					r.Get("/", accountHandler.List)
					r.Post("/", accountHandler.Create)
					r.Get("/stats/overview", accountHandler.Stats)
					r.Post("/{id}/reset-login-attempts", accountHandler.ResetLoginAttempts)
				})

				// Admin only
				r.With(auth.RequireAdmin).Post("/bulk", accountHandler.Bulk)
			})

			r.Route("/issues", func(r chi.Router) {
				// Any authenticated user can browse and submit
				r.Get("/", issueHandler.List)
				r.Get("/{id}", issueHandler.Get)
				r.Post("/", issueHandler.Create)

				// Triage is admin territory
				r.Group(func(r chi.Router) {
					r.Use(auth.RequireAdmin)
					r.Post("/{id}/respond", issueHandler.Respond)
					r.Put("/{id}/status", issueHandler.UpdateStatus)
					r.Delete("/{id}", issueHandler.Delete)
				})
			})
		})
	})

	// Attachments are public static files; stored names are unguessable
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir)))
	router.Get("/uploads/*", func(w http.ResponseWriter, r *http.Request) {
		fileServer.ServeHTTP(w, r)
	})
}
