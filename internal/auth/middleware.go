package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/klamberth/helpcenter/internal/models"
	pkghttp "github.com/klamberth/helpcenter/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

// AccountContextKey is the key under which the resolved account is stored.
const AccountContextKey contextKey = "account"

// AccountResolver loads the acting account during authentication.
type AccountResolver interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Authenticate validates the bearer token, resolves the account it names and
// attaches it to the request context. The account is resolved exactly once
// per request; downstream handlers read it from the context and must not
// re-fetch or re-verify it. Deactivated accounts are rejected even with a
// valid token. Every failure mode collapses to the same 401.
func Authenticate(tm *TokenManager, repo AccountResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "please authenticate")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				pkghttp.WriteUnauthorized(w, "please authenticate")
				return
			}

			accountID, err := tm.Verify(parts[1])
			if err != nil {
				pkghttp.WriteUnauthorized(w, "please authenticate")
				return
			}

			account, err := repo.GetByID(r.Context(), accountID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "please authenticate")
					return
				}
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			if !account.IsActive {
				pkghttp.WriteUnauthorized(w, "please authenticate")
				return
			}

			ctx := context.WithValue(r.Context(), AccountContextKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireManager enforces the manager-or-admin capability level.
// Must be mounted after Authenticate.
func RequireManager(next http.Handler) http.Handler {
	return requireRole(next, models.RoleManager, "manager or admin access required")
}

// RequireAdmin enforces the admin-only capability level.
// Must be mounted after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return requireRole(next, models.RoleAdmin, "admin access required")
}

func requireRole(next http.Handler, min models.Role, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := AccountFromContext(r)
		if account == nil {
			pkghttp.WriteUnauthorized(w, "please authenticate")
			return
		}

		if !account.Role.AtLeast(min) {
			pkghttp.WriteForbidden(w, message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AccountFromContext extracts the resolved account from the request context.
func AccountFromContext(r *http.Request) *models.User {
	account, ok := r.Context().Value(AccountContextKey).(*models.User)
	if !ok {
		return nil
	}
	return account
}
