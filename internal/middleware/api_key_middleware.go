package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"central_logger/internal/auth"
	"central_logger/internal/utils"
)

// ContextKey defines the type for context keys to avoid conflicts
type ContextKey string

const (
	// TenantIDKey is the context key for the tenant resolved from the request credential
	TenantIDKey ContextKey = "tenantID"

	// DefaultCredentialHeader carries the ingestion token
	DefaultCredentialHeader = "X-API-Key"
)

var logger = utils.NewLogger("middleware")

// credentialFromRequest reads header, falling back to "Authorization: Bearer"
func credentialFromRequest(r *http.Request, header string) string {
	if token := strings.TrimSpace(r.Header.Get(header)); token != "" {
		return token
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// CredentialMiddleware resolves the request credential to a tenant and adds it
// to the request context. Requests without a valid credential get 401.
func CredentialMiddleware(resolver auth.Resolver, header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultCredentialHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := credentialFromRequest(r, header)
			if token == "" {
				utils.RespondWithError(w, http.StatusUnauthorized, "Missing API key")
				return
			}

			tenantID, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidCredential) {
					utils.RespondWithError(w, http.StatusUnauthorized, "Invalid API key")
					return
				}
				logger.Error("credential resolution failed", "path", r.URL.Path, "error", err)
				utils.RespondWithError(w, http.StatusInternalServerError, "Error validating API key")
				return
			}

			ctx := context.WithValue(r.Context(), TenantIDKey, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTenantID retrieves the tenant resolved by CredentialMiddleware
func GetTenantID(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(string)
	return tenantID, ok && tenantID != ""
}

// WithTenantID returns a context carrying tenantID, as CredentialMiddleware does
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}
