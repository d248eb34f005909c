package auth

import (
	"net/http"

	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/person"
	"github.com/openshelf/openshelf/internal/session"
	"github.com/openshelf/openshelf/internal/token"
	"go.uber.org/zap"
)

// Authn is the server-side enforcement behind every protected REST
// call. Unlike the page guard, this one verifies the signature and
// expiry; the guard's unverified decode buys routing, never access.
func Authn(ts token.TokenService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := session.TokenFromRequest(r)
			if raw == "" {
				httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
					Code:    httpx.ErrUnauthorized,
					Message: "missing access token",
				})
				return
			}

			claims, err := ts.ValidateAccess(r.Context(), raw)
			if err != nil {
				logger.Debug("access token rejected", zap.Error(err))
				httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
					Code:    httpx.ErrUnauthorized,
					Message: "invalid access token",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole gates an API subtree on verified claims. Runs after Authn.
func RequireRole(logger *zap.Logger, roles ...person.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
					Code:    httpx.ErrUnauthorized,
					Message: "missing access token",
				})
				return
			}

			role, resolved := person.ParseRole(string(claims.Role))
			if resolved {
				for _, want := range roles {
					if want == role {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			logger.Debug("role rejected",
				zap.String("role", string(claims.Role)),
				zap.String("path", r.URL.Path),
			)
			httpx.WriteError(w, http.StatusForbidden, httpx.ErrorResponse[any]{
				Code:    httpx.ErrForbidden,
				Message: "insufficient role",
			})
		})
	}
}
