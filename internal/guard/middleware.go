package guard

import (
	"net/http"

	"github.com/openshelf/openshelf/internal/person"
	"github.com/openshelf/openshelf/internal/session"
	"go.uber.org/zap"
)

// Require wraps a protected page. The session is re-hydrated and
// re-evaluated on every request; no decision outlives its navigation.
func Require(logger *zap.Logger, required ...person.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromRequest(r)
			switch Evaluate(sess, required) {
			case Render:
				next.ServeHTTP(w, r)
			case RedirectToLogin:
				logger.Debug("guard redirect to login", zap.String("path", r.URL.Path))
				http.Redirect(w, r, PathHome, http.StatusSeeOther)
			case RedirectToUnauthorized:
				logger.Debug("guard redirect to unauthorized", zap.String("path", r.URL.Path))
				http.Redirect(w, r, PathUnauthorized, http.StatusSeeOther)
			}
		})
	}
}

// DispatchHandler serves the /dashboard entry path: resolve the landing
// page for the current session and send exactly one redirect.
func DispatchHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromRequest(r)
		target := LandingPath(sess)
		logger.Debug("dashboard dispatch", zap.String("target", target))
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}
