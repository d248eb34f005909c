package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/openshelf/openshelf/internal/person"
	"github.com/openshelf/openshelf/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func signedToken(t *testing.T, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "someone",
		"role": role,
	})
	raw, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func testRouter(logger *zap.Logger) chi.Router {
	r := chi.NewRouter()
	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

	r.Get(PathHome, ok)
	r.Get(PathUnauthorized, ok)
	r.Get("/dashboard", DispatchHandler(logger))

	r.Group(func(r chi.Router) {
		r.Use(Require(logger, person.RoleAdmin))
		r.Get(PathAdminDashboard, ok)
	})
	r.Group(func(r chi.Router) {
		r.Use(Require(logger, person.RoleUser))
		r.Get(PathUserDashboard, ok)
	})
	r.Group(func(r chi.Router) {
		r.Use(Require(logger))
		r.Get("/settings", ok)
	})
	return r
}

func get(router chi.Router, path, tokenCookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tokenCookie != "" {
		req.AddCookie(&http.Cookie{Name: session.TokenKey, Value: tokenCookie})
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequire_NoToken(t *testing.T) {
	router := testRouter(zap.NewNop())

	rec := get(router, PathAdminDashboard, "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, PathHome, rec.Header().Get("Location"))
}

func TestRequire_UndecodableToken(t *testing.T) {
	router := testRouter(zap.NewNop())

	rec := get(router, PathUserDashboard, "not-a-token")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, PathHome, rec.Header().Get("Location"))
}

func TestRequire_WrongRole(t *testing.T) {
	router := testRouter(zap.NewNop())

	rec := get(router, PathAdminDashboard, signedToken(t, "user"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, PathUnauthorized, rec.Header().Get("Location"))
}

func TestRequire_MatchingRole(t *testing.T) {
	router := testRouter(zap.NewNop())

	assert.Equal(t, http.StatusOK, get(router, PathAdminDashboard, signedToken(t, "admin")).Code)
	assert.Equal(t, http.StatusOK, get(router, PathAdminDashboard, signedToken(t, "ADMIN")).Code)
	assert.Equal(t, http.StatusOK, get(router, PathUserDashboard, signedToken(t, "user")).Code)
}

func TestRequire_AnyAuthenticatedRole(t *testing.T) {
	router := testRouter(zap.NewNop())

	assert.Equal(t, http.StatusOK, get(router, "/settings", signedToken(t, "user")).Code)
	assert.Equal(t, http.StatusOK, get(router, "/settings", signedToken(t, "admin")).Code)

	rec := get(router, "/settings", signedToken(t, "superadmin"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, PathHome, rec.Header().Get("Location"))
}

func TestDispatchHandler(t *testing.T) {
	router := testRouter(zap.NewNop())

	cases := []struct {
		name   string
		cookie string
		want   string
	}{
		{"no token", "", PathHome},
		{"admin", "", PathAdminDashboard},
		{"user", "", PathUserDashboard},
		{"guest role", "", PathUnauthorized},
	}
	cases[1].cookie = signedToken(t, "admin")
	cases[2].cookie = signedToken(t, "user")
	cases[3].cookie = signedToken(t, "guest")

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(router, "/dashboard", tc.cookie)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tc.want, rec.Header().Get("Location"))
		})
	}
}

func TestDispatch_TargetsAreUnguarded(t *testing.T) {
	// the dispatcher's failure targets must answer 200 with no session,
	// otherwise a rejected visitor would loop through the guard forever
	router := testRouter(zap.NewNop())
	assert.Equal(t, http.StatusOK, get(router, PathHome, "").Code)
	assert.Equal(t, http.StatusOK, get(router, PathUnauthorized, "").Code)
}
