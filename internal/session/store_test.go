package session

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/person"
	"github.com/openshelf/openshelf/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestFromRequest_NoKeys(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	sess := FromRequest(r)
	assert.False(t, sess.Authenticated())
	assert.Empty(t, sess.Token)
	assert.Nil(t, sess.Identity)
}

func TestFromRequest_TokenCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: TokenKey, Value: signedToken(t, "user")})

	sess := FromRequest(r)
	assert.True(t, sess.Authenticated())
	assert.Equal(t, person.Role("user"), sess.Identity.Role)
}

func TestFromRequest_BearerFallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signedToken(t, "admin"))

	sess := FromRequest(r)
	assert.True(t, sess.Authenticated())
	assert.Equal(t, person.Role("admin"), sess.Identity.Role)
}

func TestFromRequest_UndecodableToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: TokenKey, Value: "not-a-token"})

	sess := FromRequest(r)
	assert.False(t, sess.Authenticated())
	assert.Equal(t, "not-a-token", sess.Token)
	assert.Nil(t, sess.Identity)
}

func TestFromRequest_UndecodableTokenIgnoresUserCookie(t *testing.T) {
	// identity exists iff the token itself decodes; a leftover user
	// cookie must not resurrect a session
	claims := base64.RawURLEncoding.EncodeToString([]byte(`{"role":"admin"}`))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: TokenKey, Value: "garbage"})
	r.AddCookie(&http.Cookie{Name: UserKey, Value: claims})

	sess := FromRequest(r)
	assert.False(t, sess.Authenticated())
}

func TestFromRequest_UserCookieWins(t *testing.T) {
	claims := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"from-cookie","role":"admin"}`))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: TokenKey, Value: signedToken(t, "user")})
	r.AddCookie(&http.Cookie{Name: UserKey, Value: claims})

	sess := FromRequest(r)
	require.True(t, sess.Authenticated())
	assert.Equal(t, "from-cookie", string(sess.Identity.Sub))
	assert.Equal(t, person.Role("admin"), sess.Identity.Role)
}

func TestFromRequest_InvalidUserCookieFallsBackToToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: TokenKey, Value: signedToken(t, "user")})
	r.AddCookie(&http.Cookie{Name: UserKey, Value: "%%%not json%%%"})

	sess := FromRequest(r)
	require.True(t, sess.Authenticated())
	assert.Equal(t, person.Role("user"), sess.Identity.Role)
}

func TestWriteAndClear_BothKeysTogether(t *testing.T) {
	cfg := &config.CookieConfig{SameSite: "lax"}

	rec := httptest.NewRecorder()
	Write(rec, cfg, "some-token", &token.Claims{Role: person.RoleUser}, time.Now().Add(time.Hour))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, TokenKey, cookies[0].Name)
	assert.Equal(t, "some-token", cookies[0].Value)
	assert.Equal(t, UserKey, cookies[1].Name)
	assert.NotEmpty(t, cookies[1].Value)

	rec = httptest.NewRecorder()
	Clear(rec, cfg)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

func TestClear_Idempotent(t *testing.T) {
	cfg := &config.CookieConfig{}

	rec := httptest.NewRecorder()
	Clear(rec, cfg)
	Clear(rec, cfg)

	// still just expiry cookies, and a hydration of the result stays empty
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess := FromRequest(r)
	assert.False(t, sess.Authenticated())
}

func TestWrite_RoundTripsThroughHydration(t *testing.T) {
	cfg := &config.CookieConfig{SameSite: "strict"}
	raw := signedToken(t, "admin")

	rec := httptest.NewRecorder()
	Write(rec, cfg, raw, &token.Claims{Sub: "abc", Role: person.RoleAdmin}, time.Now().Add(time.Hour))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}

	sess := FromRequest(r)
	require.True(t, sess.Authenticated())
	assert.Equal(t, raw, sess.Token)
	assert.Equal(t, person.RoleAdmin, sess.Identity.Role)
	assert.Equal(t, "abc", string(sess.Identity.Sub))
}
