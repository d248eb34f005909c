package session

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/token"
)

// The two persisted keys. They are written together at login and
// cleared together at logout; readers tolerate either being absent or
// holding garbage.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// FromRequest hydrates the session from the persisted record. The token
// comes from the token cookie, or a bearer header as fallback. Identity
// comes from the user cookie if its JSON still parses, otherwise it is
// re-decoded (structurally, unverified) from the token itself. If
// neither source yields claims, the session carries no identity and
// every guard treats it as logged out.
func FromRequest(r *http.Request) Session {
	tok := TokenFromRequest(r)
	if tok == "" {
		return Session{}
	}

	// An undecodable token never carries an identity, even if a stale
	// user cookie is still around.
	decoded, err := token.DecodeUnverified(tok)
	if err != nil {
		return Session{Token: tok}
	}

	if claims := claimsFromCookie(r); claims != nil {
		return Session{Token: tok, Identity: claims}
	}
	return Session{Token: tok, Identity: decoded}
}

// Write persists the session record: both keys, together.
func Write(w http.ResponseWriter, cfg *config.CookieConfig, tok string, claims *token.Claims, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenKey,
		Value:    tok,
		Path:     "/",
		Domain:   cfg.Domain,
		Expires:  expires,
		HttpOnly: false, // the front end reads its own session record
		Secure:   cfg.Secure,
		SameSite: sameSite(cfg.SameSite),
	})

	encoded := ""
	if raw, err := json.Marshal(claims); err == nil {
		encoded = base64.RawURLEncoding.EncodeToString(raw)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     UserKey,
		Value:    encoded,
		Path:     "/",
		Domain:   cfg.Domain,
		Expires:  expires,
		HttpOnly: false,
		Secure:   cfg.Secure,
		SameSite: sameSite(cfg.SameSite),
	})
}

// Clear destroys the persisted record. Clearing an already-empty
// session is a no-op by construction.
func Clear(w http.ResponseWriter, cfg *config.CookieConfig) {
	for _, name := range []string{TokenKey, UserKey} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   cfg.Domain,
			MaxAge:   -1,
			HttpOnly: false,
			Secure:   cfg.Secure,
			SameSite: sameSite(cfg.SameSite),
		})
	}
}

// TokenFromRequest pulls the raw opaque token out of the persisted
// record: token cookie first, bearer header as fallback.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(TokenKey); err == nil && c.Value != "" {
		return c.Value
	}
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	return ""
}

func claimsFromCookie(r *http.Request) *token.Claims {
	c, err := r.Cookie(UserKey)
	if err != nil || c.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		// older clients stored plain JSON
		raw = []byte(c.Value)
	}
	var claims token.Claims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil
	}
	return &claims
}

func sameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
