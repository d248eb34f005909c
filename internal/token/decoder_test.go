package token

import (
	"encoding/base64"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openshelf/openshelf/internal/person"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUnverified_ReadsClaims(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "abc-123",
		"role": "admin",
	})
	raw, err := tok.SignedString([]byte("whatever"))
	require.NoError(t, err)

	claims, err := DecodeUnverified(raw)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", string(claims.Sub))
	assert.Equal(t, person.Role("admin"), claims.Role)
}

func TestDecodeUnverified_IgnoresSignature(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "user"})
	raw, err := tok.SignedString([]byte("key-the-server-never-saw"))
	require.NoError(t, err)

	// tamper with the signature segment; structure stays intact
	tampered := raw[:len(raw)-4] + "AAAA"
	claims, err := DecodeUnverified(tampered)
	require.NoError(t, err)
	assert.Equal(t, person.Role("user"), claims.Role)
}

func TestDecodeUnverified_MalformedInputs(t *testing.T) {
	notJSON := base64.RawURLEncoding.EncodeToString([]byte("plain text"))

	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no segments", "not-a-token"},
		{"two segments", "aaaa.bbbb"},
		{"four segments", "a.b.c.d"},
		{"bad base64 payload", "aaaa.!!!!.cccc"},
		{"non-JSON payload", notJSON + "." + notJSON + "." + notJSON},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := DecodeUnverified(tc.raw)
			assert.ErrorIs(t, err, ErrUndecodable)
			assert.Nil(t, claims)
		})
	}
}
