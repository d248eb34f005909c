package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUndecodable covers every structural failure: wrong segment count,
// bad base64, payload that is not a JSON object. Callers get one error,
// not a taxonomy.
var ErrUndecodable = errors.New("token is not decodable")

// DecodeUnverified reads the claims out of a token without checking the
// signature or expiry. It is a structural parse, not an authentication
// check: the result is only good for routing decisions, and anything a
// client could have forged must be re-verified server-side with
// TokenService.ValidateAccess before it grants access to data.
func DecodeUnverified(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrUndecodable
	}
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return nil, ErrUndecodable
	}
	return &claims, nil
}
