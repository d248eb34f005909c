package session

import (
	"github.com/openshelf/openshelf/internal/token"
)

// Session is the per-request view of the persisted login state.
// Identity is non-nil iff Token is non-empty and was decodable; a token
// nobody can read counts as no session at all.
type Session struct {
	Token    string
	Identity *token.Claims
}

func (s Session) Authenticated() bool {
	return s.Token != "" && s.Identity != nil
}
