package person

import (
	"strings"
	"time"

	"github.com/openshelf/openshelf/pkg/id"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes a raw role claim: lowercase, then membership in
// the closed role set. Anything else (empty, "superadmin", whatever a
// client cooked up) is rejected, so guards never match on an unexpected
// spelling.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(raw)) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

type Person struct {
	ID        int64       `json:"id" db:"id"`
	PublicID  id.PublicID `json:"public_id" db:"public_id"`
	Email     string      `json:"email" db:"email"`
	Username  string      `json:"username" db:"username"`
	Password  string      `json:"-" db:"password"`
	Role      Role        `json:"role" db:"role"`
	IsActive  bool        `json:"is_active" db:"is_active"`
	IsDeleted bool        `json:"is_deleted" db:"is_deleted"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}
