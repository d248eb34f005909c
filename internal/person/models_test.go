package person

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		raw  string
		want Role
		ok   bool
	}{
		{"user", RoleUser, true},
		{"admin", RoleAdmin, true},
		{"ADMIN", RoleAdmin, true},
		{"Admin", RoleAdmin, true},
		{"USER", RoleUser, true},
		{"superadmin", "", false},
		{"guest", "", false},
		{"", "", false},
		{"admin ", "", false},
	}

	for _, tc := range cases {
		got, ok := ParseRole(tc.raw)
		assert.Equal(t, tc.ok, ok, "raw=%q", tc.raw)
		assert.Equal(t, tc.want, got, "raw=%q", tc.raw)
	}
}
