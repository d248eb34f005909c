package guard

import (
	"testing"

	"github.com/openshelf/openshelf/internal/person"
	"github.com/openshelf/openshelf/internal/session"
	"github.com/openshelf/openshelf/internal/token"
	"github.com/stretchr/testify/assert"
)

func sessionWithRole(role string) session.Session {
	return session.Session{
		Token:    "opaque-token",
		Identity: &token.Claims{Role: person.Role(role)},
	}
}

func TestEvaluate_AbsentToken(t *testing.T) {
	empty := session.Session{}
	for _, required := range [][]person.Role{
		nil,
		{},
		{person.RoleAdmin},
		{person.RoleUser},
		{person.RoleAdmin, person.RoleUser},
	} {
		assert.Equal(t, RedirectToLogin, Evaluate(empty, required))
	}
}

func TestEvaluate_UndecodableToken(t *testing.T) {
	// hydration leaves Identity nil when the token cannot be decoded
	sess := session.Session{Token: "not-a-token"}
	for _, required := range [][]person.Role{nil, {person.RoleAdmin}, {person.RoleUser}} {
		assert.Equal(t, RedirectToLogin, Evaluate(sess, required))
	}
}

func TestEvaluate_UnknownRoleRejected(t *testing.T) {
	sess := sessionWithRole("superadmin")
	assert.Equal(t, RedirectToUnauthorized, Evaluate(sess, []person.Role{person.RoleAdmin}))
	// roleless-but-logged-in does not exist: no resolvable role means logged out
	assert.Equal(t, RedirectToLogin, Evaluate(sess, nil))
}

func TestEvaluate_CaseInsensitiveRoleMatch(t *testing.T) {
	sess := sessionWithRole("ADMIN")
	assert.Equal(t, Render, Evaluate(sess, []person.Role{person.RoleAdmin}))
	assert.Equal(t, RedirectToUnauthorized, Evaluate(sess, []person.Role{person.RoleUser}))
}

func TestEvaluate_EmptySetMeansAnyRole(t *testing.T) {
	assert.Equal(t, Render, Evaluate(sessionWithRole("user"), nil))
	assert.Equal(t, Render, Evaluate(sessionWithRole("admin"), []person.Role{}))
}

func TestEvaluate_WrongRole(t *testing.T) {
	sess := sessionWithRole("user")
	assert.Equal(t, RedirectToUnauthorized, Evaluate(sess, []person.Role{person.RoleAdmin}))
	assert.Equal(t, Render, Evaluate(sess, []person.Role{person.RoleAdmin, person.RoleUser}))
}

func TestEvaluate_Deterministic(t *testing.T) {
	sessions := []session.Session{
		{},
		{Token: "not-a-token"},
		sessionWithRole("user"),
		sessionWithRole("admin"),
		sessionWithRole("guest"),
	}
	sets := [][]person.Role{nil, {person.RoleAdmin}, {person.RoleUser}, {person.RoleAdmin, person.RoleUser}}

	for _, sess := range sessions {
		for _, required := range sets {
			first := Evaluate(sess, required)
			second := Evaluate(sess, required)
			assert.Equal(t, first, second)
		}
	}
}

func TestLandingPath(t *testing.T) {
	cases := []struct {
		name string
		sess session.Session
		want string
	}{
		{"no token", session.Session{}, PathHome},
		{"undecodable token", session.Session{Token: "not-a-token"}, PathHome},
		{"admin", sessionWithRole("admin"), PathAdminDashboard},
		{"admin uppercase", sessionWithRole("ADMIN"), PathAdminDashboard},
		{"user", sessionWithRole("user"), PathUserDashboard},
		{"unknown role", sessionWithRole("guest"), PathUnauthorized},
		{"empty role", sessionWithRole(""), PathUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LandingPath(tc.sess))
		})
	}
}

func TestLandingPath_NeverTargetsAGuardedPath(t *testing.T) {
	// the two failure destinations must stay unguarded to avoid loops
	for _, sess := range []session.Session{{}, sessionWithRole("guest")} {
		target := LandingPath(sess)
		assert.Contains(t, []string{PathHome, PathUnauthorized}, target)
	}
}
