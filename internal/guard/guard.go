// Package guard is the access-control gate in front of every protected
// page: a pure decision procedure over the hydrated session and the
// page's required roles. It decides, the caller navigates.
//
// Decoding here is structural, never cryptographic, so the gate is
// routing convenience only. Every protected REST call re-verifies the
// token server-side; see the authn middleware.
package guard

import (
	"github.com/openshelf/openshelf/internal/person"
	"github.com/openshelf/openshelf/internal/session"
)

// Fixed redirect targets. Home and unauthorized are always wired
// unguarded, otherwise a failed guard would bounce forever.
const (
	PathHome           = "/"
	PathUnauthorized   = "/unauthorized"
	PathAdminDashboard = "/admin/dashboard"
	PathUserDashboard  = "/user/dashboard"
)

type Decision int

const (
	Render Decision = iota
	RedirectToLogin
	RedirectToUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToUnauthorized:
		return "redirect_to_unauthorized"
	default:
		return "unknown"
	}
}

// Evaluate is the whole gate. Pure and total: same session and role set
// in, same decision out, and no input makes it fail.
//
//   - no token, or a token nobody can decode: RedirectToLogin
//   - empty required set means any authenticated role, but a session
//     whose role does not resolve is not "authenticated for nothing" -
//     it is logged out: RedirectToLogin
//   - resolvable role outside a non-empty required set (including an
//     unknown role string): RedirectToUnauthorized
//   - otherwise: Render
func Evaluate(sess session.Session, required []person.Role) Decision {
	if !sess.Authenticated() {
		return RedirectToLogin
	}

	role, ok := person.ParseRole(string(sess.Identity.Role))
	if len(required) == 0 {
		if !ok {
			return RedirectToLogin
		}
		return Render
	}
	if !ok {
		return RedirectToUnauthorized
	}
	for _, want := range required {
		if want == role {
			return Render
		}
	}
	return RedirectToUnauthorized
}

// LandingPath picks the role-specific landing page for the /dashboard
// entry point. One redirect, straight to a terminal path; it never
// routes through another guarded page. A session with no usable
// identity goes home; a decodable token with a role outside the closed
// set goes to the unauthorized page.
func LandingPath(sess session.Session) string {
	if !sess.Authenticated() {
		return PathHome
	}
	role, ok := person.ParseRole(string(sess.Identity.Role))
	if !ok {
		return PathUnauthorized
	}
	switch role {
	case person.RoleAdmin:
		return PathAdminDashboard
	default:
		return PathUserDashboard
	}
}
