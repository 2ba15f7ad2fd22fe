// Package gate decides whether a requested view may render for a session.
//
// Decide is a pure function of the session state, the view's role whitelist
// and the requested location. Transport adapters turn the Decision into a
// response; see the api/middleware package.
package gate

import "github.com/servicehub/session-gateway/internal/core/domain"

// Outcome is the kind of decision taken by the gate.
type Outcome string

const (
	// OutcomeLoading means hydration or an auth operation is still pending.
	OutcomeLoading Outcome = "loading"
	// OutcomeLogin sends an anonymous visitor to the login destination.
	OutcomeLogin Outcome = "login"
	// OutcomeUnauthorized sends a user whose role is not whitelisted away.
	OutcomeUnauthorized Outcome = "unauthorized"
	// OutcomeRender lets the view render unchanged.
	OutcomeRender Outcome = "render"
)

// Decision is the gate's verdict. From carries the originally requested
// location on OutcomeLogin so the caller can return there after login.
type Decision struct {
	Outcome Outcome
	From    string
}

// Decide applies the gate rules in order: loading, authentication, role.
func Decide(state domain.SessionState, allowed []domain.Role, location string) Decision {
	switch {
	case !state.Hydrated || state.Loading:
		return Decision{Outcome: OutcomeLoading}
	case !state.IsAuthenticated():
		return Decision{Outcome: OutcomeLogin, From: location}
	case !state.IsAllowed(allowed):
		return Decision{Outcome: OutcomeUnauthorized}
	default:
		return Decision{Outcome: OutcomeRender}
	}
}
