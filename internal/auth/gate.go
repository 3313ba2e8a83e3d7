// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth

import (
	"strings"

	"github.com/samber/oops"
)

// GateState is the authorization state the gate derives for one request.
// It is computed per request and never persisted.
type GateState int

// Gate states.
const (
	// Anonymous means no session was presented.
	Anonymous GateState = iota

	// AuthenticatedUnverified means a session exists but the email is not
	// yet verified.
	AuthenticatedUnverified

	// AuthenticatedVerified means a session exists with a verified email.
	AuthenticatedVerified
)

// Decision is the gate's verdict for one request.
type Decision struct {
	Allow      bool
	RedirectTo string // set only when Allow is false
	State      GateState
}

func allow(state GateState) Decision {
	return Decision{Allow: true, State: state}
}

// GateConfig enumerates the protected area and its redirect destinations.
// Prefixes are literal path prefixes, not patterns.
type GateConfig struct {
	// ProtectedPrefixes are the path prefixes subject to gate evaluation.
	// Requests outside them are allowed unconditionally and never reach
	// the state machine.
	ProtectedPrefixes []string

	// AdminPrefix is the administrative area; non-admin verified sessions
	// are redirected away from it.
	AdminPrefix string

	// VerifyPath is the verification-pending destination for unverified
	// sessions. Requests to it are always allowed to avoid redirect loops.
	VerifyPath string

	// UnauthorizedPath is where non-admin sessions are sent from the
	// administrative area.
	UnauthorizedPath string
}

// Validate checks the configuration.
func (c GateConfig) Validate() error {
	if len(c.ProtectedPrefixes) == 0 {
		return oops.Errorf("at least one protected prefix is required")
	}
	for _, p := range c.ProtectedPrefixes {
		if !strings.HasPrefix(p, "/") {
			return oops.With("prefix", p).Errorf("protected prefix must start with /")
		}
	}
	if !strings.HasPrefix(c.AdminPrefix, "/") {
		return oops.Errorf("admin prefix must start with /")
	}
	if !strings.HasPrefix(c.VerifyPath, "/") {
		return oops.Errorf("verify path must start with /")
	}
	if !strings.HasPrefix(c.UnauthorizedPath, "/") {
		return oops.Errorf("unauthorized path must start with /")
	}
	return nil
}

// Gate evaluates the per-request authorization state machine over the
// protected area. Evaluation is a pure function of the request context.
type Gate struct {
	cfg GateConfig
}

// NewGate creates a Gate from a validated configuration.
func NewGate(cfg GateConfig) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Gate{cfg: cfg}, nil
}

// Protected reports whether a path falls inside the protected area.
func (g *Gate) Protected(path string) bool {
	for _, prefix := range g.cfg.ProtectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Evaluate decides allow/redirect for one request.
//
// Paths outside the protected area are allowed without entering the state
// machine. Inside it: anonymous requests are allowed (route-level guards
// downstream decide further); unverified sessions are redirected to the
// verification destination unless already there; verified non-admin
// sessions are redirected away from the administrative area.
func (g *Gate) Evaluate(rc RequestContext) Decision {
	if !g.Protected(rc.Path) {
		return allow(stateOf(rc.Session))
	}

	switch state := stateOf(rc.Session); state {
	case Anonymous:
		return allow(state)

	case AuthenticatedUnverified:
		if rc.Path == g.cfg.VerifyPath {
			return allow(state)
		}
		return Decision{RedirectTo: g.cfg.VerifyPath, State: state}

	default: // AuthenticatedVerified
		if strings.HasPrefix(rc.Path, g.cfg.AdminPrefix) && rc.Session.Role != RoleAdmin {
			return Decision{RedirectTo: g.cfg.UnauthorizedPath, State: state}
		}
		return allow(state)
	}
}

func stateOf(session *Session) GateState {
	switch {
	case session == nil:
		return Anonymous
	case !session.Verified:
		return AuthenticatedUnverified
	default:
		return AuthenticatedVerified
	}
}
