// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// Throttle policy defaults.
//
// Keying on both the account identity and the network origin defeats
// attackers who rotate either dimension alone. Users sharing a NAT may be
// throttled together; that tradeoff is accepted.
const (
	// SignupWindow is the sliding window for signup admission.
	SignupWindow = time.Hour

	// SignupMaxFailures is the failed-signup count that denies admission.
	SignupMaxFailures = 5

	// LoginWindow is the sliding window for login admission.
	LoginWindow = 15 * time.Minute

	// LoginMaxFailures is the failed-login count that denies admission.
	LoginMaxFailures = 5
)

// Admission is the throttle's decision for one attempt.
type Admission int

// Admission decisions.
const (
	// Admit allows the credential step to proceed.
	Admit Admission = iota

	// Deny refuses the attempt before any credential step runs.
	Deny
)

// Throttle decides admission from failure counts in a sliding window
// [now - window, now). It holds no state of its own; counts come from the
// attempt ledger.
type Throttle struct {
	kind        AttemptKind
	ledger      *AttemptLedger
	clock       Clock
	window      time.Duration
	maxFailures int
}

// NewThrottle creates a Throttle with an explicit policy.
func NewThrottle(kind AttemptKind, ledger *AttemptLedger, clock Clock, window time.Duration, maxFailures int) (*Throttle, error) {
	if ledger == nil {
		return nil, oops.Errorf("attempt ledger is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if window <= 0 {
		return nil, oops.Errorf("throttle window must be positive")
	}
	if maxFailures <= 0 {
		return nil, oops.Errorf("throttle max failures must be positive")
	}
	return &Throttle{
		kind:        kind,
		ledger:      ledger,
		clock:       clock,
		window:      window,
		maxFailures: maxFailures,
	}, nil
}

// NewSignupThrottle creates the signup admission policy (1h window, 5
// failures, keyed on email and origin address).
func NewSignupThrottle(ledger *AttemptLedger, clock Clock) (*Throttle, error) {
	return NewThrottle(AttemptSignup, ledger, clock, SignupWindow, SignupMaxFailures)
}

// NewLoginThrottle creates the login admission policy (15m window, 5
// failures, keyed on account id when known and origin address).
func NewLoginThrottle(ledger *AttemptLedger, clock Clock) (*Throttle, error) {
	return NewThrottle(AttemptLogin, ledger, clock, LoginWindow, LoginMaxFailures)
}

// CheckAdmission counts recent failures of the throttle's kind matching any
// supplied identity and denies once the count reaches the policy maximum.
// A denial writes nothing to the ledger; no credential step ran.
func (t *Throttle) CheckAdmission(ctx context.Context, match FailureMatch) (Admission, error) {
	windowStart := t.clock.Now().Add(-t.window)
	count, err := t.ledger.CountRecentFailures(ctx, t.kind, windowStart, match)
	if err != nil {
		return Deny, err
	}
	if count >= t.maxFailures {
		return Deny, nil
	}
	return Admit, nil
}
