// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned by AccountRepository.Create when the email
// uniqueness constraint is violated. Repositories map their engine-specific
// violation (e.g. pgerrcode.UniqueViolation) to this sentinel so the race
// between the existence check and the insert resolves deterministically.
var ErrDuplicateEmail = errors.New("email already registered")

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Error codes attached to oops errors returned from this package.
// Callers branch on the code, never on the message text.
const (
	// CodeValidation marks malformed input rejected before any store access.
	CodeValidation = "AUTH_VALIDATION"

	// CodeRateLimited marks an attempt denied by the throttle.
	CodeRateLimited = "AUTH_RATE_LIMITED"

	// CodeDuplicateEmail marks a signup against an existing account.
	CodeDuplicateEmail = "AUTH_DUPLICATE_EMAIL"

	// CodeInvalidCredentials marks a failed login. Unknown accounts and wrong
	// passwords are deliberately indistinguishable to prevent enumeration.
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"

	// CodeUpstream marks a store or mail collaborator failure. The caller
	// sees a generic failure; the full cause is logged server-side.
	CodeUpstream = "AUTH_UPSTREAM"
)
