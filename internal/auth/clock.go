// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth

import "time"

// Clock supplies the current time. Injected so throttling windows and token
// expiry can be tested with fixed timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the Clock used in production.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
