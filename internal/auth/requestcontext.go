// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package auth

import "strings"

// OriginUnknown is the sentinel origin address used when no request
// metadata resolved to an address. Resolution never fails.
const OriginUnknown = "unknown"

// RequestContext carries the request-scoped inputs the orchestrator and the
// gate need. It is constructed once at the boundary and passed by value so
// no component reads ambient request state.
type RequestContext struct {
	OriginAddress string
	Path          string
	Session       *Session
}

// ResolveOriginAddress resolves a best-effort client address from request
// metadata: the first element of a forwarded-for list, else the direct
// address, else OriginUnknown.
func ResolveOriginAddress(forwardedFor, directAddress string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		first = strings.TrimSpace(first)
		if first != "" {
			return first
		}
	}
	if directAddress != "" {
		return directAddress
	}
	return OriginUnknown
}
