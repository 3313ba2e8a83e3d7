// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

// Package auth implements credential authentication and abuse throttling
// for InvoiceMarshal.
//
// # Domain Types
//
// Domain types (Account, AttemptRecord, VerificationToken, Session) should
// be created using their respective constructors:
//   - NewAccount - creates an Account with a validated email and password hash
//   - NewAttemptRecord - creates an AttemptRecord stamped with the ledger clock
//   - NewVerificationToken - creates a VerificationToken with hash and expiry
//   - NewSession - creates a Session snapshotting role and verification state
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - signup and login orchestration
//   - Throttle - sliding-window admission decisions backed by the attempt ledger
//   - TokenIssuer - email verification token issuance and redemption
//   - SessionStore - opaque session token establishment and lookup
//   - Gate - per-request allow/redirect decisions for the protected area
//
// Services are created with New* constructors that validate dependencies.
// No service holds mutable state between requests; all coordination is
// delegated to the backing store.
package auth
