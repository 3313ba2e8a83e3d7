// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

// Package httpapi exposes the authentication service over HTTP. It owns the
// session cookie, the per-request context middleware, and the route gate.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/Muggles200/InvoiceMarshal/internal/auth"
)

// Handler serves the authentication endpoints.
type Handler struct {
	service  *auth.Service
	sessions *auth.SessionStore
	issuer   *auth.TokenIssuer

	// secureCookies marks session cookies Secure; disabled for local
	// development over plain HTTP.
	secureCookies bool
}

// NewHandler creates a Handler.
func NewHandler(service *auth.Service, sessions *auth.SessionStore, issuer *auth.TokenIssuer, secureCookies bool) (*Handler, error) {
	if service == nil {
		return nil, oops.Errorf("service is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session store is required")
	}
	if issuer == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	return &Handler{
		service:       service,
		sessions:      sessions,
		issuer:        issuer,
		secureCookies: secureCookies,
	}, nil
}

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type signupResponse struct {
	AccountID           string `json:"account_id"`
	PendingVerification bool   `json:"pending_verification"`
}

// Signup handles POST /api/auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, oops.Code(auth.CodeValidation).Errorf("invalid request body"))
		return
	}

	outcome, err := h.service.SubmitSignup(r.Context(), RequestContextFrom(r.Context()), auth.SignupInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{
		AccountID:           outcome.AccountID.String(),
		PendingVerification: outcome.PendingVerification,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccountID string `json:"account_id"`
}

// Login handles POST /api/auth/login. On success the session token is set as
// an HttpOnly cookie; it is never included in the response body.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, oops.Code(auth.CodeValidation).Errorf("invalid request body"))
		return
	}

	outcome, err := h.service.SubmitLogin(r.Context(), RequestContextFrom(r.Context()), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(outcome.SessionToken, outcome.Session.ExpiresAt))
	writeJSON(w, http.StatusOK, loginResponse{AccountID: outcome.AccountID.String()})
}

// Logout handles POST /api/auth/logout. Revokes the presented session if one
// exists and clears the cookie either way.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.sessions.Revoke(r.Context(), cookie.Value); err != nil {
			writeError(w, err)
			return
		}
	}

	expired := h.sessionCookie("", time.Unix(0, 0))
	expired.MaxAge = -1
	http.SetCookie(w, expired)
	w.WriteHeader(http.StatusNoContent)
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

// VerifyEmail handles GET /verify-email?token=...; redeeming marks the
// account verified and consumes the token.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if err := h.issuer.Redeem(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Verified: true})
}

type meResponse struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
	Verified  bool   `json:"verified"`
}

// Me handles GET /api/auth/me, reporting the caller's session snapshot.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	rc := RequestContextFrom(r.Context())
	if rc.Session == nil {
		writeError(w, oops.Code(auth.CodeInvalidCredentials).Errorf("not authenticated"))
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		AccountID: rc.Session.AccountID.String(),
		Role:      string(rc.Session.Role),
		Verified:  rc.Session.Verified,
	})
}

func (h *Handler) sessionCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
