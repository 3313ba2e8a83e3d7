// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Muggles200/InvoiceMarshal/internal/auth"
)

// RouterDeps are the collaborators NewRouter wires together.
type RouterDeps struct {
	Handler  *Handler
	Sessions *auth.SessionStore
	Gate     *auth.Gate
}

// NewRouter builds the HTTP routing tree. Every request passes through the
// request-context middleware and the gate, in that order, so handlers see a
// resolved session and the gate's redirects fire before any handler runs.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(RequestContextMiddleware(deps.Sessions))
	r.Use(GateMiddleware(deps.Gate))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", deps.Handler.Signup)
		r.Post("/login", deps.Handler.Login)
		r.Post("/logout", deps.Handler.Logout)
		r.Get("/me", deps.Handler.Me)
	})

	r.Get("/verify-email", deps.Handler.VerifyEmail)

	return r
}
