// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package httpapi

import (
	"context"
	"net"
	"net/http"

	"github.com/Muggles200/InvoiceMarshal/internal/auth"
)

// SessionCookieName carries the opaque session token.
const SessionCookieName = "im_session"

type contextKey int

const requestContextKey contextKey = iota

// RequestContextFrom returns the auth request context attached by
// RequestContextMiddleware, or a zero value when absent.
func RequestContextFrom(ctx context.Context) auth.RequestContext {
	rc, _ := ctx.Value(requestContextKey).(auth.RequestContext)
	return rc
}

// RequestContextMiddleware resolves the caller's origin address and session
// once per request and attaches both as an auth.RequestContext. Session
// resolution failures degrade to an anonymous request rather than an error.
func RequestContextMiddleware(sessions *auth.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := auth.RequestContext{
				OriginAddress: auth.ResolveOriginAddress(r.Header.Get("X-Forwarded-For"), remoteHost(r)),
				Path:          r.URL.Path,
			}

			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				session, err := sessions.Read(r.Context(), cookie.Value)
				if err == nil {
					rc.Session = session
				}
			}

			ctx := context.WithValue(r.Context(), requestContextKey, rc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GateMiddleware evaluates the route gate for every request and issues the
// redirect the decision demands before any handler runs.
func GateMiddleware(gate *auth.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := gate.Evaluate(RequestContextFrom(r.Context()))
			if !decision.Allow {
				http.Redirect(w, r, decision.RedirectTo, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// remoteHost strips the port from the request's remote address.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
