// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/Muggles200/InvoiceMarshal/internal/auth"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // response write error means the client disconnected
	json.NewEncoder(w).Encode(body)
}

// writeError maps a service error to an HTTP status and JSON body. Errors
// without a recognized code are treated as internal failures and their
// message is withheld from the client.
func writeError(w http.ResponseWriter, err error) {
	code := "INTERNAL"
	status := http.StatusInternalServerError

	if oopsErr, ok := oops.AsOops(err); ok {
		switch oopsErr.Code() {
		case auth.CodeValidation:
			code, status = auth.CodeValidation, http.StatusBadRequest
		case auth.CodeRateLimited:
			code, status = auth.CodeRateLimited, http.StatusTooManyRequests
		case auth.CodeDuplicateEmail:
			code, status = auth.CodeDuplicateEmail, http.StatusConflict
		case auth.CodeInvalidCredentials:
			code, status = auth.CodeInvalidCredentials, http.StatusUnauthorized
		case auth.CodeUpstream:
			code, status = auth.CodeUpstream, http.StatusBadGateway
		}
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		message = "internal error"
	}

	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
