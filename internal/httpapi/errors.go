// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cloakroom Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/cloakroom/cloakroom/pkg/errutil"
)

// errorEnvelope is the fixed-shape JSON error body. Stack traces and
// internal identifiers never cross the boundary.
type errorEnvelope struct {
	Message string `json:"message"`
}

// statusForCode maps service error codes to HTTP status codes. Anything
// unmapped is an internal error.
var statusForCode = map[string]int{
	"AUTH_MALFORMED_INPUT":     http.StatusBadRequest,
	"AUTH_INVALID_CREDENTIALS": http.StatusBadRequest,
	"USER_INVALID_USERNAME":    http.StatusBadRequest,
	"SESSION_TOKEN_EMPTY":      http.StatusUnauthorized,
	"SESSION_INVALID":          http.StatusUnauthorized,
	"SESSION_EXPIRED":          http.StatusUnauthorized,
}

// errorStatus resolves the HTTP status for a service error.
func errorStatus(err error) int {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, isString := oopsErr.Code().(string); isString {
			if status, mapped := statusForCode[code]; mapped {
				return status
			}
		}
	}
	return http.StatusInternalServerError
}

// writeJSON serializes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // response write error is unrecoverable, client may have disconnected
	_ = json.NewEncoder(w).Encode(v)
}

// writeError converts a service error into the client-facing envelope.
// Internal errors are logged with full context and replaced by a generic
// message; client errors keep their (already safe) message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		errutil.LogError(logger, "request failed", err)
		writeJSON(w, status, errorEnvelope{Message: "internal server error"})
		return
	}
	writeJSON(w, status, errorEnvelope{Message: err.Error()})
}

// recoverMiddleware normalizes panics into a 500 envelope so no stack
// trace ever reaches the client.
func recoverMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic in request handler",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
				)
				writeJSON(w, http.StatusInternalServerError, errorEnvelope{Message: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
