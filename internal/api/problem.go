// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ManuGH/isic-scoring/internal/log"
)

// HeaderRequestID carries the request correlation id.
const HeaderRequestID = "X-Request-ID"

// Problem types.
const (
	ProblemBadRequest    = "request/invalid"
	ProblemTooLarge      = "request/too_large"
	ProblemRateLimited   = "request/rate_limited"
	ProblemNotFound      = "submission/not_found"
	ProblemNotConfigured = "task/not_configured"
	ProblemScoring       = "scoring/rejected"
	ProblemUnavailable   = "system/unavailable"
	ProblemInternal      = "system/internal"
)

const requestIDMissingValue = "unknown"

// requestLogger returns the component logger enriched with the request's correlation fields.
func requestLogger(r *http.Request, component string) *zerolog.Logger {
	logger := log.WithComponentFromContext(r.Context(), component)
	return &logger
}

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"requestId"`
}

// writeProblem writes an application/problem+json response carrying the request id.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	reqID := log.RequestIDFromContext(r.Context())
	if reqID == "" {
		reqID = w.Header().Get(HeaderRequestID)
	}
	if reqID == "" {
		reqID = requestIDMissingValue
	}

	p := Problem{
		Type:      problemType,
		Title:     title,
		Status:    status,
		Detail:    detail,
		Instance:  r.URL.EscapedPath(),
		RequestID: reqID,
	}

	w.Header().Set(HeaderRequestID, reqID)
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		requestLogger(r, "api").Error().
			Err(err).
			Str("type", problemType).
			Int(log.FieldStatus, status).
			Msg("failed to encode problem response")
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		requestLogger(r, "api").Error().
			Err(err).
			Int(log.FieldStatus, status).
			Msg("failed to encode response")
	}
}
