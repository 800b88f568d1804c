package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/you/go-airfare-oracle/internal/service"
	"github.com/you/go-airfare-oracle/internal/sheets"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "encode failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// statusClientClosedRequest is written when the caller went away mid-query.
const statusClientClosedRequest = 499

// writeServiceError maps selector and parsing failures onto status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ie *service.InvalidQueryError
	switch {
	case errors.As(err, &ie), errors.Is(err, sheets.ErrUnsupportedFormat):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNoAirlines):
		slog.ErrorContext(r.Context(), "selector misconfigured", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	case errors.Is(err, context.Canceled):
		slog.DebugContext(r.Context(), "client closed request", "path", r.URL.Path)
		writeError(w, r, statusClientClosedRequest, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, err.Error())
	default:
		slog.WarnContext(r.Context(), "price oracle failed", "error", err)
		writeError(w, r, http.StatusBadGateway, err.Error())
	}
}
