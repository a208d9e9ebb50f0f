package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type contextKey string

const userIDKey contextKey = "user_id"

// withAuth validates the Bearer token and stores the acting user id in the
// request context.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, core.ErrInvalidCredentials)
			return
		}
		userID, err := s.auth.VerifyToken(token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// errBadRequest wraps decode and query-parse failures so writeError can
// distinguish malformed requests from domain validation errors.
type errBadRequest struct{ msg string }

func (e errBadRequest) Error() string { return e.msg }

func badRequest(msg string) error { return errBadRequest{msg: msg} }

// readJSON decodes the request body into dst, rejecting unknown fields.
func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps a domain error onto a status code and a stable message
// code. Unrecognized errors become opaque 500s.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	message := err.Error()

	var bad errBadRequest
	switch {
	case errors.As(err, &bad):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, core.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, core.ErrOwnershipMismatch):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, core.ErrInsufficientFunds):
		status, code = http.StatusBadRequest, "insufficient_funds"
	case errors.Is(err, core.ErrEmailTaken):
		status, code = http.StatusConflict, "email_taken"
	case errors.Is(err, core.ErrInvalidTimeframe):
		status, code = http.StatusBadRequest, "invalid_timeframe"
	case core.IsNotFound(err):
		status, code = http.StatusNotFound, "not_found"
	case core.IsValidation(err):
		status, code = http.StatusUnprocessableEntity, "validation_error"
	default:
		// Do not leak internals on unexpected failures.
		message = "internal server error"
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
	}

	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// parseAmount reads a monetary amount that may arrive as a JSON number
// or as a string with a dot or comma decimal separator.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 {
		return decimal.Decimal{}, badRequest("amount is required")
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Decimal{}, badRequest("invalid amount")
		}
	}
	return core.ParseAmount(s)
}

// parseDate parses a date in YYYY-MM-DD or RFC 3339 form.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, badRequest("invalid date " + strconv.Quote(value) + ": expected YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

// queryInt reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, key string, def int) int {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
