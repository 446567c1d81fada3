package handler

// Response helpers. Every response this API sends — success or failure —
// uses the same envelope:
//
//	{"response": <data>, "message": "<human readable>"}
//
// A client can always read .message and always find the payload (possibly
// an empty object) under .response, regardless of status code. Domain errors
// are translated here with errors.Is/As; raw internal errors are logged with
// the caller's IP and the mapped status, and never reach the wire.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/accounts-api/internal/apperror"
)

// Envelope is the universal response shape.
type Envelope struct {
	Response any    `json:"response"`
	Message  string `json:"message"`
}

// Canonical messages, matching the API's published contract.
const (
	msgSuccess      = "Success."
	msgUnauthorized = "Unauthorized."
	msgForbidden    = "Access Denied."
	msgNotFound     = "Resource Not Found."
	msgConflict     = "User already exists."
	msgMissing      = "Required fields are missing."
	msgInternal     = "Something went wrong please try again."
)

// writeJSON sends the envelope with the given status. A nil data becomes an
// empty object so .response is always present.
func writeJSON(w http.ResponseWriter, status int, data any, message string) {
	if data == nil {
		data = struct{}{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{Response: data, Message: message}); err != nil {
		// Headers are already gone; all we can do is log.
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError maps a domain error to a status code, logs it with the caller's
// IP, and sends the envelope.
//
// The service layer returns apperror sentinels; nothing HTTP-specific lives
// below this function, and nothing error-taxonomy-specific lives above it.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	message := msgInternal

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusUnprocessableEntity
			message = appErr.Message
			if message == "" {
				message = msgMissing
			}
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			message = appErr.Message
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			message = msgForbidden
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			message = appErr.Message
			if message == "" {
				message = msgNotFound
			}
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			message = msgConflict
		case errors.Is(err, apperror.ErrUpstream):
			status = http.StatusInternalServerError
			message = appErr.Message
		}
	}

	logRequestError(logger, r, status, err)
	writeJSON(w, status, nil, message)
}

// decodeJSON reads a request body into dst. A body that fails to parse is a
// validation failure (422), same as missing fields — the client sent
// something the contract doesn't allow, not something the server broke on.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed(msgMissing)
	}
	return nil
}

// logRequestError records a failed request with caller IP, status, and the
// original (unfiltered) error. Client errors up to 404 log at info, the
// rest at error.
func logRequestError(logger *slog.Logger, r *http.Request, status int, err error) {
	attrs := []any{
		slog.String("ip", r.RemoteAddr),
		slog.Int("status", status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	}
	if status > http.StatusNotFound {
		logger.Error("request failed", attrs...)
	} else {
		logger.Info("request failed", attrs...)
	}
}
