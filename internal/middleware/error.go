package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ServerErrorMessage is the only message clients see for unexpected failures.
const ServerErrorMessage = "Server error"

// ErrorResponse is the body of every failed request. Message repeats
// Error.Message at the top level, where storefront clients read it.
type ErrorResponse struct {
	Message string      `json:"message"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// NewErrorResponse builds the envelope for status. Code is the status text.
func NewErrorResponse(status int, message string, details map[string]interface{}) ErrorResponse {
	return ErrorResponse{
		Message: message,
		Error: ErrorDetail{
			Code:      http.StatusText(status),
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func RespondWithError(w http.ResponseWriter, status int, message string) {
	RespondWithJSON(w, status, NewErrorResponse(status, message, nil))
}

func RespondWithErrorDetails(w http.ResponseWriter, status int, message string, details map[string]interface{}) {
	RespondWithJSON(w, status, NewErrorResponse(status, message, details))
}

// RespondWithValidationErrors answers 400 with one entry per rejected field.
func RespondWithValidationErrors(w http.ResponseWriter, fieldErrors []ValidationError) {
	RespondWithErrorDetails(w, http.StatusBadRequest, "validation failed", map[string]interface{}{
		"validation_errors": fieldErrors,
	})
}

// RespondWithJSON writes payload with the given status.
func RespondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ErrorHandlingMiddleware turns a panicking handler into a 500 envelope and
// logs the stack. Aborted handlers keep propagating.
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("Handler panicked",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)
				RespondWithError(w, http.StatusInternalServerError, ServerErrorMessage)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
