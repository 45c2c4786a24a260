package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes caps decoded request bodies. Bulk orders are the largest.
const maxBodyBytes = 1 << 20

// ErrEmptyBody is returned by DecodeAndValidate for a request without a body.
var ErrEmptyBody = errors.New("request body is empty")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRequest validates a struct against its validation tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// DecodeAndValidate decodes JSON request body and validates it
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return ValidateRequest(v)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator errors to a readable format.
// It returns nil when err is not a validation failure.
func FormatValidationErrors(err error) []ValidationError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	formatted := make([]ValidationError, 0, len(validationErrors))
	for _, e := range validationErrors {
		formatted = append(formatted, ValidationError{
			Field:   fieldPath(e),
			Message: messageFor(e),
		})
	}
	return formatted
}

// fieldPath drops the top-level struct name, e.g. "order[0].quantity".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

// tagMessages maps validator tags to client-facing text. A trailing space
// means the tag parameter is appended.
var tagMessages = map[string]string{
	"required": "This field is required",
	"email":    "Invalid email format",
	"min":      "Value is too short",
	"max":      "Value is too long",
	"gte":      "Value must be greater than or equal to ",
	"gt":       "Value must be greater than ",
	"oneof":    "Value must be one of: ",
}

func messageFor(e validator.FieldError) string {
	msg, ok := tagMessages[e.Tag()]
	if !ok {
		return "Invalid value"
	}
	if strings.HasSuffix(msg, " ") {
		return msg + e.Param()
	}
	return msg
}
