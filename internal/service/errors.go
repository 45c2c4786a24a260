package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrInvalidAdminCredentials = errors.New("invalid admin credentials")
	ErrNoUsers                 = errors.New("no users found")
	ErrNoProducts              = errors.New("no products found")
)

// ValidationError reports client input the service refuses to act on.
// Message is safe to show to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AsValidationError unwraps err into a *ValidationError when it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
