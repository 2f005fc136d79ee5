package auth

import (
	"errors"
	"fmt"
)

// Provider error codes.
const (
	CodeInvalidEmail       = "auth/invalid-email"
	CodeWeakPassword       = "auth/weak-password"
	CodeEmailInUse         = "auth/email-already-in-use"
	CodeInvalidCredentials = "auth/invalid-credential"
)

// FallbackMessage is shown when a failure carries no provider message.
const FallbackMessage = "Something went wrong. Please try again."

var (
	// ErrInvalidToken is returned for malformed, expired or mis-signed tokens.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrSubmitInProgress is returned when a gate is submitted twice concurrently.
	ErrSubmitInProgress = errors.New("auth: submission already in progress")
)

// ProviderError is a rejection from the auth provider with a
// human-readable message.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("auth: %s: %s", e.Code, e.Message)
}

func newProviderError(code, message string) *ProviderError {
	return &ProviderError{Code: code, Message: message}
}

// MessageFor returns the text to show a user for err.
func MessageFor(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	return FallbackMessage
}
