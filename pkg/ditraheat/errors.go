package ditraheat

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Construction
	ErrEmptyEmail        = errors.New("ditraheat: email cannot be empty")
	ErrEmptyPassword     = errors.New("ditraheat: password cannot be empty")
	ErrEmptySerialNumber = errors.New("ditraheat: serial number cannot be empty")
	ErrInvalidMode       = errors.New("ditraheat: invalid regulation mode")
	ErrInvalidUnit       = errors.New("ditraheat: invalid temperature unit")

	// Requests
	ErrInvalidTemperature = errors.New("ditraheat: invalid temperature")

	// Sign-in
	ErrInvalidEmail    = errors.New("ditraheat: sign in: invalid email")
	ErrInvalidPassword = errors.New("ditraheat: sign in: invalid password")
	ErrUnknownAuth     = errors.New("ditraheat: sign in: unknown error")

	// Responses
	ErrSessionExpired    = errors.New("ditraheat: session expired")
	ErrMalformedResponse = errors.New("ditraheat: malformed response")
)

// AuthError is returned when sign-in answers with a non-zero error code.
type AuthError struct {
	Code int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Unwrap().Error(), e.Code)
}

// Unwrap maps the vendor code onto one of the sign-in sentinels.
func (e *AuthError) Unwrap() error {
	switch e.Code {
	case SignInInvalidEmail:
		return ErrInvalidEmail
	case SignInInvalidPassword:
		return ErrInvalidPassword
	default:
		return ErrUnknownAuth
	}
}

// APIError is a non-2xx response from the vendor service.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ditraheat: %s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ditraheat: %s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
}

// Unwrap exposes ErrSessionExpired for 401 responses to authenticated
// requests. A 401 from sign-in itself means no session was issued.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized && e.Endpoint != PathSignIn {
		return ErrSessionExpired
	}
	return nil
}

// IsUnauthorized reports whether err came from a 401 response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// IsAuthError reports whether err is a sign-in rejection.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsMalformed reports whether a response was missing an expected field.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
