// Package businessflow contains the core business logic and use cases for waitlist and attribution workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Visitor-related errors
	ErrVisitorNotFound    = errors.New("visitor not found")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrEmailAlreadyExists = errors.New("email already exists")

	// Waitlist errors
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrIdentityRequired       = errors.New("identity required to join the waitlist")

	// Attribution errors
	ErrInvalidPageAddress = errors.New("page address is not a valid URL")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsVisitorNotFound(err error) bool {
	return errors.Is(err, ErrVisitorNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsEmailAlreadyRegistered(err error) bool {
	return errors.Is(err, ErrEmailAlreadyRegistered)
}

func IsIdentityRequired(err error) bool {
	return errors.Is(err, ErrIdentityRequired)
}

func IsInvalidPageAddress(err error) bool {
	return errors.Is(err, ErrInvalidPageAddress)
}

func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}
