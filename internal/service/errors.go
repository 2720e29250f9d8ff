package service

import "errors"

var (
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrInvalidCredentials deliberately covers both unknown email and wrong
	// password so login cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account has been disabled")
	ErrAccountLocked      = errors.New("account is temporarily locked")

	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	ErrPasswordReused    = errors.New("you cannot use a previously used password")
)

// ValidationError carries the first violated rule's human-readable message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
