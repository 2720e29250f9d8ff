package domain

import "errors"

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email is already registered")
	ErrIDNumberTaken = errors.New("ID Number is already registered")
)
