package appointment

import "errors"

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrNotOwner            = errors.New("appointment belongs to another user")
)
