package support

import "errors"

var ErrRequestNotFound = errors.New("support request not found")
