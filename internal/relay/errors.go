package relay

import (
	"errors"
	"fmt"
)

// validationError signals a malformed or missing request field.
type validationError struct {
	field string
	msg   string
}

func (e validationError) Error() string {
	if e.field == "" {
		return e.msg
	}
	return e.field + ": " + e.msg
}

// ErrValidation constructs a validation error for field.
func ErrValidation(field, format string, args ...any) error {
	return validationError{field: field, msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err was caused by an invalid request.
func IsValidation(err error) bool {
	var ve validationError
	return errors.As(err, &ve)
}

// invalidRequestError signals a body that is not an envelope nor bare JSON object.
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return "invalid request: " + e.msg }

// IsInvalidRequest reports whether err means the body could not be parsed at all.
func IsInvalidRequest(err error) bool {
	var ie invalidRequestError
	return errors.As(err, &ie)
}
