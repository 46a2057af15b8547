package common

import (
	"errors"
	"fmt"
)

type UserVisibleError struct {
	HttpCode int
	Message  string
}

func (e *UserVisibleError) Error() string {
	return fmt.Sprintf("Error %d: %s", e.HttpCode, e.Message)
}

func NewUserVisibleError(httpCode int, message string) *UserVisibleError {
	return &UserVisibleError{
		HttpCode: httpCode,
		Message:  message,
	}
}

func WrapErrorForResponse(err error, message string) error {
	if e, ok := err.(*UserVisibleError); ok {
		return &UserVisibleError{
			HttpCode: e.HttpCode,
			Message:  fmt.Sprintf("%s: %s", message, e.Message),
		}
	}
	return err
}

// Reasons a widget refresh ends up in the empty state. All of them are
// handled the same way, but snapshots keep the cause for diagnostics.
var (
	ErrAcquisition = errors.New("data acquisition failed")
	ErrUnresolved  = errors.New("required fields could not be resolved")
	ErrNoData      = errors.New("no usable rows")
)

// EmptyReason maps a pipeline error to a short machine readable reason.
func EmptyReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAcquisition):
		return "acquisition"
	case errors.Is(err, ErrUnresolved):
		return "resolution"
	case errors.Is(err, ErrNoData):
		return "no_data"
	default:
		return "internal"
	}
}
