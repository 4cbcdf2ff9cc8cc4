package session

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTileType = errors.New("session: unknown tile type")
	ErrRegionTooLarge  = errors.New("session: region too large")
	ErrGenerateTooBig  = errors.New("session: generation too large")
	ErrClosed          = errors.New("session: closed")
)

// ValidationError rejects a request before anything was mutated. Msg is meant
// to be shown to the user next to the action that caused it.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
