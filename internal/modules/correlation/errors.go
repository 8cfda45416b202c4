package correlation

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat         = errors.New("invalid correlation id format")
	ErrMissingRequiredHeader = errors.New("required correlation id header missing")
	ErrNotBound              = errors.New("no correlation id bound to request, is the interceptor installed?")
)

func errInvalidFormat(text string) error {
	return fmt.Errorf("value: %q: %w", text, ErrInvalidFormat)
}

func errMissingRequiredHeader(headerName string) error {
	return fmt.Errorf("header '%s' is required: %w", headerName, ErrMissingRequiredHeader)
}
