package value

import "errors"

var (
	// ErrUnknownType is returned when a record or tag names no known kind.
	ErrUnknownType = errors.New("unknown value type")

	// ErrInvalidValue is returned when a record or text cannot form a valid value.
	ErrInvalidValue = errors.New("invalid value")

	// ErrUnsupportedText is returned by ParseText for kinds that have no
	// single-line text form.
	ErrUnsupportedText = errors.New("value type has no text form")
)
