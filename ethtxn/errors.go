package ethtxn

import (
	"errors"
	"fmt"
)

var (
	ErrMissingRequiredField = errors.New("ethtxn: missing required field")
	ErrInvalidNumericField  = errors.New("ethtxn: invalid numeric field")
	ErrInvalidIntent        = errors.New("ethtxn: invalid transaction intent")
)

// FieldError reports which intent field failed validation. Err is one of
// ErrMissingRequiredField or ErrInvalidNumericField.
type FieldError struct {
	Field string
	Err   error
	Cause error
}

func (e *FieldError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", e.Err.Error(), e.Field, e.Cause)
	}
	return fmt.Sprintf("%s %s", e.Err.Error(), e.Field)
}

func (e *FieldError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func missingField(field string) error {
	return &FieldError{Field: field, Err: ErrMissingRequiredField}
}

func invalidNumericField(field string, cause error) error {
	return &FieldError{Field: field, Err: ErrInvalidNumericField, Cause: cause}
}
