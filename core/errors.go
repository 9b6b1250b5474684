package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NotFoundError is returned when the targeted row does not exist.
type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) *NotFoundError {
	return &NotFoundError{msg: msg}
}

func (err *NotFoundError) Error() string {
	return err.msg
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// DuplicateError is returned when a create is refused because an equivalent row already exists.
type DuplicateError struct {
	Message string
}

func NewDuplicateError(msg string) error {
	return &DuplicateError{Message: msg}
}

func (err *DuplicateError) Error() string {
	return err.Message
}

func IsDuplicate(err error) bool {
	_, ok := errors.Cause(err).(*DuplicateError)
	return ok
}

// Duplicate reports that an idempotent create found an existing row and returned it instead.
type Duplicate struct {
	Message string
}

func NewDuplicate(entity string) *Duplicate {
	return &Duplicate{Message: entity + " already exists"}
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
