package app

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned for any failed login, whichever part was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateSlug indicates a create or rename would reuse a taken slug.
	ErrDuplicateSlug = errors.New("duplicate slug")
	// ErrEmptyUpdate indicates a patch without any recognised field.
	ErrEmptyUpdate = errors.New("no valid fields to update")
	// ErrValidation indicates malformed or incomplete input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the addressed record or file does not exist.
	ErrNotFound = errors.New("not found")
)

// NotFoundError names the missing resource and matches ErrNotFound.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

func notFound(resource string, err error) error {
	return &NotFoundError{Resource: resource, Err: err}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
