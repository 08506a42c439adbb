package services

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/shashiranjanraj/billbook/pkg/orm"
	"github.com/shashiranjanraj/billbook/pkg/validate"
)

// ValidationError reports malformed input. Message is safe to show users.
type ValidationError struct {
	Message string
	Field   string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports a referenced row that does not exist for the owner.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// InsufficientStockError reports a line whose quantity exceeds the stock
// available when it was processed.
type InsufficientStockError struct {
	Product   string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Available: %d", e.Product, e.Available)
}

// PersistenceError wraps a storage failure. Its message is not meant for
// users; controllers answer with a generic "Failed to <op>".
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// UnauthorizedError reports bad credentials.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string { return e.Message }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// passThrough returns err unchanged if it is already one of the typed
// service errors, otherwise wraps it as a PersistenceError.
func passThrough(op string, err error) error {
	var (
		ve *ValidationError
		nf *NotFoundError
		is *InsufficientStockError
		pe *PersistenceError
		ue *UnauthorizedError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &nf), errors.As(err, &is), errors.As(err, &pe), errors.As(err, &ue):
		return err
	}
	return persistence(op, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, orm.ErrNotFound)
}

// checkInput runs the struct's validate tags and reports the first failing
// field in name order, so callers outside HTTP get the same rules.
func checkInput(v any) error {
	errs := validate.Struct(v)
	if !validate.HasErrors(errs) {
		return nil
	}
	field := slices.Sorted(maps.Keys(errs))[0]
	return &ValidationError{Field: field, Message: errs[field]}
}
