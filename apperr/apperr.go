package apperr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Match with errors.Is.
var (
	// ErrStore marks source store connectivity or query failures
	ErrStore = errors.New("store error")
	// ErrArchive marks archive store write failures
	ErrArchive = errors.New("archive error")
	// ErrConfig marks missing or invalid connection configuration
	ErrConfig = errors.New("config error")
)

// Error wraps an underlying failure with its kind and the operation that failed
type Error struct {
	Kind error
	Op   string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying failure
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is this error's kind
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Store wraps err as a source store failure. A nil err returns nil.
func Store(op string, err error) error {
	return wrap(ErrStore, op, err)
}

// Archive wraps err as an archive store failure. A nil err returns nil.
func Archive(op string, err error) error {
	return wrap(ErrArchive, op, err)
}

// Config returns a configuration failure with the given message
func Config(format string, args ...interface{}) error {
	return &Error{Kind: ErrConfig, Op: "config", Err: fmt.Errorf(format, args...)}
}

func wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) && existing.Kind == kind {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
