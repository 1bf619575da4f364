package export

import (
	"context"
	"errors"

	errorslib "github.com/goliatone/go-errors"
)

// ErrorKind defines export error kinds.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindMissingInput    ErrorKind = "missing_input"
	KindPatternNotFound ErrorKind = "pattern_not_found"
	KindToolMissing     ErrorKind = "tool_missing"
	KindTimeout         ErrorKind = "timeout"
	KindToolExit        ErrorKind = "tool_exit"
	KindIO              ErrorKind = "io"
	KindCanceled        ErrorKind = "canceled"
	KindInternal        ErrorKind = "internal"
)

// ExportError wraps errors with a kind.
type ExportError struct {
	Kind ErrorKind
	Msg  string
	Err  error
	// ExitCode is set for KindToolExit errors.
	ExitCode int
}

func (e *ExportError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewError creates a new export error.
func NewError(kind ErrorKind, msg string, err error) *ExportError {
	return &ExportError{Kind: kind, Msg: msg, Err: err}
}

// NewExitError creates a KindToolExit error carrying the process exit code.
func NewExitError(code int, msg string, err error) *ExportError {
	return &ExportError{Kind: KindToolExit, Msg: msg, Err: err, ExitCode: code}
}

// AsGoError maps an error into a go-errors error.
func AsGoError(err error) *errorslib.Error {
	if err == nil {
		return nil
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		return ge
	}

	kind := KindFromError(err)
	msg := err.Error()

	var exportErr *ExportError
	if errors.As(err, &exportErr) && exportErr.Msg != "" {
		msg = exportErr.Msg
	}

	switch kind {
	case KindValidation, KindPatternNotFound:
		return errorslib.New(msg, errorslib.CategoryValidation).WithTextCode(string(kind))
	case KindMissingInput:
		return errorslib.New(msg, errorslib.CategoryNotFound).WithTextCode(string(kind))
	case KindToolMissing, KindToolExit:
		return errorslib.New(msg, errorslib.CategoryExternal).WithTextCode(string(kind))
	case KindTimeout, KindCanceled:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode(string(kind))
	default:
		return errorslib.New(msg, errorslib.CategoryInternal).WithTextCode(string(kind))
	}
}

// KindFromError maps an error to its export error kind.
func KindFromError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return exportErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	return KindInternal
}

// MessageFromError returns the short human readable part of err.
func MessageFromError(err error) string {
	if err == nil {
		return ""
	}
	var exportErr *ExportError
	if errors.As(err, &exportErr) && exportErr.Msg != "" {
		return exportErr.Msg
	}
	return err.Error()
}
