package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUsage            = errors.New("usage")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrIO               = errors.New("i/o failure")
	ErrFormat           = errors.New("malformed index")
	ErrValidation       = errors.New("invalid query")
	ErrNotCrawlerDir    = errors.New("not a crawler directory")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInternal         = errors.New("internal error")
)

// Exit codes used by the command-line tools.
const (
	ExitOK            = 0
	ExitUsage         = 1
	ExitInvalidArg    = 2
	ExitIO            = 3
	ExitNotCrawlerDir = 4
	ExitFormat        = 5
	ExitInternal      = 6
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// Reason returns the human-readable part of err, without the sentinel prefix
// when err is an AppError.
func Reason(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Is reports whether any error in err's chain matches target. It lets callers
// use this package in place of the standard one.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, ErrInvalidArgument):
		return ExitInvalidArg
	case errors.Is(err, ErrNotCrawlerDir):
		return ExitNotCrawlerDir
	case errors.Is(err, ErrFormat):
		return ExitFormat
	case errors.Is(err, ErrIO):
		return ExitIO
	default:
		return ExitInternal
	}
}

func HTTPStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrIO), errors.Is(err, ErrFormat):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
