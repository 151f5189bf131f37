package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound            = errors.New("source not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnsupportedStrategy = errors.New("unsupported strategy")
	ErrMalformed           = errors.New("malformed data")
	ErrOverflow            = errors.New("value exceeds binary format width")
	ErrLocked              = errors.New("locked by another process")
	ErrInternal            = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error chain to the status the query service
// responds with.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedStrategy):
		return http.StatusBadRequest
	case errors.Is(err, ErrLocked):
		return http.StatusConflict
	case errors.Is(err, ErrOverflow), errors.Is(err, ErrMalformed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
