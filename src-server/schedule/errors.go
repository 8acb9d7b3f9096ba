package schedule

import "fmt"

// ValidationError rejects a request before any document is read or written;
// the HTTP layer maps it to 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError means the named document or block does not exist; the HTTP
// layer maps it to 404.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string {
	return e.Msg
}

func notFoundf(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}
