package errors

import (
	stderr "errors"
	"fmt"
)

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

// HostShutDownError reports that a host was shut down explicitly and will not start again.
var HostShutDownError = New("host is shut down")

// BadRequestError reports a request of the IDE that cannot be served as sent.
type BadRequestError struct {
	Reason string
}

// Error is an implementation of the error interface.
func (e *BadRequestError) Error() string {
	return e.Reason
}

// BadRequestf returns a BadRequestError with a formatted reason.
func BadRequestf(format string, args ...any) error {
	return &BadRequestError{Reason: fmt.Sprintf(format, args...)}
}

// IsBadRequest reports whether the error is a bad request from the caller.
func IsBadRequest(e error) bool {
	var bad *BadRequestError
	return stderr.As(e, &bad)
}
