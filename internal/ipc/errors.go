package ipc

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"mergeq/internal/protocol"
)

// FailureError carries a Failure response from the agent.
type FailureError struct {
	Failure protocol.Failure
}

func (e *FailureError) Error() string {
	return "agent: " + e.Failure.String()
}

// Kind returns the failure variant.
func (e *FailureError) Kind() protocol.FailureKind {
	return e.Failure.Kind
}

// DialError reports a failed connection attempt.
type DialError struct {
	Path string
	Err  error
}

func (e *DialError) Error() string {
	return fmt.Sprintf("connect to agent at %s: %v", e.Path, e.Err)
}

func (e *DialError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err means no agent is listening: the socket
// is missing or nothing accepts on it.
func IsUnavailable(err error) bool {
	var dialErr *DialError
	if !errors.As(err, &dialErr) {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, unix.ENOENT) ||
		errors.Is(err, unix.ECONNREFUSED)
}

// IsFailure reports whether err is an agent Failure of the given kind.
func IsFailure(err error, kind protocol.FailureKind) bool {
	var failure *FailureError
	return errors.As(err, &failure) && failure.Failure.Kind == kind
}
