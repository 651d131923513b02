package remote

import (
	"errors"
	"fmt"
)

var (
	ErrConnFailed       = errors.New("connection failed")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrHostKeyRejected  = errors.New("host key rejected")
	ErrActionFailed     = errors.New("remote action failed")
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
)

// IsConnectionError returns true if err happened while establishing the connection
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnFailed) || errors.Is(err, ErrAuthFailed)
}

// wrapError adds context to an error
func wrapError(host, operation string, err error) error {
	return fmt.Errorf("%s (%s): %w", operation, host, err)
}
