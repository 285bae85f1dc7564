package core

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest        = errors.New("bad request")
	ErrRateLimited       = errors.New("rate limited by integration service")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrServiceError      = errors.New("integration service error")
	ErrTransport         = errors.New("integration transport failure")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidBalance    = errors.New("invalid balance")
)

// TransportError is returned when the integration service could not be
// reached at all (DNS, TLS, connection reset, timeout).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransport) hold for every TransportError.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
