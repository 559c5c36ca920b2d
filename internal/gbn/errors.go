package gbn

import (
	"fmt"

	"github.com/pkg/errors"
)

// Non-fatal conditions. They are handled inside the state machines and only
// show up in the trace log; they never escape a public operation.
var (
	ErrTimeout            = errors.New("timeout")
	ErrChecksumMismatch   = errors.New("checksum mismatch")
	ErrUnexpectedKind     = errors.New("unexpected packet kind")
	ErrUnexpectedSequence = errors.New("unexpected sequence number")
)

// Fatal conditions.
var (
	// ErrAttemptsExhausted is returned when a phase retransmitted MaxAttempts
	// times in a row without progress.
	ErrAttemptsExhausted = errors.New("retransmission attempts exhausted")
	// ErrInvalidState is returned when an operation is called in the wrong
	// role or state, e.g. Send before Connect.
	ErrInvalidState = errors.New("operation not allowed in current state")
)

// Phase names the lifecycle step an error occurred in.
type Phase string

const (
	PhaseHandshake Phase = "handshake"
	PhaseTransfer  Phase = "transfer"
	PhaseTeardown  Phase = "teardown"
)

// PhaseError wraps every fatal error returned by an Endpoint.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string { return fmt.Sprintf("%s failed: %v", e.Phase, e.Err) }
func (e *PhaseError) Unwrap() error { return e.Err }

// TransportError reports an underlying socket failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

func transportError(op string, err error) error {
	return errors.WithStack(&TransportError{Op: op, Err: err})
}

// fatal reports whether err ends the current phase.
func fatal(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrTimeout) &&
		!errors.Is(err, ErrChecksumMismatch)
}
