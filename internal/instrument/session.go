// Package instrument is the boundary to the multimeter.
//
// The core only needs an opaque command/response channel: open a session,
// send commands (optionally reading a reply) and close it on every exit path.
// Prologix implements that channel over a Prologix GPIB-ETHERNET adapter;
// FakeDialer scripts it for tests.
package instrument

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrConnection indicates the transport could not be reached.
	ErrConnection = errors.New("instrument connection failed")

	// ErrCommand indicates a command was rejected, timed out or got a malformed reply.
	ErrCommand = errors.New("instrument command failed")

	// ErrSessionBroken indicates an earlier reply was lost, so replies can no
	// longer be matched to commands. Open a new session.
	ErrSessionBroken = errors.New("instrument session out of step")
)

// Session is an open command channel to one instrument.
type Session interface {
	// Send writes command and, when reply is true, returns the instrument's
	// response with line framing removed.
	Send(ctx context.Context, command string, reply bool) (string, error)

	// Close releases the session. It is safe to call more than once.
	Close() error
}

// Dialer opens sessions. A campaign opens one session per cycle.
type Dialer interface {
	Open(ctx context.Context) (Session, error)
}

// ConnectionError reports an unreachable transport.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is reports ErrConnection so callers can match without the concrete type.
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// CommandError reports a failed command.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Is reports ErrCommand so callers can match without the concrete type.
func (e *CommandError) Is(target error) bool { return target == ErrCommand }

// Query sends command and waits for its reply.
func Query(ctx context.Context, s Session, command string) (string, error) {
	return s.Send(ctx, command, true)
}

// Command sends command without reading a reply.
func Command(ctx context.Context, s Session, command string) error {
	_, err := s.Send(ctx, command, false)
	return err
}
