package lib

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTruncated is wrapped by ProtocolError when the peer closed before a full frame arrived.
	ErrTruncated = errors.New("truncated message")

	// ErrNotStarted is returned when a client is requested for an instance that is not running
	// or was launched without the automation server.
	ErrNotStarted = errors.New("labview not started")

	// ErrNotInstalled is returned when no LabVIEW installation matches the requested version and bitness.
	ErrNotInstalled = errors.New("labview installation not found")

	// ErrKillTimeout is returned by kill operations when the process did not exit in time.
	ErrKillTimeout = errors.New("timed out waiting for process to exit")
)

// ProtocolError reports a malformed, truncated or undecodable frame.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// RemoteError is a failure reported by the listener for a command.
// Message comes from a follow-up describe_error call; DescribeErr is set when that call failed.
type RemoteError struct {
	Code        int32
	Source      string
	Message     string
	DescribeErr error
}

func (e *RemoteError) Error() string {
	if e.DescribeErr != nil {
		return fmt.Sprintf("labview error %d from %q (describe_error failed: %v)", e.Code, e.Source, e.DescribeErr)
	}
	return fmt.Sprintf("labview error %d from %q: %s", e.Code, e.Source, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.DescribeErr }

// TimeoutError reports that an operation exceeded its time budget.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s while %s", e.Timeout, e.Op)
}

// ConfigurationError reports an invalid construction-time setting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
