package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrJobNotFound is returned when a job id is unknown or expired.
var ErrJobNotFound = errors.New("analysis job not found")

// ParseError indicates the parser rejected the submitted source.
// Deterministic: never retried.
type ParseError struct {
	Detail string
}

func (e *ParseError) Error() string { return "parse error: " + e.Detail }

// NoContractFoundError indicates syntactically valid source with no
// contract definition. Deterministic: never retried.
type NoContractFoundError struct{}

func (e *NoContractFoundError) Error() string {
	return "no contract definition found in source"
}

// DetectorError wraps a failure of a single detector. The engine logs
// and skips the detector instead of aborting the run.
type DetectorError struct {
	Detector string
	Err      error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("detector %s failed: %v", e.Detector, e.Err)
}

func (e *DetectorError) Unwrap() error { return e.Err }

// ExternalEngineTimeoutError indicates an external engine did not
// respond within the configured deadline. Retryable.
type ExternalEngineTimeoutError struct {
	Engine  string
	Timeout time.Duration
}

func (e *ExternalEngineTimeoutError) Error() string {
	return fmt.Sprintf("external engine %s timed out after %s", e.Engine, e.Timeout)
}

// ExternalEngineUnavailableError indicates a transport-level failure
// reaching an external engine. Retryable.
type ExternalEngineUnavailableError struct {
	Engine string
	Err    error
}

func (e *ExternalEngineUnavailableError) Error() string {
	return fmt.Sprintf("external engine %s unavailable: %v", e.Engine, e.Err)
}

func (e *ExternalEngineUnavailableError) Unwrap() error { return e.Err }

// CacheUnavailableError is never fatal: reads degrade to a miss,
// writes to a no-op.
type CacheUnavailableError struct {
	Op  string
	Err error
}

func (e *CacheUnavailableError) Error() string {
	return fmt.Sprintf("cache %s failed: %v", e.Op, e.Err)
}

func (e *CacheUnavailableError) Unwrap() error { return e.Err }

// Retryable reports whether err is a transient external failure worth
// retrying. Local deterministic failures are not.
func Retryable(err error) bool {
	var timeout *ExternalEngineTimeoutError
	var unavailable *ExternalEngineUnavailableError
	return errors.As(err, &timeout) || errors.As(err, &unavailable)
}
