// Package fulfillment keeps locally-owned orders consistent with the remote
// carrier. Every public operation follows the same shape: validate, remote
// call, local write, compensate remotely on local failure, report.
package fulfillment

import (
	"errors"
	"fmt"
)

// InvalidStateError means a precondition failed before any call was made.
// No side effect occurred on either side.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("fulfillment: invalid state: %s", e.Reason)
}

// NewInvalidStateError creates an InvalidStateError
func NewInvalidStateError(reason string) *InvalidStateError {
	return &InvalidStateError{Reason: reason}
}

// RemoteCreateFailedError means the carrier rejected the request or was
// unreachable before any local mutation was attempted. Safe to retry from
// scratch.
type RemoteCreateFailedError struct {
	Op  string
	Err error
}

func (e *RemoteCreateFailedError) Error() string {
	return fmt.Sprintf("fulfillment: %s: remote call failed before local write: %v", e.Op, e.Err)
}

func (e *RemoteCreateFailedError) Unwrap() error {
	return e.Err
}

// PartialFailureError means a multi-shipment operation stopped partway.
// It carries enough state to resume from the failure boundary: earlier
// successes are never rolled back.
type PartialFailureError struct {
	Op        string
	Succeeded []string
	FailedAt  string
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("fulfillment: %s: failed at %q after %d success(es): %v", e.Op, e.FailedAt, len(e.Succeeded), e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

// CriticalInconsistencyError means the carrier and the local store disagree:
// a remote mutation succeeded but the local write failed. The compensation
// outcome is part of the error so operators know whether manual cleanup
// is still needed. Never silently retried.
type CriticalInconsistencyError struct {
	Op              string
	TrackingNumber  string
	Err             error // the local failure that opened the gap
	Compensated     bool  // true when the compensating remote call succeeded
	CompensationErr error // set when the compensating call itself failed
}

func (e *CriticalInconsistencyError) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("fulfillment: %s: local write failed for tracking %q and compensation also failed (%v): %v",
			e.Op, e.TrackingNumber, e.CompensationErr, e.Err)
	}
	if e.Compensated {
		return fmt.Sprintf("fulfillment: %s: local write failed for tracking %q, remote side effect was compensated: %v",
			e.Op, e.TrackingNumber, e.Err)
	}
	return fmt.Sprintf("fulfillment: %s: local write failed for tracking %q, no compensation was possible: %v",
		e.Op, e.TrackingNumber, e.Err)
}

func (e *CriticalInconsistencyError) Unwrap() error {
	return e.Err
}

// IsRetriable reports whether retrying the operation from scratch is safe,
// i.e. the failure left no remote side effect behind.
func IsRetriable(err error) bool {
	var invalid *InvalidStateError
	var remote *RemoteCreateFailedError
	var partial *PartialFailureError
	switch {
	case errors.As(err, &invalid), errors.As(err, &remote):
		return true
	case errors.As(err, &partial):
		// resume from the failure boundary
		return true
	}
	return false
}
