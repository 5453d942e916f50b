package sync

import "errors"

var (
	// Session/transport errors abort the current scope partition.
	ErrAuthenticationFailed = errors.New("sync: gateway authentication failed")
	ErrRetriableTransport   = errors.New("sync: retriable transport failure")
	ErrMalformedResponse    = errors.New("sync: malformed gateway response")

	// Resolution errors are caught at record granularity and never abort
	// the batch.
	ErrMissingReference  = errors.New("sync: required reference missing")
	ErrReferenceNotFound = errors.New("sync: referenced entity not found")

	// ErrRemoteOperationFailed marks one operation the gateway reported as
	// failed; sibling operations in the same batch are unaffected.
	ErrRemoteOperationFailed = errors.New("sync: remote operation failed")

	// ErrCorrelationMismatch marks a batch response that could not be
	// matched one-to-one against the submitted operations.
	ErrCorrelationMismatch = errors.New("sync: correlation id mismatch in batch response")
)
