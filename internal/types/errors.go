package types

import "errors"

// Engine error taxonomy. Validation errors are returned to the caller
// for user-facing handling; ErrInvariantViolation indicates a bug and
// aborts the operation without partial mutation.
var (
	ErrUnknownDepartment   = errors.New("unknown department")
	ErrCallNotFound        = errors.New("call not found")
	ErrCallAlreadyClosed   = errors.New("call already closed")
	ErrInvariantViolation  = errors.New("invariant violation")
	ErrConversationTimeout = errors.New("conversation capability timed out")
	ErrUpstreamUnavailable = errors.New("conversation capability unavailable")
)
