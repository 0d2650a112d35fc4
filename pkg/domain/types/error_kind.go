package types

// ErrorKind classifies a failed platform operation
type ErrorKind string

const (
	// ErrKindAuthFailure means the platform rejected our credentials
	ErrKindAuthFailure ErrorKind = "AUTH_FAILURE"
	// ErrKindNotFound means a mutating operation addressed a missing resource
	ErrKindNotFound ErrorKind = "NOT_FOUND"
	// ErrKindConflict means the current state disallows the operation
	ErrKindConflict ErrorKind = "CONFLICT"
	// ErrKindUpstreamError means an unexpected non-2xx response or transport fault
	ErrKindUpstreamError ErrorKind = "UPSTREAM_ERROR"
	// ErrKindValidationError means malformed input caught before calling out
	ErrKindValidationError ErrorKind = "VALIDATION_ERROR"
)

// AllErrorKinds returns all valid error kinds
func AllErrorKinds() []ErrorKind {
	return []ErrorKind{
		ErrKindAuthFailure,
		ErrKindNotFound,
		ErrKindConflict,
		ErrKindUpstreamError,
		ErrKindValidationError,
	}
}

// IsValid checks if the error kind is valid
func (x ErrorKind) IsValid() bool {
	switch x {
	case ErrKindAuthFailure,
		ErrKindNotFound,
		ErrKindConflict,
		ErrKindUpstreamError,
		ErrKindValidationError:
		return true
	default:
		return false
	}
}

// String returns the string representation of the error kind
func (x ErrorKind) String() string {
	return string(x)
}
