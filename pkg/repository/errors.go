package repository

import "errors"

// Sentinel errors shared by every repository backend. Implementations wrap
// these so callers can errors.Is without knowing the backend.
var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrRevisionMismatch is returned when a Put loses a compare-and-set race
	ErrRevisionMismatch = errors.New("revision mismatch")

	// ErrDuplicateExternalID is returned when a write would bind one external
	// ID to two live mappings
	ErrDuplicateExternalID = errors.New("external ID already mapped")
)
