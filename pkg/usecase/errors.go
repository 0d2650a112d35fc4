package usecase

import (
	"errors"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
)

// Sentinel errors for the orchestration layer
var (
	// Not found errors
	ErrMappingNotFound = errors.New("mapping not found")

	// Binding errors
	ErrMappingConflict = errors.New("external identity is bound to a different internal record")

	// Status errors
	ErrRoomArchived = errors.New("room is archived")
)

// PlatformError surfaces a classified platform failure to callers that work
// in terms of plain errors. The HTTP controller maps Kind to a status code.
type PlatformError struct {
	Failure *model.Failure
}

func (x *PlatformError) Error() string {
	return "platform operation failed: " + x.Failure.Err.Error()
}

func (x *PlatformError) Unwrap() error {
	return x.Failure.Err
}

func platformErr(f *model.Failure) error {
	return &PlatformError{Failure: f}
}

// AsPlatformError extracts the platform failure from an error chain
func AsPlatformError(err error) (*PlatformError, bool) {
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
