package model

import (
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// RoomMapping links an internal room code to its Rocket.Chat room.
// One external room ID maps to exactly one code. Rooms are archived
// rather than deleted.
type RoomMapping struct {
	Code        types.RoomCode
	RoomID      types.RoomID
	DisplayName string
	Private     bool
	ReadOnly    bool
	Department  string
	Project     string

	// MemberCount is a cached, advisory value; the platform is authoritative
	MemberCount int

	Archived  bool
	CreatedAt time.Time

	// Revision is bumped on every Put; repositories reject a Put whose
	// revision does not match the stored one (compare-and-set).
	Revision int64
}

// NewRoomMapping creates a mapping for a freshly created external room
func NewRoomMapping(code types.RoomCode, roomID types.RoomID, displayName string, private bool) *RoomMapping {
	return &RoomMapping{
		Code:        code,
		RoomID:      roomID,
		DisplayName: displayName,
		Private:     private,
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate checks if the RoomMapping is consistent
func (x *RoomMapping) Validate() error {
	if err := x.Code.Validate(); err != nil {
		return goerr.Wrap(err, "invalid room code")
	}
	if err := x.RoomID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid room ID")
	}
	if x.DisplayName == "" {
		return goerr.New("room display name cannot be empty", goerr.V("code", x.Code))
	}
	return nil
}

// Clone returns a copy to prevent external modifications
func (x *RoomMapping) Clone() *RoomMapping {
	copied := *x
	return &copied
}
