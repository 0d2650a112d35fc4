package model

import (
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
)

// Message is a message read back from the platform
type Message struct {
	ID         types.MessageID
	RoomID     types.RoomID
	Text       string
	Alias      string
	SenderID   types.RocketUserID
	SenderName string
	ThreadID   types.MessageID
	PostedAt   time.Time
}

// RoomMember is a member read back from the platform
type RoomMember struct {
	ID       types.RocketUserID
	Username string
	Name     string
	Status   string
}

// RoomInfo is the live state of a room as reported by the platform
type RoomInfo struct {
	ID           types.RoomID
	Name         string
	Topic        string
	Announcement string
	ReadOnly     bool
	Archived     bool
	MemberCount  int
}
