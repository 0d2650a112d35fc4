package model

import (
	"io"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// CreateRoomRequest describes a group or channel to provision
type CreateRoomRequest struct {
	Code        types.RoomCode
	DisplayName string
	Private     bool
	ReadOnly    bool
	Department  string
	Project     string
	Members     []types.RocketUserID
}

// Validate checks the request before any external call
func (x *CreateRoomRequest) Validate() error {
	if err := x.Code.Validate(); err != nil {
		return goerr.Wrap(err, "invalid create room request")
	}
	if x.DisplayName == "" {
		return goerr.New("room display name is required", goerr.V("code", x.Code))
	}
	return nil
}

// SyncUserRequest describes an internal user to sync to the platform
type SyncUserRequest struct {
	InternalID types.InternalUserID
	Username   string
	FullName   string
	Email      string
}

// Validate checks the request before any external call
func (x *SyncUserRequest) Validate() error {
	if err := x.InternalID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid sync user request")
	}
	if x.Username == "" {
		return goerr.New("username is required", goerr.V("internalID", x.InternalID))
	}
	return nil
}

// PostMessageRequest describes a message to post to a room
type PostMessageRequest struct {
	RoomID   types.RoomID
	Text     string
	Alias    string
	ThreadID types.MessageID
}

// Validate checks the request before any external call
func (x *PostMessageRequest) Validate() error {
	if err := x.RoomID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid post message request")
	}
	if x.Text == "" {
		return goerr.New("message text is required", goerr.V("roomID", x.RoomID))
	}
	return nil
}

// UploadFileRequest describes a file payload to stream to a room
type UploadFileRequest struct {
	RoomID      types.RoomID
	FileName    string
	ContentType string
	Description string
	Content     io.Reader
}

// Validate checks the request before any external call
func (x *UploadFileRequest) Validate() error {
	if err := x.RoomID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid upload file request")
	}
	if x.FileName == "" {
		return goerr.New("file name is required", goerr.V("roomID", x.RoomID))
	}
	if x.Content == nil {
		return goerr.New("file content is required", goerr.V("roomID", x.RoomID))
	}
	return nil
}
