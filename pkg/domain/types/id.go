package types

import (
	"regexp"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
)

// codePattern is shared by identifiers that travel in URLs and room names
var codePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-_.]*$`)

// InternalUserID identifies a user in the internal identity system
type InternalUserID int64

// Validate checks if the InternalUserID is valid
func (x InternalUserID) Validate() error {
	if x <= 0 {
		return goerr.New("internal user ID must be positive", goerr.V("id", int64(x)))
	}
	return nil
}

// String returns the string representation of InternalUserID
func (x InternalUserID) String() string {
	return strconv.FormatInt(int64(x), 10)
}

// RocketUserID identifies a user on the Rocket.Chat side
type RocketUserID string

// Validate checks if the RocketUserID is valid
func (x RocketUserID) Validate() error {
	if x == "" {
		return goerr.New("rocket user ID cannot be empty")
	}
	return nil
}

// String returns the string representation of RocketUserID
func (x RocketUserID) String() string {
	return string(x)
}

// RoomID identifies a room (group or channel) on the Rocket.Chat side
type RoomID string

// Validate checks if the RoomID is valid
func (x RoomID) Validate() error {
	if x == "" {
		return goerr.New("room ID cannot be empty")
	}
	return nil
}

// String returns the string representation of RoomID
func (x RoomID) String() string {
	return string(x)
}

// RoomCode is the internal identifier of a room (the "group code")
type RoomCode string

// Validate checks if the RoomCode is valid
func (x RoomCode) Validate() error {
	if x == "" {
		return goerr.New("room code cannot be empty")
	}
	if !codePattern.MatchString(string(x)) {
		return goerr.New("room code must be lowercase alphanumeric with hyphens, underscores or dots", goerr.V("code", x))
	}
	return nil
}

// String returns the string representation of RoomCode
func (x RoomCode) String() string {
	return string(x)
}

// MessageID identifies a message on the Rocket.Chat side
type MessageID string

// Validate checks if the MessageID is valid
func (x MessageID) Validate() error {
	if x == "" {
		return goerr.New("message ID cannot be empty")
	}
	return nil
}

// String returns the string representation of MessageID
func (x MessageID) String() string {
	return string(x)
}
