package rocket

import (
	"context"
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
)

// User is a Rocket.Chat user as returned by the platform
type User struct {
	ID       types.RocketUserID
	Username string
	Name     string
	Email    string
	Active   bool
}

// Room is a Rocket.Chat room (group or channel) as returned by the platform
type Room struct {
	ID           types.RoomID
	Name         string
	Topic        string
	Announcement string
	ReadOnly     bool
	Archived     bool
	MemberCount  int
}

// CreateUserRequest describes a user to create on the platform.
// Password is generated when empty.
type CreateUserRequest struct {
	Username string
	Name     string
	Email    string
	Password string `masq:"secret"`
}

// CreateRoomParams describes a room to create on the platform
type CreateRoomParams struct {
	Name     string
	Members  []string
	ReadOnly bool
	Private  bool
}

// Service is the Rocket.Chat REST API surface consumed by the orchestrators.
// Every method returns a normalized Outcome; raw platform error shapes never
// escape this package.
type Service interface {
	// Identity
	CreateUser(ctx context.Context, req CreateUserRequest) model.Outcome[User]
	GetUserInfo(ctx context.Context, id types.RocketUserID) model.Outcome[User]
	GetUserByUsername(ctx context.Context, username string) model.Outcome[User]
	SetUserActiveStatus(ctx context.Context, id types.RocketUserID, active bool) model.Outcome[bool]

	// Room lifecycle
	CreateRoom(ctx context.Context, params CreateRoomParams) model.Outcome[Room]
	RoomInfo(ctx context.Context, id types.RoomID) model.Outcome[Room]
	RoomInfoByName(ctx context.Context, name string) model.Outcome[Room]
	RenameRoom(ctx context.Context, id types.RoomID, name string) model.Outcome[bool]
	SetTopic(ctx context.Context, id types.RoomID, topic string) model.Outcome[bool]
	SetAnnouncement(ctx context.Context, id types.RoomID, announcement string) model.Outcome[bool]
	SetReadOnly(ctx context.Context, id types.RoomID, readOnly bool) model.Outcome[bool]
	ArchiveRoom(ctx context.Context, id types.RoomID) model.Outcome[bool]
	DeleteRoom(ctx context.Context, id types.RoomID) model.Outcome[bool]

	// Membership and moderation
	InviteUser(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool]
	KickUser(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool]
	AddModerator(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool]
	RemoveModerator(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool]
	LeaveRoom(ctx context.Context, roomID types.RoomID) model.Outcome[bool]
	RoomMembers(ctx context.Context, roomID types.RoomID) model.Outcome[[]model.RoomMember]

	// Messaging
	PostMessage(ctx context.Context, req *model.PostMessageRequest) model.Outcome[types.MessageID]
	GetMessage(ctx context.Context, id types.MessageID) model.Outcome[model.Message]
	DeleteMessage(ctx context.Context, roomID types.RoomID, id types.MessageID) model.Outcome[bool]
	RoomMessages(ctx context.Context, roomID types.RoomID, count, offset int) model.Outcome[[]model.Message]
	ThreadMessages(ctx context.Context, threadID types.MessageID) model.Outcome[[]model.Message]
	CreateDirectMessage(ctx context.Context, username string) model.Outcome[types.RoomID]
	UploadFile(ctx context.Context, req *model.UploadFileRequest) model.Outcome[types.MessageID]

	// Session
	Logout(ctx context.Context, owner types.OwnerClass) model.Outcome[bool]
}

// Wire types below mirror the platform's JSON shapes. They stay private to
// this package except where handlers need them for decoding.

type loginResponse struct {
	Status string `json:"status"`
	Data   struct {
		UserID    string `json:"userId"`
		AuthToken string `json:"authToken"`
	} `json:"data"`
}

type apiStatus struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Error     string `json:"error"`
	ErrorType string `json:"errorType"`
	Message   string `json:"message"`
}

type wireUser struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Emails   []struct {
		Address string `json:"address"`
	} `json:"emails"`
}

func (x *wireUser) toUser() User {
	u := User{
		ID:       types.RocketUserID(x.ID),
		Username: x.Username,
		Name:     x.Name,
		Active:   x.Active,
	}
	if len(x.Emails) > 0 {
		u.Email = x.Emails[0].Address
	}
	return u
}

type wireRoom struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Topic        string `json:"topic"`
	Announcement string `json:"announcement"`
	ReadOnly     bool   `json:"ro"`
	Archived     bool   `json:"archived"`
	UsersCount   int    `json:"usersCount"`
}

func (x *wireRoom) toRoom() Room {
	return Room{
		ID:           types.RoomID(x.ID),
		Name:         x.Name,
		Topic:        x.Topic,
		Announcement: x.Announcement,
		ReadOnly:     x.ReadOnly,
		Archived:     x.Archived,
		MemberCount:  x.UsersCount,
	}
}

type wireMessage struct {
	ID       string    `json:"_id"`
	RoomID   string    `json:"rid"`
	Text     string    `json:"msg"`
	Alias    string    `json:"alias"`
	ThreadID string    `json:"tmid"`
	PostedAt time.Time `json:"ts"`
	Sender   struct {
		ID       string `json:"_id"`
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"u"`
}

func (x *wireMessage) toMessage() model.Message {
	return model.Message{
		ID:         types.MessageID(x.ID),
		RoomID:     types.RoomID(x.RoomID),
		Text:       x.Text,
		Alias:      x.Alias,
		ThreadID:   types.MessageID(x.ThreadID),
		PostedAt:   x.PostedAt,
		SenderID:   types.RocketUserID(x.Sender.ID),
		SenderName: x.Sender.Username,
	}
}
