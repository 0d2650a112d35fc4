package usecase_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/Quangdung1996/chat-sub001/pkg/service/rocket"
	"github.com/m-mizutani/goerr/v2"
)

// fakeRocket is an in-memory stand-in for the platform. It keeps users,
// rooms and memberships in maps and mimics the normalized outcomes the real
// client produces, including already-satisfied absence markers.
type fakeRocket struct {
	mu sync.Mutex

	users   map[string]rocket.User                         // by username
	rooms   map[types.RoomID]*rocket.Room                  // by room ID
	names   map[string]types.RoomID                        // room name to ID
	members map[types.RoomID]map[types.RocketUserID]bool   // membership
	mods    map[types.RoomID]map[types.RocketUserID]bool   // moderators
	posts   map[types.RoomID][]model.Message               // posted messages
	seq     int

	createUserCalls int
	createRoomCalls int
	inviteCalls     int

	// failNext maps a method name to a failure injected on its next call
	failNext map[string]*model.Failure
	// loseAckNext makes the next call apply its effect but report a
	// retryable transport failure, as if the response was lost in flight
	loseAckNext map[string]bool
}

var _ rocket.Service = &fakeRocket{}

func newFakeRocket() *fakeRocket {
	return &fakeRocket{
		users:       map[string]rocket.User{},
		rooms:       map[types.RoomID]*rocket.Room{},
		names:       map[string]types.RoomID{},
		members:     map[types.RoomID]map[types.RocketUserID]bool{},
		mods:        map[types.RoomID]map[types.RocketUserID]bool{},
		posts:       map[types.RoomID][]model.Message{},
		failNext:    map[string]*model.Failure{},
		loseAckNext: map[string]bool{},
	}
}

func (m *fakeRocket) failOnce(method string, kind types.ErrorKind, retryable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext[method] = &model.Failure{
		Kind:      kind,
		Err:       goerr.New("injected failure", goerr.V("method", method)),
		Retryable: retryable,
	}
}

func (m *fakeRocket) loseAckOnce(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loseAckNext[method] = true
}

func (m *fakeRocket) takeLostAck(method string) bool {
	if m.loseAckNext[method] {
		delete(m.loseAckNext, method)
		return true
	}
	return false
}

func (m *fakeRocket) takeFailure(method string) *model.Failure {
	if f, ok := m.failNext[method]; ok {
		delete(m.failNext, method)
		return f
	}
	return nil
}

func (m *fakeRocket) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *fakeRocket) addUser(username, name, email string) rocket.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := rocket.User{
		ID:       types.RocketUserID(m.nextID("u")),
		Username: username,
		Name:     name,
		Email:    email,
		Active:   true,
	}
	m.users[username] = u
	return u
}

func (m *fakeRocket) CreateUser(ctx context.Context, req rocket.CreateUserRequest) model.Outcome[rocket.User] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createUserCalls++
	if f := m.takeFailure("CreateUser"); f != nil {
		return model.FailedWith[rocket.User](f)
	}
	if _, exists := m.users[req.Username]; exists {
		return model.Failed[rocket.User](types.ErrKindConflict,
			goerr.New("username is already in use", goerr.V("username", req.Username)), false)
	}
	u := rocket.User{
		ID:       types.RocketUserID(m.nextID("u")),
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Active:   true,
	}
	m.users[req.Username] = u
	return model.OK(u)
}

func (m *fakeRocket) GetUserInfo(ctx context.Context, id types.RocketUserID) model.Outcome[rocket.User] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f := m.takeFailure("GetUserInfo"); f != nil {
		return model.FailedWith[rocket.User](f)
	}
	for _, u := range m.users {
		if u.ID == id {
			return model.OK(u)
		}
	}
	return model.Absent[rocket.User]()
}

func (m *fakeRocket) GetUserByUsername(ctx context.Context, username string) model.Outcome[rocket.User] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f := m.takeFailure("GetUserByUsername"); f != nil {
		return model.FailedWith[rocket.User](f)
	}
	if u, ok := m.users[username]; ok {
		return model.OK(u)
	}
	return model.Absent[rocket.User]()
}

func (m *fakeRocket) SetUserActiveStatus(ctx context.Context, id types.RocketUserID, active bool) model.Outcome[bool] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f := m.takeFailure("SetUserActiveStatus"); f != nil {
		return model.FailedWith[bool](f)
	}
	for username, u := range m.users {
		if u.ID == id {
			u.Active = active
			m.users[username] = u
			return model.OK(true)
		}
	}
	return model.Failed[bool](types.ErrKindNotFound,
		goerr.New("user not found", goerr.V("id", id)), false)
}

func (m *fakeRocket) CreateRoom(ctx context.Context, params rocket.CreateRoomParams) model.Outcome[rocket.Room] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createRoomCalls++
	if f := m.takeFailure("CreateRoom"); f != nil {
		return model.FailedWith[rocket.Room](f)
	}
	if _, exists := m.names[params.Name]; exists {
		return model.Failed[rocket.Room](types.ErrKindConflict,
			goerr.New("room name already exists", goerr.V("name", params.Name)), false)
	}
	room := &rocket.Room{
		ID:       types.RoomID(m.nextID("r")),
		Name:     params.Name,
		ReadOnly: params.ReadOnly,
	}
	m.rooms[room.ID] = room
	m.names[params.Name] = room.ID
	m.members[room.ID] = map[types.RocketUserID]bool{}
	m.mods[room.ID] = map[types.RocketUserID]bool{}
	return model.OK(*room)
}

func (m *fakeRocket) RoomInfo(ctx context.Context, id types.RoomID) model.Outcome[rocket.Room] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f := m.takeFailure("RoomInfo"); f != nil {
		return model.FailedWith[rocket.Room](f)
	}
	if room, ok := m.rooms[id]; ok {
		r := *room
		r.MemberCount = len(m.members[id])
		return model.OK(r)
	}
	return model.Absent[rocket.Room]()
}

func (m *fakeRocket) RoomInfoByName(ctx context.Context, name string) model.Outcome[rocket.Room] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f := m.takeFailure("RoomInfoByName"); f != nil {
		return model.FailedWith[rocket.Room](f)
	}
	if id, ok := m.names[name]; ok {
		r := *m.rooms[id]
		r.MemberCount = len(m.members[id])
		return model.OK(r)
	}
	return model.Absent[rocket.Room]()
}

func (m *fakeRocket) roomMutation(method string, id types.RoomID, fn func(room *rocket.Room) model.Outcome[bool]) model.Outcome[bool] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f := m.takeFailure(method); f != nil {
		return model.FailedWith[bool](f)
	}
	room, ok := m.rooms[id]
	if !ok {
		return model.Failed[bool](types.ErrKindNotFound,
			goerr.New("room not found", goerr.V("id", id)), false)
	}
	if room.Archived && method != "DeleteRoom" && method != "ArchiveRoom" {
		return model.Failed[bool](types.ErrKindConflict,
			goerr.New("room is archived", goerr.V("id", id)), false)
	}
	return fn(room)
}

func (m *fakeRocket) RenameRoom(ctx context.Context, id types.RoomID, name string) model.Outcome[bool] {
	return m.roomMutation("RenameRoom", id, func(room *rocket.Room) model.Outcome[bool] {
		delete(m.names, room.Name)
		room.Name = name
		m.names[name] = room.ID
		return model.OK(true)
	})
}

func (m *fakeRocket) SetTopic(ctx context.Context, id types.RoomID, topic string) model.Outcome[bool] {
	return m.roomMutation("SetTopic", id, func(room *rocket.Room) model.Outcome[bool] {
		room.Topic = topic
		return model.OK(true)
	})
}

func (m *fakeRocket) SetAnnouncement(ctx context.Context, id types.RoomID, announcement string) model.Outcome[bool] {
	return m.roomMutation("SetAnnouncement", id, func(room *rocket.Room) model.Outcome[bool] {
		room.Announcement = announcement
		return model.OK(true)
	})
}

func (m *fakeRocket) SetReadOnly(ctx context.Context, id types.RoomID, readOnly bool) model.Outcome[bool] {
	return m.roomMutation("SetReadOnly", id, func(room *rocket.Room) model.Outcome[bool] {
		room.ReadOnly = readOnly
		return model.OK(true)
	})
}

func (m *fakeRocket) ArchiveRoom(ctx context.Context, id types.RoomID) model.Outcome[bool] {
	return m.roomMutation("ArchiveRoom", id, func(room *rocket.Room) model.Outcome[bool] {
		room.Archived = true
		return model.OK(true)
	})
}

func (m *fakeRocket) DeleteRoom(ctx context.Context, id types.RoomID) model.Outcome[bool] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f := m.takeFailure("DeleteRoom"); f != nil {
		return model.FailedWith[bool](f)
	}
	room, ok := m.rooms[id]
	if !ok {
		return model.Absent[bool]()
	}
	delete(m.names, room.Name)
	delete(m.rooms, id)
	delete(m.members, id)
	delete(m.mods, id)
	return model.OK(true)
}

func (m *fakeRocket) InviteUser(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool] {
	m.mu.Lock()
	m.inviteCalls++
	m.mu.Unlock()
	return m.roomMutation("InviteUser", roomID, func(room *rocket.Room) model.Outcome[bool] {
		if m.members[roomID][userID] {
			return model.Absent[bool]()
		}
		m.members[roomID][userID] = true
		return model.OK(true)
	})
}

func (m *fakeRocket) KickUser(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool] {
	return m.roomMutation("KickUser", roomID, func(room *rocket.Room) model.Outcome[bool] {
		if !m.members[roomID][userID] {
			return model.Absent[bool]()
		}
		delete(m.members[roomID], userID)
		return model.OK(true)
	})
}

func (m *fakeRocket) AddModerator(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool] {
	return m.roomMutation("AddModerator", roomID, func(room *rocket.Room) model.Outcome[bool] {
		if m.mods[roomID][userID] {
			return model.Absent[bool]()
		}
		m.mods[roomID][userID] = true
		return model.OK(true)
	})
}

func (m *fakeRocket) RemoveModerator(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool] {
	return m.roomMutation("RemoveModerator", roomID, func(room *rocket.Room) model.Outcome[bool] {
		if !m.mods[roomID][userID] {
			return model.Absent[bool]()
		}
		delete(m.mods[roomID], userID)
		return model.OK(true)
	})
}

func (m *fakeRocket) LeaveRoom(ctx context.Context, roomID types.RoomID) model.Outcome[bool] {
	return m.roomMutation("LeaveRoom", roomID, func(room *rocket.Room) model.Outcome[bool] {
		return model.OK(true)
	})
}

func (m *fakeRocket) RoomMembers(ctx context.Context, roomID types.RoomID) model.Outcome[[]model.RoomMember] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f := m.takeFailure("RoomMembers"); f != nil {
		return model.FailedWith[[]model.RoomMember](f)
	}
	if _, ok := m.rooms[roomID]; !ok {
		return model.Absent[[]model.RoomMember]()
	}
	var members []model.RoomMember
	for userID := range m.members[roomID] {
		for _, u := range m.users {
			if u.ID == userID {
				members = append(members, model.RoomMember{ID: u.ID, Username: u.Username, Name: u.Name})
			}
		}
	}
	return model.OK(members)
}

func (m *fakeRocket) PostMessage(ctx context.Context, req *model.PostMessageRequest) model.Outcome[types.MessageID] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f := m.takeFailure("PostMessage"); f != nil {
		return model.FailedWith[types.MessageID](f)
	}
	if _, ok := m.rooms[req.RoomID]; !ok {
		return model.Failed[types.MessageID](types.ErrKindNotFound,
			goerr.New("room not found", goerr.V("id", req.RoomID)), false)
	}
	msg := model.Message{
		ID:       types.MessageID(m.nextID("msg")),
		RoomID:   req.RoomID,
		Text:     req.Text,
		Alias:    req.Alias,
		ThreadID: req.ThreadID,
	}
	m.posts[req.RoomID] = append(m.posts[req.RoomID], msg)
	if m.takeLostAck("PostMessage") {
		return model.Failed[types.MessageID](types.ErrKindUpstreamError,
			goerr.New("response lost in flight", goerr.V("method", "PostMessage")), true)
	}
	return model.OK(msg.ID)
}

func (m *fakeRocket) GetMessage(ctx context.Context, id types.MessageID) model.Outcome[model.Message] {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msgs := range m.posts {
		for _, msg := range msgs {
			if msg.ID == id {
				return model.OK(msg)
			}
		}
	}
	return model.Absent[model.Message]()
}

func (m *fakeRocket) DeleteMessage(ctx context.Context, roomID types.RoomID, id types.MessageID) model.Outcome[bool] {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.posts[roomID]
	for i, msg := range msgs {
		if msg.ID == id {
			m.posts[roomID] = append(msgs[:i], msgs[i+1:]...)
			return model.OK(true)
		}
	}
	return model.Absent[bool]()
}

func (m *fakeRocket) RoomMessages(ctx context.Context, roomID types.RoomID, count, offset int) model.Outcome[[]model.Message] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f := m.takeFailure("RoomMessages"); f != nil {
		return model.FailedWith[[]model.Message](f)
	}
	if _, ok := m.rooms[roomID]; !ok {
		return model.Absent[[]model.Message]()
	}
	return model.OK(append([]model.Message{}, m.posts[roomID]...))
}

func (m *fakeRocket) ThreadMessages(ctx context.Context, threadID types.MessageID) model.Outcome[[]model.Message] {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Message
	for _, msgs := range m.posts {
		for _, msg := range msgs {
			if msg.ThreadID == threadID || msg.ID == threadID {
				out = append(out, msg)
			}
		}
	}
	return model.OK(out)
}

func (m *fakeRocket) CreateDirectMessage(ctx context.Context, username string) model.Outcome[types.RoomID] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f := m.takeFailure("CreateDirectMessage"); f != nil {
		return model.FailedWith[types.RoomID](f)
	}
	if _, ok := m.users[username]; !ok {
		return model.Failed[types.RoomID](types.ErrKindNotFound,
			goerr.New("user not found", goerr.V("username", username)), false)
	}
	name := "dm-" + username
	if id, ok := m.names[name]; ok {
		return model.OK(id)
	}
	room := &rocket.Room{ID: types.RoomID(m.nextID("dm")), Name: name}
	m.rooms[room.ID] = room
	m.names[name] = room.ID
	m.members[room.ID] = map[types.RocketUserID]bool{}
	m.mods[room.ID] = map[types.RocketUserID]bool{}
	return model.OK(room.ID)
}

func (m *fakeRocket) UploadFile(ctx context.Context, req *model.UploadFileRequest) model.Outcome[types.MessageID] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f := m.takeFailure("UploadFile"); f != nil {
		return model.FailedWith[types.MessageID](f)
	}
	if _, ok := m.rooms[req.RoomID]; !ok {
		return model.Failed[types.MessageID](types.ErrKindNotFound,
			goerr.New("room not found", goerr.V("id", req.RoomID)), false)
	}
	msg := model.Message{
		ID:     types.MessageID(m.nextID("file")),
		RoomID: req.RoomID,
		Text:   req.Description,
	}
	m.posts[req.RoomID] = append(m.posts[req.RoomID], msg)
	return model.OK(msg.ID)
}

func (m *fakeRocket) Logout(ctx context.Context, owner types.OwnerClass) model.Outcome[bool] {
	return model.OK(true)
}
