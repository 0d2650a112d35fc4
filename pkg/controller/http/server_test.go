package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	httpctrl "github.com/Quangdung1996/chat-sub001/pkg/controller/http"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/Quangdung1996/chat-sub001/pkg/repository/memory"
	"github.com/Quangdung1996/chat-sub001/pkg/service/rocket"
	"github.com/Quangdung1996/chat-sub001/pkg/usecase"
	"github.com/m-mizutani/gt"
)

// fakeService is a minimal in-memory rocket.Service for controller tests.
// Behavior coverage is limited to what the handlers under test exercise.
type fakeService struct {
	mu      sync.Mutex
	seq     int
	users   map[string]rocket.User          // by username
	rooms   map[types.RoomID]*rocket.Room   // by room ID
	names   map[string]types.RoomID         // room name -> ID
	members map[types.RoomID]map[types.RocketUserID]bool
	posts   []model.Message
}

func newFakeService() *fakeService {
	return &fakeService{
		users:   map[string]rocket.User{},
		rooms:   map[types.RoomID]*rocket.Room{},
		names:   map[string]types.RoomID{},
		members: map[types.RoomID]map[types.RocketUserID]bool{},
	}
}

func (x *fakeService) nextID(prefix string) string {
	x.seq++
	return fmt.Sprintf("%s-%03d", prefix, x.seq)
}

func (x *fakeService) CreateUser(ctx context.Context, req rocket.CreateUserRequest) model.Outcome[rocket.User] {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.users[req.Username]; ok {
		return model.Failed[rocket.User](types.ErrKindConflict, fmt.Errorf("username already in use"), false)
	}
	u := rocket.User{
		ID:       types.RocketUserID(x.nextID("u")),
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Active:   true,
	}
	x.users[req.Username] = u
	return model.OK(u)
}

func (x *fakeService) GetUserInfo(ctx context.Context, id types.RocketUserID) model.Outcome[rocket.User] {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, u := range x.users {
		if u.ID == id {
			return model.OK(u)
		}
	}
	return model.Absent[rocket.User]()
}

func (x *fakeService) GetUserByUsername(ctx context.Context, username string) model.Outcome[rocket.User] {
	x.mu.Lock()
	defer x.mu.Unlock()
	if u, ok := x.users[username]; ok {
		return model.OK(u)
	}
	return model.Absent[rocket.User]()
}

func (x *fakeService) SetUserActiveStatus(ctx context.Context, id types.RocketUserID, active bool) model.Outcome[bool] {
	x.mu.Lock()
	defer x.mu.Unlock()
	for name, u := range x.users {
		if u.ID == id {
			u.Active = active
			x.users[name] = u
			return model.OK(true)
		}
	}
	return model.Absent[bool]()
}

func (x *fakeService) CreateRoom(ctx context.Context, params rocket.CreateRoomParams) model.Outcome[rocket.Room] {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.names[params.Name]; ok {
		return model.Failed[rocket.Room](types.ErrKindConflict, fmt.Errorf("duplicate room name"), false)
	}
	id := types.RoomID(x.nextID("r"))
	room := &rocket.Room{ID: id, Name: params.Name, ReadOnly: params.ReadOnly, MemberCount: 1 + len(params.Members)}
	x.rooms[id] = room
	x.names[params.Name] = id
	x.members[id] = map[types.RocketUserID]bool{}
	return model.OK(*room)
}

func (x *fakeService) RoomInfo(ctx context.Context, id types.RoomID) model.Outcome[rocket.Room] {
	x.mu.Lock()
	defer x.mu.Unlock()
	if room, ok := x.rooms[id]; ok {
		return model.OK(*room)
	}
	return model.Absent[rocket.Room]()
}

func (x *fakeService) RoomInfoByName(ctx context.Context, name string) model.Outcome[rocket.Room] {
	x.mu.Lock()
	defer x.mu.Unlock()
	if id, ok := x.names[name]; ok {
		return model.OK(*x.rooms[id])
	}
	return model.Absent[rocket.Room]()
}

func (x *fakeService) roomOp(id types.RoomID, fn func(room *rocket.Room)) model.Outcome[bool] {
	x.mu.Lock()
	defer x.mu.Unlock()
	room, ok := x.rooms[id]
	if !ok {
		return model.Absent[bool]()
	}
	fn(room)
	return model.OK(true)
}

func (x *fakeService) RenameRoom(ctx context.Context, id types.RoomID, name string) model.Outcome[bool] {
	return x.roomOp(id, func(room *rocket.Room) {
		delete(x.names, room.Name)
		room.Name = name
		x.names[name] = id
	})
}

func (x *fakeService) SetTopic(ctx context.Context, id types.RoomID, topic string) model.Outcome[bool] {
	return x.roomOp(id, func(room *rocket.Room) { room.Topic = topic })
}

func (x *fakeService) SetAnnouncement(ctx context.Context, id types.RoomID, announcement string) model.Outcome[bool] {
	return x.roomOp(id, func(room *rocket.Room) { room.Announcement = announcement })
}

func (x *fakeService) SetReadOnly(ctx context.Context, id types.RoomID, readOnly bool) model.Outcome[bool] {
	return x.roomOp(id, func(room *rocket.Room) { room.ReadOnly = readOnly })
}

func (x *fakeService) ArchiveRoom(ctx context.Context, id types.RoomID) model.Outcome[bool] {
	return x.roomOp(id, func(room *rocket.Room) { room.Archived = true })
}

func (x *fakeService) DeleteRoom(ctx context.Context, id types.RoomID) model.Outcome[bool] {
	x.mu.Lock()
	defer x.mu.Unlock()
	room, ok := x.rooms[id]
	if !ok {
		return model.Absent[bool]()
	}
	delete(x.names, room.Name)
	delete(x.rooms, id)
	return model.OK(true)
}

func (x *fakeService) InviteUser(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool] {
	x.mu.Lock()
	defer x.mu.Unlock()
	ms, ok := x.members[roomID]
	if !ok {
		return model.Absent[bool]()
	}
	if ms[userID] {
		return model.Absent[bool]()
	}
	ms[userID] = true
	return model.OK(true)
}

func (x *fakeService) KickUser(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool] {
	x.mu.Lock()
	defer x.mu.Unlock()
	ms, ok := x.members[roomID]
	if !ok || !ms[userID] {
		return model.Absent[bool]()
	}
	delete(ms, userID)
	return model.OK(true)
}

func (x *fakeService) AddModerator(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool] {
	return x.roomOp(roomID, func(*rocket.Room) {})
}

func (x *fakeService) RemoveModerator(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool] {
	return x.roomOp(roomID, func(*rocket.Room) {})
}

func (x *fakeService) LeaveRoom(ctx context.Context, roomID types.RoomID) model.Outcome[bool] {
	return x.roomOp(roomID, func(*rocket.Room) {})
}

func (x *fakeService) RoomMembers(ctx context.Context, roomID types.RoomID) model.Outcome[[]model.RoomMember] {
	x.mu.Lock()
	defer x.mu.Unlock()
	ms, ok := x.members[roomID]
	if !ok {
		return model.Absent[[]model.RoomMember]()
	}
	out := make([]model.RoomMember, 0, len(ms))
	for id := range ms {
		out = append(out, model.RoomMember{ID: id, Username: string(id)})
	}
	return model.OK(out)
}

func (x *fakeService) PostMessage(ctx context.Context, req *model.PostMessageRequest) model.Outcome[types.MessageID] {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.rooms[req.RoomID]; !ok {
		return model.Absent[types.MessageID]()
	}
	id := types.MessageID(x.nextID("m"))
	x.posts = append(x.posts, model.Message{ID: id, RoomID: req.RoomID, Text: req.Text, Alias: req.Alias, ThreadID: req.ThreadID})
	return model.OK(id)
}

func (x *fakeService) GetMessage(ctx context.Context, id types.MessageID) model.Outcome[model.Message] {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, m := range x.posts {
		if m.ID == id {
			return model.OK(m)
		}
	}
	return model.Absent[model.Message]()
}

func (x *fakeService) DeleteMessage(ctx context.Context, roomID types.RoomID, id types.MessageID) model.Outcome[bool] {
	return model.OK(true)
}

func (x *fakeService) RoomMessages(ctx context.Context, roomID types.RoomID, count, offset int) model.Outcome[[]model.Message] {
	x.mu.Lock()
	defer x.mu.Unlock()
	var out []model.Message
	for _, m := range x.posts {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return model.OK(out)
}

func (x *fakeService) ThreadMessages(ctx context.Context, threadID types.MessageID) model.Outcome[[]model.Message] {
	x.mu.Lock()
	defer x.mu.Unlock()
	var out []model.Message
	for _, m := range x.posts {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	return model.OK(out)
}

func (x *fakeService) CreateDirectMessage(ctx context.Context, username string) model.Outcome[types.RoomID] {
	x.mu.Lock()
	defer x.mu.Unlock()
	id := types.RoomID("dm-" + username)
	if _, ok := x.rooms[id]; !ok {
		x.rooms[id] = &rocket.Room{ID: id, Name: string(id), MemberCount: 2}
		x.members[id] = map[types.RocketUserID]bool{}
	}
	return model.OK(id)
}

func (x *fakeService) UploadFile(ctx context.Context, req *model.UploadFileRequest) model.Outcome[types.MessageID] {
	if _, err := io.ReadAll(req.Content); err != nil {
		return model.Failed[types.MessageID](types.ErrKindUpstreamError, err, false)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	id := types.MessageID(x.nextID("m"))
	x.posts = append(x.posts, model.Message{ID: id, RoomID: req.RoomID, Text: req.FileName})
	return model.OK(id)
}

func (x *fakeService) Logout(ctx context.Context, owner types.OwnerClass) model.Outcome[bool] {
	return model.OK(true)
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeService) {
	t.Helper()
	platform := newFakeService()
	uc := usecase.New(memory.New(), platform,
		usecase.WithRetry(2, 0),
		usecase.WithBulkRate(1, 1),
	)
	srv := httptest.NewServer(httpctrl.New(uc))
	t.Cleanup(srv.Close)
	return srv, platform
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	gt.NoError(t, err).Required()
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	gt.NoError(t, err).Required()
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&out)).Required()
	return out
}

func TestUserEndpoints(t *testing.T) {
	srv, platform := newTestServer(t)

	t.Run("sync provisions a user", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/users/sync", map[string]any{
			"internalId": 101,
			"username":   "alice",
			"fullName":   "Alice Aoki",
			"email":      "alice@example.com",
		})
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		body := decodeJSON[map[string]any](t, resp)
		gt.Value(t, body["username"]).Equal("alice")
		gt.Value(t, body["active"]).Equal(true)

		_, ok := platform.users["alice"]
		gt.True(t, ok)
	})

	t.Run("sync again reuses the mapping", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/users/sync", map[string]any{
			"internalId": 101,
			"username":   "alice",
			"fullName":   "Alice Aoki",
			"email":      "alice@example.com",
		})
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
	})

	t.Run("invalid sync request is a 400", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/users/sync", map[string]any{
			"internalId": 0,
			"username":   "",
		})
		gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
		resp.Body.Close()
	})

	t.Run("exists", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/users/exists?username=alice")
		gt.NoError(t, err).Required()
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		body := decodeJSON[map[string]any](t, resp)
		gt.Value(t, body["exists"]).Equal(true)
	})

	t.Run("get mapping", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/users/101")
		gt.NoError(t, err).Required()
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		body := decodeJSON[map[string]any](t, resp)
		gt.Value(t, body["username"]).Equal("alice")
	})

	t.Run("unknown mapping is a 404", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/users/999")
		gt.NoError(t, err).Required()
		gt.Value(t, resp.StatusCode).Equal(http.StatusNotFound)
		resp.Body.Close()
	})

	t.Run("deactivate", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/users/101", nil)
		gt.NoError(t, err).Required()
		resp, err := http.DefaultClient.Do(req)
		gt.NoError(t, err).Required()
		gt.Value(t, resp.StatusCode).Equal(http.StatusNoContent)
		resp.Body.Close()

		gt.False(t, platform.users["alice"].Active)
	})
}

func TestRoomEndpoints(t *testing.T) {
	srv, platform := newTestServer(t)

	memberIDs := make([]types.RocketUserID, 0, 3)
	for i, name := range []string{"alice", "bob", "carol"} {
		resp := postJSON(t, srv.URL+"/api/users/sync", map[string]any{
			"internalId": 100 + i,
			"username":   name,
			"fullName":   name,
			"email":      name + "@example.com",
		})
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		body := decodeJSON[map[string]any](t, resp)
		memberIDs = append(memberIDs, types.RocketUserID(body["rocketId"].(string)))
	}

	t.Run("create room", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/rooms", map[string]any{
			"code":        "eng-platform",
			"displayName": "Platform Engineering",
			"private":     true,
		})
		gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
		body := decodeJSON[map[string]any](t, resp)
		gt.Value(t, body["code"]).Equal("eng-platform")
		gt.Value(t, body["private"]).Equal(true)
	})

	t.Run("create again returns the existing room", func(t *testing.T) {
		before := len(platform.rooms)
		resp := postJSON(t, srv.URL+"/api/rooms", map[string]any{
			"code":        "eng-platform",
			"displayName": "Platform Engineering",
			"private":     true,
		})
		gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
		resp.Body.Close()
		gt.Value(t, len(platform.rooms)).Equal(before)
	})

	t.Run("add member", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/rooms/eng-platform/members", map[string]any{
			"userId": memberIDs[0],
		})
		gt.Value(t, resp.StatusCode).Equal(http.StatusNoContent)
		resp.Body.Close()
	})

	t.Run("bulk add reports per member", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/rooms/eng-platform/members/bulk", map[string]any{
			"userIds": memberIDs,
		})
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		body := decodeJSON[map[string]any](t, resp)
		entries := body["entries"].([]any)
		gt.Value(t, len(entries)).Equal(3)
		gt.Value(t, body["failed"]).Equal(float64(0))
		// Already-member from the previous subtest still counts as success
		first := entries[0].(map[string]any)
		gt.Value(t, first["ok"]).Equal(true)
	})

	t.Run("members list", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/rooms/eng-platform/members")
		gt.NoError(t, err).Required()
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		body := decodeJSON[map[string]any](t, resp)
		gt.Value(t, len(body["members"].([]any))).Equal(3)
	})

	t.Run("rename", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/rooms/eng-platform/rename", map[string]any{
			"displayName": "Platform Eng",
		})
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		body := decodeJSON[map[string]any](t, resp)
		gt.Value(t, body["displayName"]).Equal("Platform Eng")
	})

	t.Run("send and read messages", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/rooms/eng-platform/messages", map[string]any{
			"text": "deploy at 15:00",
		})
		gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
		posted := decodeJSON[map[string]string](t, resp)
		gt.Value(t, posted["messageId"]).NotEqual("")

		read, err := http.Get(srv.URL + "/api/rooms/eng-platform/messages")
		gt.NoError(t, err).Required()
		body := decodeJSON[map[string]any](t, read)
		gt.Value(t, len(body["messages"].([]any))).Equal(1)
	})

	t.Run("upload file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "runbook.md")
		gt.NoError(t, err).Required()
		_, err = fw.Write([]byte("# Runbook"))
		gt.NoError(t, err)
		gt.NoError(t, mw.WriteField("description", "deploy runbook"))
		gt.NoError(t, mw.Close())

		resp, err := http.Post(srv.URL+"/api/rooms/eng-platform/files", mw.FormDataContentType(), &buf)
		gt.NoError(t, err).Required()
		gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
		resp.Body.Close()
	})

	t.Run("archive then mutate is a 409", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/rooms/eng-platform/archive", map[string]any{})
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)
		resp.Body.Close()

		add := postJSON(t, srv.URL+"/api/rooms/eng-platform/members", map[string]any{
			"userId": memberIDs[1],
		})
		gt.Value(t, add.StatusCode).Equal(http.StatusConflict)
		add.Body.Close()
	})

	t.Run("unknown room is a 404", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/rooms/no-such-room")
		gt.NoError(t, err).Required()
		gt.Value(t, resp.StatusCode).Equal(http.StatusNotFound)
		resp.Body.Close()
	})

	t.Run("direct message", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/direct-messages", map[string]any{
			"username": "bob",
			"text":     "ping",
		})
		gt.Value(t, resp.StatusCode).Equal(http.StatusCreated)
		resp.Body.Close()
	})
}
