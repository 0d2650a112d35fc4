package rocket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/Quangdung1996/chat-sub001/pkg/utils/safe"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	apiPrefix = "/api/v1/"

	// DefaultTimeout bounds every outbound call
	DefaultTimeout = 30 * time.Second

	// maxBodySize caps response body reads
	maxBodySize = 8 << 20
)

// Config holds the connection settings for the Rocket.Chat platform
type Config struct {
	BaseURL       string
	AdminUser     string
	AdminPassword string `masq:"secret"`
	BotUser       string
	BotPassword   string `masq:"secret"`
	Timeout       time.Duration
	TokenTTL      time.Duration
	TokenMargin   time.Duration
}

type loginCreds struct {
	user     string
	password string
}

type client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	creds      map[types.OwnerClass]loginCreds
	msgOwner   types.OwnerClass
	tokens     *tokenCache
	breaker    *gobreaker.CircuitBreaker[*rawResponse]
}

var _ Service = &client{}

// Option is a functional option for client configuration
type Option func(*client)

// WithHTTPClient replaces the underlying HTTP client (tests)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// New creates a Rocket.Chat service client
func New(cfg Config, opts ...Option) (Service, error) {
	if cfg.BaseURL == "" {
		return nil, goerr.New("rocket base URL is required")
	}
	if cfg.AdminUser == "" || cfg.AdminPassword == "" {
		return nil, goerr.New("rocket admin credentials are required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid rocket base URL", goerr.V("baseURL", cfg.BaseURL))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &client{
		baseURL:    base,
		httpClient: &http.Client{},
		timeout:    timeout,
		creds: map[types.OwnerClass]loginCreds{
			types.OwnerAdmin: {user: cfg.AdminUser, password: cfg.AdminPassword},
		},
		msgOwner: types.OwnerAdmin,
	}
	if cfg.BotUser != "" && cfg.BotPassword != "" {
		c.creds[types.OwnerBot] = loginCreds{user: cfg.BotUser, password: cfg.BotPassword}
		c.msgOwner = types.OwnerBot
	}

	c.tokens = newTokenCache(c.loginOwner, cfg.TokenTTL, cfg.TokenMargin)
	c.breaker = gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:    "rocket-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type rawResponse struct {
	status int
	body   []byte
}

// serverFaultErr carries a 5xx response through the breaker's error path so
// the fault counts toward tripping while the body stays available for
// normalization
type serverFaultErr struct {
	raw *rawResponse
}

func (x *serverFaultErr) Error() string {
	return fmt.Sprintf("platform server fault: status %d", x.raw.status)
}

// request sends one HTTP request through the circuit breaker and returns the
// raw status and body. A nil cred sends no auth headers (login only).
func (c *client) request(ctx context.Context, cred *model.Credential, method, apiPath string, query url.Values, contentType string, body io.Reader) (*rawResponse, *model.Failure) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL.JoinPath(apiPrefix + apiPath)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, transportFailure(goerr.Wrap(err, "failed to build platform request", goerr.V("path", apiPath)))
	}

	req.Header.Set("X-Request-Id", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cred != nil {
		req.Header.Set("X-Auth-Token", cred.Token)
		req.Header.Set("X-User-Id", cred.UserID.String())
	}

	raw, err := c.breaker.Execute(func() (*rawResponse, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, goerr.Wrap(err, "platform request failed", goerr.V("path", apiPath))
		}
		defer safe.Close(ctx, resp.Body)

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read platform response", goerr.V("path", apiPath))
		}

		r := &rawResponse{status: resp.StatusCode, body: data}
		if resp.StatusCode >= 500 {
			return nil, &serverFaultErr{raw: r}
		}
		return r, nil
	})
	if err != nil {
		var sf *serverFaultErr
		if errors.As(err, &sf) {
			return sf.raw, nil
		}
		return nil, transportFailure(err)
	}

	return raw, nil
}

// do sends an authenticated JSON request for the given owner class. A 401
// evicts the cached token so the next attempt re-authenticates.
func (c *client) do(ctx context.Context, owner types.OwnerClass, method, apiPath string, query url.Values, payload any) (int, []byte, *model.Failure) {
	credOutcome := c.tokens.Get(ctx, owner)
	if credOutcome.IsFailed() {
		return 0, nil, credOutcome.Failure()
	}
	cred := credOutcome.Unwrap()

	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, &model.Failure{
				Kind:      types.ErrKindValidationError,
				Err:       goerr.Wrap(err, "failed to encode platform request", goerr.V("path", apiPath)),
				Retryable: false,
			}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	raw, f := c.request(ctx, &cred, method, apiPath, query, contentType, body)
	if f != nil {
		return 0, nil, f
	}

	if raw.status == http.StatusUnauthorized {
		c.tokens.Invalidate(owner)
	}

	return raw.status, raw.body, nil
}

// loginOwner performs the underlying login for the token cache
func (c *client) loginOwner(ctx context.Context, owner types.OwnerClass) model.Outcome[model.Credential] {
	lc, ok := c.creds[owner]
	if !ok {
		return model.Failed[model.Credential](types.ErrKindAuthFailure,
			goerr.New("no credentials configured for owner class", goerr.V("owner", owner)), false)
	}

	data, err := json.Marshal(map[string]string{
		"user":     lc.user,
		"password": lc.password,
	})
	if err != nil {
		return model.Failed[model.Credential](types.ErrKindAuthFailure, goerr.Wrap(err, "failed to encode login request"), false)
	}

	raw, f := c.request(ctx, nil, http.MethodPost, "login", nil, "application/json", bytes.NewReader(data))
	if f != nil {
		return model.FailedWith[model.Credential](f)
	}

	var resp loginResponse
	if raw.status < 200 || raw.status >= 300 || json.Unmarshal(raw.body, &resp) != nil || resp.Status != "success" {
		return model.Failed[model.Credential](types.ErrKindAuthFailure,
			goerr.New("platform login rejected",
				goerr.V("owner", owner),
				goerr.V("status", raw.status),
			), true)
	}

	return model.OK(model.Credential{
		Token:  resp.Data.AuthToken,
		UserID: types.RocketUserID(resp.Data.UserID),
		Owner:  owner,
	})
}

// Logout invalidates the platform session and the cached token. With no
// cached session there is nothing to end and the call is a no-op.
func (c *client) Logout(ctx context.Context, owner types.OwnerClass) model.Outcome[bool] {
	if _, ok := c.tokens.Peek(owner); !ok {
		return model.OK(true)
	}

	status, body, f := c.do(ctx, owner, http.MethodPost, "logout", nil, nil)
	c.tokens.Invalidate(owner)
	if f != nil {
		return model.FailedWith[bool](f)
	}
	return normalize(status, body, KindMutation, decodeAck)
}

func decodeAck([]byte) (bool, error) {
	return true, nil
}

func (c *client) CreateUser(ctx context.Context, req CreateUserRequest) model.Outcome[User] {
	password := req.Password
	if password == "" {
		// A user is never expected to log in with this; the platform
		// requires one regardless
		password = uuid.NewString()
	}

	status, body, f := c.do(ctx, types.OwnerAdmin, http.MethodPost, "users.create", nil, map[string]any{
		"username": req.Username,
		"name":     req.Name,
		"email":    req.Email,
		"password": password,
		"verified": true,
	})
	if f != nil {
		return model.FailedWith[User](f)
	}

	return normalize(status, body, KindMutation, decodeUser)
}

func decodeUser(body []byte) (User, error) {
	var resp struct {
		User wireUser `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return User{}, err
	}
	return resp.User.toUser(), nil
}

func (c *client) GetUserInfo(ctx context.Context, id types.RocketUserID) model.Outcome[User] {
	status, body, f := c.do(ctx, types.OwnerAdmin, http.MethodGet, "users.info",
		url.Values{"userId": {id.String()}}, nil)
	if f != nil {
		return model.FailedWith[User](f)
	}
	return normalize(status, body, KindLookup, decodeUser)
}

func (c *client) GetUserByUsername(ctx context.Context, username string) model.Outcome[User] {
	status, body, f := c.do(ctx, types.OwnerAdmin, http.MethodGet, "users.info",
		url.Values{"username": {username}}, nil)
	if f != nil {
		return model.FailedWith[User](f)
	}
	return normalize(status, body, KindLookup, decodeUser)
}

func (c *client) SetUserActiveStatus(ctx context.Context, id types.RocketUserID, active bool) model.Outcome[bool] {
	status, body, f := c.do(ctx, types.OwnerAdmin, http.MethodPost, "users.setActiveStatus", nil, map[string]any{
		"userId":       id.String(),
		"activeStatus": active,
	})
	if f != nil {
		return model.FailedWith[bool](f)
	}
	return normalize(status, body, KindMutation, decodeAck)
}

func (c *client) CreateRoom(ctx context.Context, params CreateRoomParams) model.Outcome[Room] {
	endpoint := "channels.create"
	key := "channel"
	if params.Private {
		endpoint = "groups.create"
		key = "group"
	}

	status, body, f := c.do(ctx, types.OwnerAdmin, http.MethodPost, endpoint, nil, map[string]any{
		"name":     params.Name,
		"members":  params.Members,
		"readOnly": params.ReadOnly,
	})
	if f != nil {
		return model.FailedWith[Room](f)
	}

	return normalize(status, body, KindMutation, func(b []byte) (Room, error) {
		var resp map[string]json.RawMessage
		if err := json.Unmarshal(b, &resp); err != nil {
			return Room{}, err
		}
		var room wireRoom
		if err := json.Unmarshal(resp[key], &room); err != nil {
			return Room{}, err
		}
		return room.toRoom(), nil
	})
}

func decodeRoom(body []byte) (Room, error) {
	var resp struct {
		Group   *wireRoom `json:"group"`
		Channel *wireRoom `json:"channel"`
		Room    *wireRoom `json:"room"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Room{}, err
	}
	switch {
	case resp.Group != nil:
		return resp.Group.toRoom(), nil
	case resp.Channel != nil:
		return resp.Channel.toRoom(), nil
	case resp.Room != nil:
		return resp.Room.toRoom(), nil
	default:
		return Room{}, goerr.New("platform response carries no room")
	}
}

func (c *client) RoomInfo(ctx context.Context, id types.RoomID) model.Outcome[Room] {
	status, body, f := c.do(ctx, types.OwnerAdmin, http.MethodGet, "groups.info",
		url.Values{"roomId": {id.String()}}, nil)
	if f != nil {
		return model.FailedWith[Room](f)
	}
	return normalize(status, body, KindLookup, decodeRoom)
}

func (c *client) RoomInfoByName(ctx context.Context, name string) model.Outcome[Room] {
	status, body, f := c.do(ctx, types.OwnerAdmin, http.MethodGet, "groups.info",
		url.Values{"roomName": {name}}, nil)
	if f != nil {
		return model.FailedWith[Room](f)
	}
	return normalize(status, body, KindLookup, decodeRoom)
}

// roomAction issues one of the single-shot room mutations that share the
// {roomId} + optional extras request shape
func (c *client) roomAction(ctx context.Context, endpoint string, roomID types.RoomID, extra map[string]any) model.Outcome[bool] {
	payload := map[string]any{"roomId": roomID.String()}
	for k, v := range extra {
		payload[k] = v
	}

	status, body, f := c.do(ctx, types.OwnerAdmin, http.MethodPost, endpoint, nil, payload)
	if f != nil {
		return model.FailedWith[bool](f)
	}
	return normalize(status, body, KindMutation, decodeAck)
}

func (c *client) RenameRoom(ctx context.Context, id types.RoomID, name string) model.Outcome[bool] {
	return c.roomAction(ctx, "groups.rename", id, map[string]any{"name": name})
}

func (c *client) SetTopic(ctx context.Context, id types.RoomID, topic string) model.Outcome[bool] {
	return c.roomAction(ctx, "groups.setTopic", id, map[string]any{"topic": topic})
}

func (c *client) SetAnnouncement(ctx context.Context, id types.RoomID, announcement string) model.Outcome[bool] {
	return c.roomAction(ctx, "groups.setAnnouncement", id, map[string]any{"announcement": announcement})
}

func (c *client) SetReadOnly(ctx context.Context, id types.RoomID, readOnly bool) model.Outcome[bool] {
	return c.roomAction(ctx, "groups.setReadOnly", id, map[string]any{"readOnly": readOnly})
}

func (c *client) ArchiveRoom(ctx context.Context, id types.RoomID) model.Outcome[bool] {
	return c.roomAction(ctx, "groups.archive", id, nil)
}

func (c *client) DeleteRoom(ctx context.Context, id types.RoomID) model.Outcome[bool] {
	return c.roomAction(ctx, "groups.delete", id, nil)
}

func (c *client) InviteUser(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool] {
	return c.roomAction(ctx, "groups.invite", roomID, map[string]any{"userId": userID.String()})
}

func (c *client) KickUser(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool] {
	return c.roomAction(ctx, "groups.kick", roomID, map[string]any{"userId": userID.String()})
}

func (c *client) AddModerator(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool] {
	return c.roomAction(ctx, "groups.addModerator", roomID, map[string]any{"userId": userID.String()})
}

func (c *client) RemoveModerator(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool] {
	return c.roomAction(ctx, "groups.removeModerator", roomID, map[string]any{"userId": userID.String()})
}

func (c *client) LeaveRoom(ctx context.Context, roomID types.RoomID) model.Outcome[bool] {
	return c.roomAction(ctx, "groups.leave", roomID, nil)
}

func (c *client) RoomMembers(ctx context.Context, roomID types.RoomID) model.Outcome[[]model.RoomMember] {
	status, body, f := c.do(ctx, types.OwnerAdmin, http.MethodGet, "groups.members",
		url.Values{"roomId": {roomID.String()}}, nil)
	if f != nil {
		return model.FailedWith[[]model.RoomMember](f)
	}

	return normalize(status, body, KindLookup, func(b []byte) ([]model.RoomMember, error) {
		var resp struct {
			Members []struct {
				ID       string `json:"_id"`
				Username string `json:"username"`
				Name     string `json:"name"`
				Status   string `json:"status"`
			} `json:"members"`
		}
		if err := json.Unmarshal(b, &resp); err != nil {
			return nil, err
		}
		members := make([]model.RoomMember, 0, len(resp.Members))
		for _, m := range resp.Members {
			members = append(members, model.RoomMember{
				ID:       types.RocketUserID(m.ID),
				Username: m.Username,
				Name:     m.Name,
				Status:   m.Status,
			})
		}
		return members, nil
	})
}

func (c *client) PostMessage(ctx context.Context, req *model.PostMessageRequest) model.Outcome[types.MessageID] {
	payload := map[string]any{
		"roomId": req.RoomID.String(),
		"text":   req.Text,
	}
	if req.Alias != "" {
		payload["alias"] = req.Alias
	}
	if req.ThreadID != "" {
		payload["tmid"] = req.ThreadID.String()
	}

	status, body, f := c.do(ctx, c.msgOwner, http.MethodPost, "chat.postMessage", nil, payload)
	if f != nil {
		return model.FailedWith[types.MessageID](f)
	}

	return normalize(status, body, KindMutation, func(b []byte) (types.MessageID, error) {
		var resp struct {
			Message wireMessage `json:"message"`
		}
		if err := json.Unmarshal(b, &resp); err != nil {
			return "", err
		}
		return types.MessageID(resp.Message.ID), nil
	})
}

func (c *client) GetMessage(ctx context.Context, id types.MessageID) model.Outcome[model.Message] {
	status, body, f := c.do(ctx, types.OwnerAdmin, http.MethodGet, "chat.getMessage",
		url.Values{"msgId": {id.String()}}, nil)
	if f != nil {
		return model.FailedWith[model.Message](f)
	}

	return normalize(status, body, KindLookup, func(b []byte) (model.Message, error) {
		var resp struct {
			Message wireMessage `json:"message"`
		}
		if err := json.Unmarshal(b, &resp); err != nil {
			return model.Message{}, err
		}
		return resp.Message.toMessage(), nil
	})
}

func (c *client) DeleteMessage(ctx context.Context, roomID types.RoomID, id types.MessageID) model.Outcome[bool] {
	status, body, f := c.do(ctx, types.OwnerAdmin, http.MethodPost, "chat.delete", nil, map[string]any{
		"roomId": roomID.String(),
		"msgId":  id.String(),
	})
	if f != nil {
		return model.FailedWith[bool](f)
	}
	return normalize(status, body, KindMutation, decodeAck)
}

func decodeMessages(body []byte) ([]model.Message, error) {
	var resp struct {
		Messages []wireMessage `json:"messages"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	messages := make([]model.Message, 0, len(resp.Messages))
	for i := range resp.Messages {
		messages = append(messages, resp.Messages[i].toMessage())
	}
	return messages, nil
}

func (c *client) RoomMessages(ctx context.Context, roomID types.RoomID, count, offset int) model.Outcome[[]model.Message] {
	q := url.Values{"roomId": {roomID.String()}}
	if count > 0 {
		q.Set("count", strconv.Itoa(count))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	status, body, f := c.do(ctx, types.OwnerAdmin, http.MethodGet, "groups.messages", q, nil)
	if f != nil {
		return model.FailedWith[[]model.Message](f)
	}
	return normalize(status, body, KindLookup, decodeMessages)
}

func (c *client) ThreadMessages(ctx context.Context, threadID types.MessageID) model.Outcome[[]model.Message] {
	status, body, f := c.do(ctx, types.OwnerAdmin, http.MethodGet, "chat.getThreadMessages",
		url.Values{"tmid": {threadID.String()}}, nil)
	if f != nil {
		return model.FailedWith[[]model.Message](f)
	}
	return normalize(status, body, KindLookup, decodeMessages)
}

func (c *client) CreateDirectMessage(ctx context.Context, username string) model.Outcome[types.RoomID] {
	status, body, f := c.do(ctx, c.msgOwner, http.MethodPost, "im.create", nil, map[string]any{
		"username": username,
	})
	if f != nil {
		return model.FailedWith[types.RoomID](f)
	}

	return normalize(status, body, KindMutation, func(b []byte) (types.RoomID, error) {
		var resp struct {
			Room wireRoom `json:"room"`
		}
		if err := json.Unmarshal(b, &resp); err != nil {
			return "", err
		}
		return types.RoomID(resp.Room.ID), nil
	})
}

// UploadFile streams a multipart payload to the room. The upload is a single
// atomic call; there is no resume support.
func (c *client) UploadFile(ctx context.Context, req *model.UploadFileRequest) model.Outcome[types.MessageID] {
	credOutcome := c.tokens.Get(ctx, c.msgOwner)
	if credOutcome.IsFailed() {
		return model.FailedWith[types.MessageID](credOutcome.Failure())
	}
	cred := credOutcome.Unwrap()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", req.FileName)
	if err != nil {
		return model.Failed[types.MessageID](types.ErrKindValidationError,
			goerr.Wrap(err, "failed to build multipart payload"), false)
	}
	if _, err := io.Copy(part, req.Content); err != nil {
		return model.Failed[types.MessageID](types.ErrKindUpstreamError,
			goerr.Wrap(err, "failed to read file content"), false)
	}
	if req.Description != "" {
		if err := mw.WriteField("description", req.Description); err != nil {
			return model.Failed[types.MessageID](types.ErrKindValidationError,
				goerr.Wrap(err, "failed to build multipart payload"), false)
		}
	}
	if err := mw.Close(); err != nil {
		return model.Failed[types.MessageID](types.ErrKindValidationError,
			goerr.Wrap(err, "failed to finalize multipart payload"), false)
	}

	raw, f := c.request(ctx, &cred, http.MethodPost, "rooms.upload/"+req.RoomID.String(),
		nil, mw.FormDataContentType(), &buf)
	if f != nil {
		return model.FailedWith[types.MessageID](f)
	}
	if raw.status == http.StatusUnauthorized {
		c.tokens.Invalidate(c.msgOwner)
	}

	return normalize(raw.status, raw.body, KindMutation, func(b []byte) (types.MessageID, error) {
		var resp struct {
			Message wireMessage `json:"message"`
		}
		if err := json.Unmarshal(b, &resp); err != nil {
			return "", err
		}
		return types.MessageID(resp.Message.ID), nil
	})
}
