package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/Quangdung1996/chat-sub001/pkg/utils/safe"
	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
)

type roomMappingResponse struct {
	Code        types.RoomCode `json:"code"`
	RoomID      types.RoomID   `json:"roomId"`
	DisplayName string         `json:"displayName"`
	Private     bool           `json:"private"`
	ReadOnly    bool           `json:"readOnly"`
	Department  string         `json:"department,omitempty"`
	Project     string         `json:"project,omitempty"`
	MemberCount int            `json:"memberCount"`
	Archived    bool           `json:"archived"`
}

func toRoomMappingResponse(m *model.RoomMapping) roomMappingResponse {
	return roomMappingResponse{
		Code:        m.Code,
		RoomID:      m.RoomID,
		DisplayName: m.DisplayName,
		Private:     m.Private,
		ReadOnly:    m.ReadOnly,
		Department:  m.Department,
		Project:     m.Project,
		MemberCount: m.MemberCount,
		Archived:    m.Archived,
	}
}

type bulkResponseEntry struct {
	Target types.RocketUserID `json:"target"`
	OK     bool               `json:"ok"`
	Error  string             `json:"error,omitempty"`
	Kind   string             `json:"kind,omitempty"`
}

func toBulkResponse(result *model.BulkResult) map[string]any {
	entries := make([]bulkResponseEntry, 0, result.Len())
	for _, e := range result.Entries() {
		entry := bulkResponseEntry{Target: e.Target, OK: e.Outcome.IsOK()}
		if e.Outcome.IsFailed() {
			entry.Error = e.Outcome.Err().Error()
			entry.Kind = e.Outcome.Kind().String()
		}
		entries = append(entries, entry)
	}
	return map[string]any{
		"entries": entries,
		"failed":  result.FailedCount(),
	}
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Code        string               `json:"code"`
		DisplayName string               `json:"displayName"`
		Private     bool                 `json:"private"`
		ReadOnly    bool                 `json:"readOnly"`
		Department  string               `json:"department"`
		Project     string               `json:"project"`
		Members     []types.RocketUserID `json:"members"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	createReq := &model.CreateRoomRequest{
		Code:        types.RoomCode(req.Code),
		DisplayName: req.DisplayName,
		Private:     req.Private,
		ReadOnly:    req.ReadOnly,
		Department:  req.Department,
		Project:     req.Project,
		Members:     req.Members,
	}
	if err := createReq.Validate(); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	mapping, err := s.uc.Room.CreateGroupOrChannel(ctx, createReq)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, toRoomMappingResponse(mapping))
}

func (s *Server) listRoomMappings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mappings, err := s.uc.Room.ListMappings(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	out := make([]roomMappingResponse, len(mappings))
	for i, m := range mappings {
		out[i] = toRoomMappingResponse(m)
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"rooms": out})
}

func (s *Server) getRoomInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	info, err := s.uc.Room.GetRoomInfo(ctx, code)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, info)
}

func (s *Server) deleteRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	if err := s.uc.Room.DeleteRoom(ctx, code); err != nil {
		respondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) renameRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	var req struct {
		DisplayName string `json:"displayName"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}
	if req.DisplayName == "" {
		respondBadRequest(ctx, w, goerr.New("displayName is required"))
		return
	}

	mapping, err := s.uc.Room.RenameRoom(ctx, code, req.DisplayName)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, toRoomMappingResponse(mapping))
}

func (s *Server) setTopic(w http.ResponseWriter, r *http.Request) {
	s.roomTextField(w, r, s.uc.Room.SetTopic)
}

func (s *Server) setAnnouncement(w http.ResponseWriter, r *http.Request) {
	s.roomTextField(w, r, s.uc.Room.SetAnnouncement)
}

// roomTextField handles the topic and announcement endpoints, which share
// the {"text": ...} request shape
func (s *Server) roomTextField(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, code types.RoomCode, text string) error) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	if err := set(ctx, code, req.Text); err != nil {
		respondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setAnnouncementMode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	var req struct {
		AnnounceOnly bool `json:"announceOnly"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	mapping, err := s.uc.Room.SetAnnouncementMode(ctx, code, req.AnnounceOnly)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, toRoomMappingResponse(mapping))
}

func (s *Server) archiveRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	mapping, err := s.uc.Room.ArchiveRoom(ctx, code)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, toRoomMappingResponse(mapping))
}

func (s *Server) leaveRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	if _, err := s.uc.Room.LeaveRoom(ctx, code); err != nil {
		respondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getRoomMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	members, err := s.uc.Room.GetRoomMembers(ctx, code)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"members": members})
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	var req struct {
		UserID types.RocketUserID `json:"userId"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}
	if err := req.UserID.Validate(); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	if _, err := s.uc.Room.AddMember(ctx, code, req.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	userID := types.RocketUserID(chi.URLParam(r, "userID"))
	if err := userID.Validate(); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	if _, err := s.uc.Room.RemoveMember(ctx, code, userID); err != nil {
		respondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addMembersBulk(w http.ResponseWriter, r *http.Request) {
	s.membersBulk(w, r, s.uc.Room.AddMembersBulk)
}

func (s *Server) removeMembersBulk(w http.ResponseWriter, r *http.Request) {
	s.membersBulk(w, r, s.uc.Room.RemoveMembersBulk)
}

func (s *Server) membersBulk(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, code types.RoomCode, userIDs []types.RocketUserID) (*model.BulkResult, error)) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	var req struct {
		UserIDs []types.RocketUserID `json:"userIds"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}
	if len(req.UserIDs) == 0 {
		respondBadRequest(ctx, w, goerr.New("userIds must not be empty"))
		return
	}

	result, err := apply(ctx, code, req.UserIDs)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	// Partial failures ride in the 200 body; the bulk call itself succeeded
	respondJSON(ctx, w, http.StatusOK, toBulkResponse(result))
}

func (s *Server) addModerator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	var req struct {
		UserID types.RocketUserID `json:"userId"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}
	if err := req.UserID.Validate(); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	if _, err := s.uc.Room.AddModerator(ctx, code, req.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeModerator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	userID := types.RocketUserID(chi.URLParam(r, "userID"))
	if err := userID.Validate(); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	if _, err := s.uc.Room.RemoveModerator(ctx, code, userID); err != nil {
		respondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getRoomMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	count, _ := strconv.Atoi(r.URL.Query().Get("count"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	messages, err := s.uc.Room.GetRoomMessages(ctx, code, count, offset)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	var req struct {
		Text     string          `json:"text"`
		Alias    string          `json:"alias"`
		ThreadID types.MessageID `json:"threadId"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}
	if req.Text == "" {
		respondBadRequest(ctx, w, goerr.New("text is required"))
		return
	}

	msgID, err := s.uc.Room.SendMessage(ctx, code, req.Text, req.Alias, req.ThreadID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, map[string]string{"messageId": msgID.String()})
}

func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	messageID := types.MessageID(chi.URLParam(r, "messageID"))
	if err := messageID.Validate(); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	msg, err := s.uc.Room.GetMessage(ctx, messageID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, msg)
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	messageID := types.MessageID(chi.URLParam(r, "messageID"))
	if err := messageID.Validate(); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	if _, err := s.uc.Room.DeleteMessage(ctx, code, messageID); err != nil {
		respondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sendDirectMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Username string `json:"username"`
		Text     string `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}
	if req.Username == "" || req.Text == "" {
		respondBadRequest(ctx, w, goerr.New("username and text are required"))
		return
	}

	msgID, err := s.uc.Room.SendDirectMessage(ctx, req.Username, req.Text)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, map[string]string{"messageId": msgID.String()})
}

func (s *Server) getThreadMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	threadID := types.MessageID(chi.URLParam(r, "threadID"))
	if err := threadID.Validate(); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	messages, err := s.uc.Room.GetThreadMessages(ctx, threadID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"messages": messages})
}

// uploadFile streams a multipart file into the room
func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code, err := roomCodeParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondBadRequest(ctx, w, goerr.Wrap(err, "file form field is required"))
		return
	}
	defer safe.Close(ctx, file)

	description := r.FormValue("description")

	msgID, err := s.uc.Room.UploadFile(ctx, code, header.Filename, description, file)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, map[string]string{"messageId": msgID.String()})
}
