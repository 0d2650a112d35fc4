package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/Quangdung1996/chat-sub001/pkg/utils/async"
	"github.com/Quangdung1996/chat-sub001/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

type userMappingResponse struct {
	InternalID types.InternalUserID `json:"internalId"`
	RocketID   types.RocketUserID   `json:"rocketId"`
	Username   string               `json:"username"`
	FullName   string               `json:"fullName"`
	Email      string               `json:"email"`
	Active     bool                 `json:"active"`
	Deleted    bool                 `json:"deleted"`
	CreatedAt  time.Time            `json:"createdAt"`
	LastSyncAt time.Time            `json:"lastSyncAt"`
}

func toUserMappingResponse(m *model.UserMapping) userMappingResponse {
	return userMappingResponse{
		InternalID: m.InternalID,
		RocketID:   m.RocketID,
		Username:   m.Username,
		FullName:   m.FullName,
		Email:      m.Email,
		Active:     m.Active,
		Deleted:    m.Deleted,
		CreatedAt:  m.CreatedAt,
		LastSyncAt: m.LastSyncAt,
	}
}

func (s *Server) syncUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		InternalID int64  `json:"internalId"`
		Username   string `json:"username"`
		FullName   string `json:"fullName"`
		Email      string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	syncReq := &model.SyncUserRequest{
		InternalID: types.InternalUserID(req.InternalID),
		Username:   req.Username,
		FullName:   req.FullName,
		Email:      req.Email,
	}
	if err := syncReq.Validate(); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	mapping, err := s.uc.Identity.SyncUser(ctx, syncReq)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, toUserMappingResponse(mapping))
}

func (s *Server) userExists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := r.URL.Query().Get("username")
	if username == "" {
		respondBadRequest(ctx, w, goerr.New("username query parameter is required"))
		return
	}

	exists, err := s.uc.Identity.UserExists(ctx, username)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]bool{"exists": exists})
}

func (s *Server) listUserMappings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mappings, err := s.uc.Identity.ListMappings(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	out := make([]userMappingResponse, len(mappings))
	for i, m := range mappings {
		out[i] = toUserMappingResponse(m)
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"mappings": out})
}

func (s *Server) getUserMapping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	internalID, err := internalIDParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	mapping, err := s.uc.Identity.GetMappingByInternalID(ctx, internalID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, toUserMappingResponse(mapping))
}

func (s *Server) setUserActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	internalID, err := internalIDParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	mapping, err := s.uc.Identity.SetUserActiveStatus(ctx, internalID, req.Active)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, toUserMappingResponse(mapping))
}

func (s *Server) deactivateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	internalID, err := internalIDParam(r)
	if err != nil {
		respondBadRequest(ctx, w, err)
		return
	}

	if err := s.uc.Identity.DeactivateUser(ctx, internalID); err != nil {
		respondError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// triggerResync kicks off a full mapping refresh and returns immediately.
// Progress is visible through logs and the stored metadata.
func (s *Server) triggerResync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	async.Dispatch(ctx, func(ctx context.Context) error {
		refreshed, err := s.uc.Identity.RefreshAllMappings(ctx)
		if err != nil {
			return goerr.Wrap(err, "on-demand mapping resync failed")
		}
		logging.From(ctx).Info("on-demand mapping resync finished", "refreshed", refreshed)
		return nil
	})

	respondJSON(ctx, w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
