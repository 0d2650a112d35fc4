package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/Quangdung1996/chat-sub001/pkg/usecase"
	"github.com/Quangdung1996/chat-sub001/pkg/utils/errutil"
	"github.com/Quangdung1996/chat-sub001/pkg/utils/safe"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(ctx, w, data)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// respondError maps orchestration errors to HTTP statuses. Platform failure
// kinds drive the status; repository and validation errors map directly.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := ""

	switch {
	case errors.Is(err, usecase.ErrMappingNotFound):
		status = http.StatusNotFound

	case errors.Is(err, usecase.ErrMappingConflict), errors.Is(err, usecase.ErrRoomArchived):
		status = http.StatusConflict

	default:
		if pe, ok := usecase.AsPlatformError(err); ok {
			kind = pe.Failure.Kind.String()
			switch pe.Failure.Kind {
			case types.ErrKindNotFound:
				status = http.StatusNotFound
			case types.ErrKindConflict:
				status = http.StatusConflict
			case types.ErrKindValidationError:
				status = http.StatusBadRequest
			case types.ErrKindAuthFailure, types.ErrKindUpstreamError:
				status = http.StatusBadGateway
			}
		}
	}

	if status >= http.StatusInternalServerError || status == http.StatusBadGateway {
		errutil.Handle(ctx, err, "request failed")
	}

	respondJSON(ctx, w, status, errorResponse{Error: err.Error(), Kind: kind})
}

// respondBadRequest reports a request the handler itself rejected, before
// any orchestration ran
func respondBadRequest(ctx context.Context, w http.ResponseWriter, err error) {
	respondJSON(ctx, w, http.StatusBadRequest, errorResponse{
		Error: err.Error(),
		Kind:  types.ErrKindValidationError.String(),
	})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(err, "invalid request body")
	}
	return nil
}

func internalIDParam(r *http.Request) (types.InternalUserID, error) {
	raw := chi.URLParam(r, "internalID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid internal user ID", goerr.V("raw", raw))
	}
	internalID := types.InternalUserID(id)
	if err := internalID.Validate(); err != nil {
		return 0, err
	}
	return internalID, nil
}

func roomCodeParam(r *http.Request) (types.RoomCode, error) {
	code := types.RoomCode(chi.URLParam(r, "code"))
	if err := code.Validate(); err != nil {
		return "", err
	}
	return code, nil
}
