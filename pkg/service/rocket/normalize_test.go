package rocket

import (
	"net/http"
	"testing"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/goccy/go-json"
	"github.com/m-mizutani/gt"
)

func decodeProbe(body []byte) (string, error) {
	var v struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return "", err
	}
	return v.Value, nil
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		kind      RequestKind
		wantOK    bool
		wantAbs   bool
		wantKind  types.ErrorKind
		wantRetry bool
	}{
		{
			name:   "plain success",
			status: http.StatusOK,
			body:   `{"success":true,"value":"hello"}`,
			kind:   KindMutation,
			wantOK: true,
		},
		{
			name:    "missing user on lookup is absence",
			status:  http.StatusBadRequest,
			body:    `{"success":false,"error":"User not found","errorType":"error-invalid-user"}`,
			kind:    KindLookup,
			wantAbs: true,
		},
		{
			name:     "missing user on mutation is not found",
			status:   http.StatusBadRequest,
			body:     `{"success":false,"error":"User not found","errorType":"error-invalid-user"}`,
			kind:     KindMutation,
			wantKind: types.ErrKindNotFound,
		},
		{
			name:    "missing room via 404",
			status:  http.StatusNotFound,
			body:    `{"success":false,"error":"[error-room-not-found]","errorType":"error-room-not-found"}`,
			kind:    KindLookup,
			wantAbs: true,
		},
		{
			name:    "missing room hidden behind 400",
			status:  http.StatusBadRequest,
			body:    `{"success":false,"error":"The room name provided does not match any group"}`,
			kind:    KindLookup,
			wantAbs: true,
		},
		{
			name:    "already invited collapses to absence marker",
			status:  http.StatusBadRequest,
			body:    `{"success":false,"error":"Cannot invite user: user is already in here","errorType":"error-user-already-in-here"}`,
			kind:    KindMutation,
			wantAbs: true,
		},
		{
			name:    "kick of a non-member collapses to absence marker",
			status:  http.StatusBadRequest,
			body:    `{"success":false,"error":"The user is not in the channel","errorType":"error-user-not-in-channel"}`,
			kind:    KindMutation,
			wantAbs: true,
		},
		{
			name:     "archived room is a conflict",
			status:   http.StatusBadRequest,
			body:     `{"success":false,"error":"Channel is archived","errorType":"error-room-archived"}`,
			kind:     KindMutation,
			wantKind: types.ErrKindConflict,
		},
		{
			name:     "username collision is a conflict",
			status:   http.StatusBadRequest,
			body:     `{"success":false,"error":"Username is already in use :(","errorType":"error-field-unavailable"}`,
			kind:     KindMutation,
			wantKind: types.ErrKindConflict,
		},
		{
			name:     "duplicate room name is a conflict",
			status:   http.StatusBadRequest,
			body:     `{"success":false,"error":"A channel with name 'ops' exists","errorType":"error-duplicate-channel-name"}`,
			kind:     KindMutation,
			wantKind: types.ErrKindConflict,
		},
		{
			name:      "expired token is a retryable auth failure",
			status:    http.StatusUnauthorized,
			body:      `{"status":"error","message":"You must be logged in to do this."}`,
			kind:      KindLookup,
			wantKind:  types.ErrKindAuthFailure,
			wantRetry: true,
		},
		{
			name:      "rate limit is retryable",
			status:    http.StatusTooManyRequests,
			body:      `{"success":false,"error":"too many requests"}`,
			kind:      KindMutation,
			wantKind:  types.ErrKindUpstreamError,
			wantRetry: true,
		},
		{
			name:      "server fault is retryable",
			status:    http.StatusBadGateway,
			body:      `<html>bad gateway</html>`,
			kind:      KindMutation,
			wantKind:  types.ErrKindUpstreamError,
			wantRetry: true,
		},
		{
			name:     "success false inside a 200 is a failure",
			status:   http.StatusOK,
			body:     `{"success":false,"error":"unknown error"}`,
			kind:     KindMutation,
			wantKind: types.ErrKindUpstreamError,
		},
		{
			name:     "unrecognized 400 is a non-retryable upstream failure",
			status:   http.StatusBadRequest,
			body:     `{"success":false,"error":"Body param \"name\" is required"}`,
			kind:     KindMutation,
			wantKind: types.ErrKindUpstreamError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalize(tc.status, []byte(tc.body), tc.kind, decodeProbe)

			switch {
			case tc.wantOK:
				gt.True(t, got.IsOK())
				v, ok := got.Value()
				gt.True(t, ok)
				gt.Equal(t, v, "hello")

			case tc.wantAbs:
				gt.True(t, got.IsAbsent())

			default:
				gt.True(t, got.IsFailed())
				gt.Equal(t, got.Kind(), tc.wantKind)
				gt.Equal(t, got.Retryable(), tc.wantRetry)
				gt.Error(t, got.Err())
			}
		})
	}
}

func TestNormalizeDecodeFailure(t *testing.T) {
	got := normalize(http.StatusOK, []byte(`{"success":true,"value":12}`), KindLookup, decodeProbe)
	gt.True(t, got.IsFailed())
	gt.Equal(t, got.Kind(), types.ErrKindUpstreamError)
	gt.False(t, got.Retryable())
}
