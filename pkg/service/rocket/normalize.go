package rocket

import (
	"net/http"
	"strings"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
)

// RequestKind distinguishes lookup-shaped from mutating requests. Absence is
// a legitimate terminal state only for lookups; a mutating request that
// addresses a missing resource is a NotFound failure.
type RequestKind int

const (
	KindLookup RequestKind = iota
	KindMutation
)

// Signals the platform emits when the queried subject does not exist. The
// platform hides some of these behind 400s and some behind 404s, so the body
// must be matched, not the status code.
var subjectAbsentSignals = []string{
	"error-invalid-user",
	"error-user-not-found",
	"User not found",
}

// Signals meaning the addressed room/channel is missing
var roomAbsentSignals = []string{
	"error-room-not-found",
	"error-invalid-room",
	"error-invalid-channel",
	"does not match any group",
	"does not match any channel",
}

// Signals meaning the requested state change is already in effect. The
// platform reports these as errors; orchestrators treat them as idempotent
// no-ops.
var alreadySatisfiedSignals = []string{
	"error-user-already-in-here",
	"is already in here",
	"already in room",
	"error-user-not-in-channel",
	"is not in this room",
	"is not in the channel",
	"error-user-already-moderator",
	"error-user-not-moderator",
}

// Signals meaning the room's state or an existing name disallows the
// operation. Name collisions land here so create-or-reuse flows can fall
// back to a lookup.
var conflictSignals = []string{
	"error-room-archived",
	"Channel is archived",
	"room is read only",
	"error-field-unavailable",
	"already in use",
	"error-duplicate-channel-name",
	"A channel with name",
}

// normalize is the single chokepoint that translates a raw platform
// response into a uniform outcome. decode consumes the body only when the
// response is classified as success.
func normalize[T any](status int, body []byte, kind RequestKind, decode func([]byte) (T, error)) model.Outcome[T] {
	if f, absent := classify(status, body, kind); absent {
		return model.Absent[T]()
	} else if f != nil {
		return model.FailedWith[T](f)
	}

	v, err := decode(body)
	if err != nil {
		return model.Failed[T](types.ErrKindUpstreamError,
			goerr.Wrap(err, "failed to decode platform response", goerr.V("status", status)),
			false)
	}
	return model.OK(v)
}

// classify inspects status and body. It returns (nil, true) for expected
// absence, (failure, false) for failures, and (nil, false) for success.
func classify(status int, body []byte, kind RequestKind) (*model.Failure, bool) {
	var probe apiStatus
	// Decode errors are ignored here: an unparsable body on a 2xx falls
	// through to the success decoder, which reports it properly.
	_ = json.Unmarshal(body, &probe)

	bodyFailed := probe.Status == "error" || (status < 300 && hasSuccessField(body) && !probe.Success)

	if status >= 200 && status < 300 && !bodyFailed {
		return nil, false
	}

	text := probe.ErrorType + " " + probe.Error + " " + probe.Message

	if matchesAny(text, alreadySatisfiedSignals) {
		return nil, true
	}
	if matchesAny(text, subjectAbsentSignals) {
		if kind == KindLookup {
			return nil, true
		}
		return failure(types.ErrKindNotFound, status, probe, false), false
	}
	if matchesAny(text, roomAbsentSignals) {
		if kind == KindLookup {
			return nil, true
		}
		return failure(types.ErrKindNotFound, status, probe, false), false
	}
	if matchesAny(text, conflictSignals) {
		return failure(types.ErrKindConflict, status, probe, false), false
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return failure(types.ErrKindAuthFailure, status, probe, true), false
	case status == http.StatusTooManyRequests:
		return failure(types.ErrKindUpstreamError, status, probe, true), false
	case status >= 500:
		return failure(types.ErrKindUpstreamError, status, probe, true), false
	default:
		// Other 4xx, or a success:false inside a 200
		return failure(types.ErrKindUpstreamError, status, probe, false), false
	}
}

func failure(kind types.ErrorKind, status int, probe apiStatus, retryable bool) *model.Failure {
	msg := probe.Error
	if msg == "" {
		msg = probe.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &model.Failure{
		Kind: kind,
		Err: goerr.New("platform request failed",
			goerr.V("status", status),
			goerr.V("errorType", probe.ErrorType),
			goerr.V("message", msg),
		),
		Retryable: retryable,
	}
}

func matchesAny(text string, signals []string) bool {
	lower := strings.ToLower(text)
	for _, s := range signals {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// hasSuccessField reports whether the body carries an explicit success flag.
// Some endpoints (login among them) use a status field instead.
func hasSuccessField(body []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	_, ok := probe["success"]
	return ok
}

// transportFailure wraps a transport-level fault (connection refused,
// timeout, breaker open) into a retryable upstream failure.
func transportFailure(err error) *model.Failure {
	return &model.Failure{
		Kind:      types.ErrKindUpstreamError,
		Err:       goerr.Wrap(err, "platform request transport fault"),
		Retryable: true,
	}
}
