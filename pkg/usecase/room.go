package usecase

import (
	"context"
	"errors"
	"io"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/interfaces"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/model/config"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/Quangdung1996/chat-sub001/pkg/repository"
	"github.com/Quangdung1996/chat-sub001/pkg/service/rocket"
	"github.com/Quangdung1996/chat-sub001/pkg/utils/errutil"
	"github.com/Quangdung1996/chat-sub001/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/time/rate"
)

// RoomUseCase orchestrates room-code to Rocket.Chat room mappings and the
// membership, moderation and messaging operations against mapped rooms
type RoomUseCase struct {
	repo      interfaces.Repository
	rocket    rocket.Service
	orgConfig *config.OrgConfig
	retry     retryPolicy

	// bulkRate paces bulk membership calls; all bulk operations share it
	bulkRate *rate.Limiter
}

func NewRoomUseCase(repo interfaces.Repository, rocketSvc rocket.Service, orgConfig *config.OrgConfig, retry retryPolicy, bulkRate *rate.Limiter) *RoomUseCase {
	return &RoomUseCase{
		repo:      repo,
		rocket:    rocketSvc,
		orgConfig: orgConfig,
		retry:     retry,
		bulkRate:  bulkRate,
	}
}

// CreateGroupOrChannel ensures a Rocket.Chat room exists for the code and a
// durable mapping binds them. Repeating the call reuses the existing room.
// A room of the same name already present on the platform is adopted rather
// than duplicated.
func (uc *RoomUseCase) CreateGroupOrChannel(ctx context.Context, req *model.CreateRoomRequest) (*model.RoomMapping, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if uc.orgConfig != nil {
		if !uc.orgConfig.HasDepartment(req.Department) {
			return nil, goerr.New("unknown department", goerr.V("department", req.Department), goerr.V("code", req.Code))
		}
		if !uc.orgConfig.HasProject(req.Project) {
			return nil, goerr.New("unknown project", goerr.V("project", req.Project), goerr.V("code", req.Code))
		}
	}

	existing, err := uc.repo.RoomMappings().GetByCode(ctx, req.Code)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, goerr.Wrap(err, "failed to load room mapping", goerr.V("code", req.Code))
	}

	if existing != nil {
		if existing.Archived {
			return nil, goerr.Wrap(ErrRoomArchived, "cannot recreate an archived room", goerr.V("code", req.Code))
		}
		return uc.reconcileRoom(ctx, existing, req)
	}

	room, err := uc.resolveExternalRoom(ctx, req)
	if err != nil {
		return nil, err
	}

	mapping := model.NewRoomMapping(req.Code, room.ID, req.DisplayName, req.Private)
	mapping.ReadOnly = req.ReadOnly
	mapping.Department = req.Department
	mapping.Project = req.Project
	mapping.MemberCount = room.MemberCount

	stored, err := uc.repo.RoomMappings().Put(ctx, mapping)
	if err != nil {
		if errors.Is(err, repository.ErrRevisionMismatch) || errors.Is(err, repository.ErrDuplicateExternalID) {
			// A concurrent creator won the race; their mapping is the truth
			if current, getErr := uc.repo.RoomMappings().GetByCode(ctx, req.Code); getErr == nil {
				return current, nil
			}
		}
		return nil, goerr.Wrap(err, "failed to store room mapping", goerr.V("code", req.Code))
	}

	uc.inviteInitialMembers(ctx, stored, req.Members)
	return stored, nil
}

// reconcileRoom verifies an existing mapping against the platform and heals
// the divergences a half-completed earlier attempt can leave behind
func (uc *RoomUseCase) reconcileRoom(ctx context.Context, mapping *model.RoomMapping, req *model.CreateRoomRequest) (*model.RoomMapping, error) {
	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[rocket.Room] {
		return uc.rocket.RoomInfo(ctx, mapping.RoomID)
	})

	switch {
	case out.IsFailed():
		return nil, platformErr(out.Failure())

	case out.IsAbsent():
		logging.From(ctx).Warn("mapped platform room no longer exists, re-provisioning",
			"code", mapping.Code, "roomID", mapping.RoomID)

		room, err := uc.resolveExternalRoom(ctx, req)
		if err != nil {
			return nil, err
		}
		updated := mapping.Clone()
		updated.RoomID = room.ID
		updated.DisplayName = req.DisplayName
		updated.MemberCount = room.MemberCount
		stored, err := uc.repo.RoomMappings().Put(ctx, updated)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to rebind room mapping", goerr.V("code", mapping.Code))
		}
		uc.inviteInitialMembers(ctx, stored, req.Members)
		return stored, nil
	}

	room := out.Unwrap()
	updated := mapping.Clone()
	updated.DisplayName = req.DisplayName
	updated.MemberCount = room.MemberCount
	stored, err := uc.repo.RoomMappings().Put(ctx, updated)
	if err != nil {
		if errors.Is(err, repository.ErrRevisionMismatch) {
			if current, getErr := uc.repo.RoomMappings().GetByCode(ctx, mapping.Code); getErr == nil {
				return current, nil
			}
		}
		return nil, goerr.Wrap(err, "failed to refresh room mapping", goerr.V("code", mapping.Code))
	}
	return stored, nil
}

// resolveExternalRoom creates the platform room, adopting one that already
// carries the code as its name. The room name on the platform is the code;
// the human-facing name lives in the mapping.
func (uc *RoomUseCase) resolveExternalRoom(ctx context.Context, req *model.CreateRoomRequest) (rocket.Room, error) {
	// A previous attempt may have created the room without persisting the
	// mapping. Look before creating.
	found := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[rocket.Room] {
		return uc.rocket.RoomInfoByName(ctx, req.Code.String())
	})
	if found.IsFailed() {
		return rocket.Room{}, platformErr(found.Failure())
	}
	if found.IsOK() {
		room := found.Unwrap()
		if err := uc.checkRoomUnbound(ctx, room.ID, req.Code); err != nil {
			return rocket.Room{}, err
		}
		return room, nil
	}

	created := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[rocket.Room] {
		return uc.rocket.CreateRoom(ctx, rocket.CreateRoomParams{
			Name:     req.Code.String(),
			Private:  req.Private,
			ReadOnly: req.ReadOnly,
		})
	})
	if created.IsOK() {
		return created.Unwrap(), nil
	}
	if created.Kind() != types.ErrKindConflict {
		return rocket.Room{}, platformErr(created.Failure())
	}

	// Lost a create race against another instance; the room exists now
	adopted := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[rocket.Room] {
		return uc.rocket.RoomInfoByName(ctx, req.Code.String())
	})
	if !adopted.IsOK() {
		return rocket.Room{}, goerr.Wrap(created.Err(), "room name reported taken but room not found",
			goerr.V("code", req.Code))
	}
	room := adopted.Unwrap()
	if err := uc.checkRoomUnbound(ctx, room.ID, req.Code); err != nil {
		return rocket.Room{}, err
	}
	return room, nil
}

// checkRoomUnbound refuses adoption of a platform room already mapped to a
// different code
func (uc *RoomUseCase) checkRoomUnbound(ctx context.Context, roomID types.RoomID, code types.RoomCode) error {
	bound, err := uc.repo.RoomMappings().GetByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return goerr.Wrap(err, "failed to check existing room binding", goerr.V("roomID", roomID))
	}
	if bound.Code != code {
		return goerr.Wrap(ErrMappingConflict, "platform room is mapped to another code",
			goerr.V("roomID", roomID),
			goerr.V("code", code),
			goerr.V("boundCode", bound.Code),
		)
	}
	return nil
}

// inviteInitialMembers adds the requested members after room provisioning.
// Invite failures do not fail room creation; they are reported and the
// caller can re-add through the membership API.
func (uc *RoomUseCase) inviteInitialMembers(ctx context.Context, mapping *model.RoomMapping, members []types.RocketUserID) {
	if len(members) == 0 {
		return
	}
	result, err := uc.addMembers(ctx, mapping, members)
	if err != nil {
		errutil.Handle(ctx, err, "initial member invite aborted")
		return
	}
	for _, e := range result.Entries() {
		if e.Outcome.IsFailed() {
			errutil.Handle(ctx, e.Outcome.Err(), "initial member invite failed")
		}
	}
}

// activeMapping loads the mapping for a code and refuses archived rooms
func (uc *RoomUseCase) activeMapping(ctx context.Context, code types.RoomCode) (*model.RoomMapping, error) {
	mapping, err := uc.repo.RoomMappings().GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, goerr.Wrap(ErrMappingNotFound, "no mapping for room code", goerr.V("code", code))
		}
		return nil, goerr.Wrap(err, "failed to load room mapping", goerr.V("code", code))
	}
	if mapping.Archived {
		return nil, goerr.Wrap(ErrRoomArchived, "operation refused on archived room", goerr.V("code", code))
	}
	return mapping, nil
}

// memberOp runs one membership or moderation call. An already-satisfied
// state reported by the platform counts as success.
func (uc *RoomUseCase) memberOp(ctx context.Context, code types.RoomCode, fn func(ctx context.Context, roomID types.RoomID) model.Outcome[bool]) (bool, error) {
	mapping, err := uc.activeMapping(ctx, code)
	if err != nil {
		return false, err
	}

	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[bool] {
		return fn(ctx, mapping.RoomID)
	})
	if out.IsFailed() {
		return false, platformErr(out.Failure())
	}
	// Absent means the platform reported the state already in effect
	return true, nil
}

// AddMember invites a user to the room. Inviting a member twice succeeds.
func (uc *RoomUseCase) AddMember(ctx context.Context, code types.RoomCode, userID types.RocketUserID) (bool, error) {
	return uc.memberOp(ctx, code, func(ctx context.Context, roomID types.RoomID) model.Outcome[bool] {
		return uc.rocket.InviteUser(ctx, roomID, userID)
	})
}

// RemoveMember kicks a user from the room. Removing a non-member succeeds.
func (uc *RoomUseCase) RemoveMember(ctx context.Context, code types.RoomCode, userID types.RocketUserID) (bool, error) {
	return uc.memberOp(ctx, code, func(ctx context.Context, roomID types.RoomID) model.Outcome[bool] {
		return uc.rocket.KickUser(ctx, roomID, userID)
	})
}

// AddModerator grants moderator rights. Granting twice succeeds.
func (uc *RoomUseCase) AddModerator(ctx context.Context, code types.RoomCode, userID types.RocketUserID) (bool, error) {
	return uc.memberOp(ctx, code, func(ctx context.Context, roomID types.RoomID) model.Outcome[bool] {
		return uc.rocket.AddModerator(ctx, roomID, userID)
	})
}

// RemoveModerator revokes moderator rights. Revoking from a non-moderator
// succeeds.
func (uc *RoomUseCase) RemoveModerator(ctx context.Context, code types.RoomCode, userID types.RocketUserID) (bool, error) {
	return uc.memberOp(ctx, code, func(ctx context.Context, roomID types.RoomID) model.Outcome[bool] {
		return uc.rocket.RemoveModerator(ctx, roomID, userID)
	})
}

// LeaveRoom makes the service account leave the room
func (uc *RoomUseCase) LeaveRoom(ctx context.Context, code types.RoomCode) (bool, error) {
	return uc.memberOp(ctx, code, func(ctx context.Context, roomID types.RoomID) model.Outcome[bool] {
		return uc.rocket.LeaveRoom(ctx, roomID)
	})
}

// AddMembersBulk invites many users with per-target failure isolation: one
// failed invite never aborts the rest. Cancellation stops the sweep and the
// outcomes collected so far are returned with the error.
func (uc *RoomUseCase) AddMembersBulk(ctx context.Context, code types.RoomCode, userIDs []types.RocketUserID) (*model.BulkResult, error) {
	mapping, err := uc.activeMapping(ctx, code)
	if err != nil {
		return nil, err
	}
	return uc.bulkApply(ctx, mapping, userIDs, uc.rocket.InviteUser)
}

// RemoveMembersBulk kicks many users with the same isolation semantics as
// AddMembersBulk
func (uc *RoomUseCase) RemoveMembersBulk(ctx context.Context, code types.RoomCode, userIDs []types.RocketUserID) (*model.BulkResult, error) {
	mapping, err := uc.activeMapping(ctx, code)
	if err != nil {
		return nil, err
	}
	return uc.bulkApply(ctx, mapping, userIDs, uc.rocket.KickUser)
}

func (uc *RoomUseCase) addMembers(ctx context.Context, mapping *model.RoomMapping, userIDs []types.RocketUserID) (*model.BulkResult, error) {
	return uc.bulkApply(ctx, mapping, userIDs, uc.rocket.InviteUser)
}

// bulkApply runs one membership call per target, paced by the shared rate
// limiter. Entries preserve request order.
func (uc *RoomUseCase) bulkApply(ctx context.Context, mapping *model.RoomMapping, userIDs []types.RocketUserID, fn func(ctx context.Context, roomID types.RoomID, userID types.RocketUserID) model.Outcome[bool]) (*model.BulkResult, error) {
	result := model.NewBulkResult(len(userIDs))

	for _, userID := range userIDs {
		if err := uc.bulkRate.Wait(ctx); err != nil {
			return result, goerr.Wrap(err, "bulk operation canceled",
				goerr.V("code", mapping.Code),
				goerr.V("completed", result.Len()),
			)
		}

		out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[bool] {
			return fn(ctx, mapping.RoomID, userID)
		})
		if out.IsAbsent() {
			out = model.OK(true)
		}
		result.Set(userID, out)
	}

	return result, nil
}

// RenameRoom renames the room on the platform and in the mapping
func (uc *RoomUseCase) RenameRoom(ctx context.Context, code types.RoomCode, displayName string) (*model.RoomMapping, error) {
	if displayName == "" {
		return nil, goerr.New("display name is required", goerr.V("code", code))
	}

	mapping, err := uc.activeMapping(ctx, code)
	if err != nil {
		return nil, err
	}

	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[bool] {
		return uc.rocket.RenameRoom(ctx, mapping.RoomID, displayName)
	})
	if out.IsFailed() {
		return nil, platformErr(out.Failure())
	}

	updated := mapping.Clone()
	updated.DisplayName = displayName
	stored, err := uc.repo.RoomMappings().Put(ctx, updated)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store renamed mapping", goerr.V("code", code))
	}
	return stored, nil
}

// SetTopic sets the room topic
func (uc *RoomUseCase) SetTopic(ctx context.Context, code types.RoomCode, topic string) error {
	_, err := uc.memberOp(ctx, code, func(ctx context.Context, roomID types.RoomID) model.Outcome[bool] {
		return uc.rocket.SetTopic(ctx, roomID, topic)
	})
	return err
}

// SetAnnouncement sets the room announcement
func (uc *RoomUseCase) SetAnnouncement(ctx context.Context, code types.RoomCode, announcement string) error {
	_, err := uc.memberOp(ctx, code, func(ctx context.Context, roomID types.RoomID) model.Outcome[bool] {
		return uc.rocket.SetAnnouncement(ctx, roomID, announcement)
	})
	return err
}

// SetAnnouncementMode toggles read-only posting. In announcement mode only
// owners and moderators can post.
func (uc *RoomUseCase) SetAnnouncementMode(ctx context.Context, code types.RoomCode, announceOnly bool) (*model.RoomMapping, error) {
	mapping, err := uc.activeMapping(ctx, code)
	if err != nil {
		return nil, err
	}

	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[bool] {
		return uc.rocket.SetReadOnly(ctx, mapping.RoomID, announceOnly)
	})
	if out.IsFailed() {
		return nil, platformErr(out.Failure())
	}

	updated := mapping.Clone()
	updated.ReadOnly = announceOnly
	stored, err := uc.repo.RoomMappings().Put(ctx, updated)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store announcement mode", goerr.V("code", code))
	}
	return stored, nil
}

// ArchiveRoom archives the room on the platform and marks the mapping.
// Archived is terminal: archiving again is a conflict, like any other
// mutation of an archived room.
func (uc *RoomUseCase) ArchiveRoom(ctx context.Context, code types.RoomCode) (*model.RoomMapping, error) {
	mapping, err := uc.activeMapping(ctx, code)
	if err != nil {
		return nil, err
	}

	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[bool] {
		return uc.rocket.ArchiveRoom(ctx, mapping.RoomID)
	})
	// Conflict here means the platform already has it archived
	if out.IsFailed() && out.Kind() != types.ErrKindConflict {
		return nil, platformErr(out.Failure())
	}

	updated := mapping.Clone()
	updated.Archived = true
	stored, err := uc.repo.RoomMappings().Put(ctx, updated)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store archived state", goerr.V("code", code))
	}
	return stored, nil
}

// DeleteRoom removes the room from the platform. The mapping is kept,
// marked archived, so the code stays reserved and auditable.
func (uc *RoomUseCase) DeleteRoom(ctx context.Context, code types.RoomCode) error {
	mapping, err := uc.repo.RoomMappings().GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return goerr.Wrap(ErrMappingNotFound, "no mapping for room code", goerr.V("code", code))
		}
		return goerr.Wrap(err, "failed to load room mapping", goerr.V("code", code))
	}

	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[bool] {
		return uc.rocket.DeleteRoom(ctx, mapping.RoomID)
	})
	// NotFound means the room is already gone; that is the desired state
	if out.IsFailed() && out.Kind() != types.ErrKindNotFound {
		return platformErr(out.Failure())
	}

	updated := mapping.Clone()
	updated.Archived = true
	if _, err := uc.repo.RoomMappings().Put(ctx, updated); err != nil {
		return goerr.Wrap(err, "failed to store deleted state", goerr.V("code", code))
	}
	return nil
}

// GetRoomInfo merges the stored mapping with the live platform state
func (uc *RoomUseCase) GetRoomInfo(ctx context.Context, code types.RoomCode) (*model.RoomInfo, error) {
	mapping, err := uc.repo.RoomMappings().GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, goerr.Wrap(ErrMappingNotFound, "no mapping for room code", goerr.V("code", code))
		}
		return nil, goerr.Wrap(err, "failed to load room mapping", goerr.V("code", code))
	}

	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[rocket.Room] {
		return uc.rocket.RoomInfo(ctx, mapping.RoomID)
	})
	if out.IsFailed() {
		return nil, platformErr(out.Failure())
	}
	if out.IsAbsent() {
		return nil, goerr.Wrap(ErrMappingNotFound, "mapped platform room no longer exists",
			goerr.V("code", code), goerr.V("roomID", mapping.RoomID))
	}

	room := out.Unwrap()
	return &model.RoomInfo{
		ID:           room.ID,
		Name:         mapping.DisplayName,
		Topic:        room.Topic,
		Announcement: room.Announcement,
		ReadOnly:     room.ReadOnly,
		Archived:     room.Archived,
		MemberCount:  room.MemberCount,
	}, nil
}

// GetRoomMembers lists the room's current members from the platform
func (uc *RoomUseCase) GetRoomMembers(ctx context.Context, code types.RoomCode) ([]model.RoomMember, error) {
	mapping, err := uc.activeMapping(ctx, code)
	if err != nil {
		return nil, err
	}

	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[[]model.RoomMember] {
		return uc.rocket.RoomMembers(ctx, mapping.RoomID)
	})
	if out.IsFailed() {
		return nil, platformErr(out.Failure())
	}
	if out.IsAbsent() {
		return nil, goerr.Wrap(ErrMappingNotFound, "mapped platform room no longer exists",
			goerr.V("code", code), goerr.V("roomID", mapping.RoomID))
	}
	return out.Unwrap(), nil
}

// ListMappings returns every stored room mapping
func (uc *RoomUseCase) ListMappings(ctx context.Context) ([]*model.RoomMapping, error) {
	mappings, err := uc.repo.RoomMappings().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list room mappings")
	}
	return mappings, nil
}

// SendMessage posts a message to the mapped room
func (uc *RoomUseCase) SendMessage(ctx context.Context, code types.RoomCode, text, alias string, threadID types.MessageID) (types.MessageID, error) {
	mapping, err := uc.activeMapping(ctx, code)
	if err != nil {
		return "", err
	}

	req := &model.PostMessageRequest{
		RoomID:   mapping.RoomID,
		Text:     text,
		Alias:    alias,
		ThreadID: threadID,
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	// Posting is not retried: a send that failed mid-flight may still have
	// landed, and a second attempt would duplicate it
	out := uc.rocket.PostMessage(ctx, req)
	if out.IsFailed() {
		return "", platformErr(out.Failure())
	}
	return out.Unwrap(), nil
}

// SendDirectMessage opens (or reuses) a direct-message room with the user
// and posts into it
func (uc *RoomUseCase) SendDirectMessage(ctx context.Context, username, text string) (types.MessageID, error) {
	if username == "" || text == "" {
		return "", goerr.New("username and text are required")
	}

	created := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[types.RoomID] {
		return uc.rocket.CreateDirectMessage(ctx, username)
	})
	if created.IsFailed() {
		return "", platformErr(created.Failure())
	}
	if created.IsAbsent() {
		return "", goerr.Wrap(ErrMappingNotFound, "direct message target does not exist",
			goerr.V("username", username))
	}

	req := &model.PostMessageRequest{RoomID: created.Unwrap(), Text: text}
	// Same as SendMessage: posting is not retried
	out := uc.rocket.PostMessage(ctx, req)
	if out.IsFailed() {
		return "", platformErr(out.Failure())
	}
	return out.Unwrap(), nil
}

// GetRoomMessages reads recent messages from the mapped room
func (uc *RoomUseCase) GetRoomMessages(ctx context.Context, code types.RoomCode, count, offset int) ([]model.Message, error) {
	mapping, err := uc.repo.RoomMappings().GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, goerr.Wrap(ErrMappingNotFound, "no mapping for room code", goerr.V("code", code))
		}
		return nil, goerr.Wrap(err, "failed to load room mapping", goerr.V("code", code))
	}

	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[[]model.Message] {
		return uc.rocket.RoomMessages(ctx, mapping.RoomID, count, offset)
	})
	if out.IsFailed() {
		return nil, platformErr(out.Failure())
	}
	if out.IsAbsent() {
		return nil, goerr.Wrap(ErrMappingNotFound, "mapped platform room no longer exists",
			goerr.V("code", code), goerr.V("roomID", mapping.RoomID))
	}
	return out.Unwrap(), nil
}

// GetMessage reads a single message
func (uc *RoomUseCase) GetMessage(ctx context.Context, id types.MessageID) (*model.Message, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[model.Message] {
		return uc.rocket.GetMessage(ctx, id)
	})
	if out.IsFailed() {
		return nil, platformErr(out.Failure())
	}
	if out.IsAbsent() {
		return nil, goerr.Wrap(ErrMappingNotFound, "message not found", goerr.V("messageID", id))
	}

	msg := out.Unwrap()
	return &msg, nil
}

// DeleteMessage removes a message from the mapped room. A message that is
// already gone reports success.
func (uc *RoomUseCase) DeleteMessage(ctx context.Context, code types.RoomCode, id types.MessageID) (bool, error) {
	if err := id.Validate(); err != nil {
		return false, err
	}

	mapping, err := uc.activeMapping(ctx, code)
	if err != nil {
		return false, err
	}

	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[bool] {
		return uc.rocket.DeleteMessage(ctx, mapping.RoomID, id)
	})
	if out.IsFailed() {
		return false, platformErr(out.Failure())
	}
	return true, nil
}

// GetThreadMessages reads a message thread
func (uc *RoomUseCase) GetThreadMessages(ctx context.Context, threadID types.MessageID) ([]model.Message, error) {
	if err := threadID.Validate(); err != nil {
		return nil, err
	}

	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[[]model.Message] {
		return uc.rocket.ThreadMessages(ctx, threadID)
	})
	if out.IsFailed() {
		return nil, platformErr(out.Failure())
	}
	if out.IsAbsent() {
		return []model.Message{}, nil
	}
	return out.Unwrap(), nil
}

// UploadFile streams a file into the mapped room
func (uc *RoomUseCase) UploadFile(ctx context.Context, code types.RoomCode, fileName, description string, content io.Reader) (types.MessageID, error) {
	mapping, err := uc.activeMapping(ctx, code)
	if err != nil {
		return "", err
	}

	req := &model.UploadFileRequest{
		RoomID:      mapping.RoomID,
		FileName:    fileName,
		Description: description,
		Content:     content,
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	// Uploads are not retried: the reader is consumed by the first attempt
	out := uc.rocket.UploadFile(ctx, req)
	if out.IsFailed() {
		return "", platformErr(out.Failure())
	}
	return out.Unwrap(), nil
}
