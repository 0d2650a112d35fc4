package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/interfaces"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/Quangdung1996/chat-sub001/pkg/repository"
	"github.com/Quangdung1996/chat-sub001/pkg/service/rocket"
	"github.com/Quangdung1996/chat-sub001/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// IdentityUseCase orchestrates internal-user to Rocket.Chat identity
// mappings. All operations are idempotent: repeating a call converges on
// the same mapping instead of creating duplicates.
type IdentityUseCase struct {
	repo   interfaces.Repository
	rocket rocket.Service
	retry  retryPolicy
}

func NewIdentityUseCase(repo interfaces.Repository, rocketSvc rocket.Service, retry retryPolicy) *IdentityUseCase {
	return &IdentityUseCase{
		repo:   repo,
		rocket: rocketSvc,
		retry:  retry,
	}
}

// SyncUser ensures the internal user has a live Rocket.Chat counterpart and
// a durable mapping to it. An existing mapping is verified against the
// platform and refreshed; a ghost mapping (external user vanished) is
// re-provisioned; a username collision with an unmapped external user adopts
// that user rather than failing.
func (uc *IdentityUseCase) SyncUser(ctx context.Context, req *model.SyncUserRequest) (*model.UserMapping, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := uc.repo.UserMappings().GetByInternalID(ctx, req.InternalID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, goerr.Wrap(err, "failed to load user mapping", goerr.V("internalID", req.InternalID))
	}

	if existing != nil && !existing.Deleted {
		return uc.refreshMapping(ctx, existing, req)
	}

	user, err := uc.resolveExternalUser(ctx, req)
	if err != nil {
		return nil, err
	}

	mapping := model.NewUserMapping(req.InternalID, user.ID, user.Username, req.FullName, req.Email)
	if existing != nil {
		// Returning user: revive the soft-deleted record under its
		// stored revision
		mapping = existing.Clone()
		mapping.RocketID = user.ID
		mapping.Deleted = false
		mapping.Active = true
		mapping.Touch(user.Username, req.FullName, req.Email)
	}

	return uc.putMapping(ctx, mapping, req)
}

// refreshMapping re-verifies a live mapping against the platform and brings
// the stored profile fields up to date
func (uc *IdentityUseCase) refreshMapping(ctx context.Context, mapping *model.UserMapping, req *model.SyncUserRequest) (*model.UserMapping, error) {
	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[rocket.User] {
		return uc.rocket.GetUserInfo(ctx, mapping.RocketID)
	})

	switch {
	case out.IsFailed():
		return nil, platformErr(out.Failure())

	case out.IsAbsent():
		// The external user vanished underneath the mapping. Provision a
		// replacement and rebind.
		logging.From(ctx).Warn("mapped platform user no longer exists, re-provisioning",
			"internalID", mapping.InternalID, "rocketID", mapping.RocketID)

		user, err := uc.resolveExternalUser(ctx, req)
		if err != nil {
			return nil, err
		}
		updated := mapping.Clone()
		updated.RocketID = user.ID
		updated.Active = true
		updated.Touch(user.Username, req.FullName, req.Email)
		return uc.putMapping(ctx, updated, req)
	}

	updated := mapping.Clone()
	updated.Touch(out.Unwrap().Username, req.FullName, req.Email)
	return uc.putMapping(ctx, updated, req)
}

// resolveExternalUser creates the platform user, or adopts an existing one
// when the username is already taken. Adoption is refused when the
// discovered user is already bound to a different live internal record.
func (uc *IdentityUseCase) resolveExternalUser(ctx context.Context, req *model.SyncUserRequest) (rocket.User, error) {
	created := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[rocket.User] {
		return uc.rocket.CreateUser(ctx, rocket.CreateUserRequest{
			Username: req.Username,
			Name:     req.FullName,
			Email:    req.Email,
		})
	})
	if created.IsOK() {
		return created.Unwrap(), nil
	}
	if created.Kind() != types.ErrKindConflict {
		return rocket.User{}, platformErr(created.Failure())
	}

	// Username collision: find who holds it
	found := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[rocket.User] {
		return uc.rocket.GetUserByUsername(ctx, req.Username)
	})
	if found.IsFailed() {
		return rocket.User{}, platformErr(found.Failure())
	}
	if found.IsAbsent() {
		return rocket.User{}, goerr.Wrap(created.Err(), "username reported taken but holder not found",
			goerr.V("username", req.Username))
	}

	user := found.Unwrap()
	bound, err := uc.repo.UserMappings().GetByRocketID(ctx, user.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return rocket.User{}, goerr.Wrap(err, "failed to check existing binding", goerr.V("rocketID", user.ID))
	}
	if bound != nil && bound.InternalID != req.InternalID {
		return rocket.User{}, goerr.Wrap(ErrMappingConflict, "username is held by another mapped user",
			goerr.V("username", req.Username),
			goerr.V("rocketID", user.ID),
			goerr.V("boundInternalID", bound.InternalID),
		)
	}

	return user, nil
}

// putMapping writes the mapping with compare-and-set. A lost race means a
// concurrent SyncUser for the same key finished first; the write is retried
// on top of the winner's record.
func (uc *IdentityUseCase) putMapping(ctx context.Context, mapping *model.UserMapping, req *model.SyncUserRequest) (*model.UserMapping, error) {
	var lastErr error
	for i := 0; i < casAttempts; i++ {
		stored, err := uc.repo.UserMappings().Put(ctx, mapping)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, repository.ErrRevisionMismatch) {
			return nil, goerr.Wrap(err, "failed to store user mapping", goerr.V("internalID", mapping.InternalID))
		}
		lastErr = err

		current, err := uc.repo.UserMappings().GetByInternalID(ctx, mapping.InternalID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to reload user mapping after write race",
				goerr.V("internalID", mapping.InternalID))
		}
		next := current.Clone()
		next.RocketID = mapping.RocketID
		next.Deleted = false
		next.Active = mapping.Active
		next.Touch(mapping.Username, req.FullName, req.Email)
		mapping = next
	}
	return nil, goerr.Wrap(lastErr, "user mapping write kept racing", goerr.V("internalID", mapping.InternalID))
}

// UserExists reports whether a platform user with the username exists.
// Platform absence is an answer, not an error.
func (uc *IdentityUseCase) UserExists(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, goerr.New("username is required")
	}

	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[rocket.User] {
		return uc.rocket.GetUserByUsername(ctx, username)
	})
	if out.IsFailed() {
		return false, platformErr(out.Failure())
	}
	return out.IsOK(), nil
}

// SetUserActiveStatus toggles the platform account and mirrors the state
// into the mapping
func (uc *IdentityUseCase) SetUserActiveStatus(ctx context.Context, internalID types.InternalUserID, active bool) (*model.UserMapping, error) {
	mapping, err := uc.repo.UserMappings().GetByInternalID(ctx, internalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, goerr.Wrap(ErrMappingNotFound, "no mapping for internal user", goerr.V("internalID", internalID))
		}
		return nil, goerr.Wrap(err, "failed to load user mapping", goerr.V("internalID", internalID))
	}
	if mapping.Deleted {
		return nil, goerr.Wrap(ErrMappingNotFound, "mapping is deleted", goerr.V("internalID", internalID))
	}

	out := callWithRetry(ctx, uc.retry, func(ctx context.Context) model.Outcome[bool] {
		return uc.rocket.SetUserActiveStatus(ctx, mapping.RocketID, active)
	})
	if out.IsFailed() {
		return nil, platformErr(out.Failure())
	}

	updated := mapping.Clone()
	updated.Active = active
	updated.LastSyncAt = time.Now().UTC()
	stored, err := uc.repo.UserMappings().Put(ctx, updated)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store active status", goerr.V("internalID", internalID))
	}
	return stored, nil
}

// DeactivateUser disables the platform account and soft-deletes the
// mapping. The record stays for audit and revival.
func (uc *IdentityUseCase) DeactivateUser(ctx context.Context, internalID types.InternalUserID) error {
	if _, err := uc.SetUserActiveStatus(ctx, internalID, false); err != nil {
		return err
	}
	if err := uc.repo.UserMappings().SoftDelete(ctx, internalID); err != nil {
		return goerr.Wrap(err, "failed to soft-delete user mapping", goerr.V("internalID", internalID))
	}
	return nil
}

// GetMappingByInternalID returns the mapping for an internal user
func (uc *IdentityUseCase) GetMappingByInternalID(ctx context.Context, internalID types.InternalUserID) (*model.UserMapping, error) {
	mapping, err := uc.repo.UserMappings().GetByInternalID(ctx, internalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, goerr.Wrap(ErrMappingNotFound, "no mapping for internal user", goerr.V("internalID", internalID))
		}
		return nil, goerr.Wrap(err, "failed to load user mapping", goerr.V("internalID", internalID))
	}
	return mapping, nil
}

// GetMappingByRocketID returns the mapping holding a Rocket.Chat user ID
func (uc *IdentityUseCase) GetMappingByRocketID(ctx context.Context, rocketID types.RocketUserID) (*model.UserMapping, error) {
	mapping, err := uc.repo.UserMappings().GetByRocketID(ctx, rocketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, goerr.Wrap(ErrMappingNotFound, "no mapping for rocket user", goerr.V("rocketID", rocketID))
		}
		return nil, goerr.Wrap(err, "failed to load user mapping", goerr.V("rocketID", rocketID))
	}
	return mapping, nil
}

// ListMappings returns every stored mapping, soft-deleted ones included
func (uc *IdentityUseCase) ListMappings(ctx context.Context) ([]*model.UserMapping, error) {
	mappings, err := uc.repo.UserMappings().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list user mappings")
	}
	return mappings, nil
}

// RefreshAllMappings re-verifies every live mapping against the platform.
// Per-mapping failures are logged and skipped so one bad record does not
// stall the sweep. Returns the number of refreshed mappings.
func (uc *IdentityUseCase) RefreshAllMappings(ctx context.Context) (int, error) {
	meta, err := uc.repo.UserMappings().GetMetadata(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return 0, goerr.Wrap(err, "failed to load resync metadata")
	}
	if meta == nil {
		meta = &model.UserMappingMetadata{}
	}
	meta.LastRefreshAttempt = time.Now().UTC()

	mappings, err := uc.repo.UserMappings().List(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list user mappings for refresh")
	}

	logger := logging.From(ctx)
	var refreshed int
	for _, m := range mappings {
		if m.Deleted {
			continue
		}
		if err := ctx.Err(); err != nil {
			return refreshed, goerr.Wrap(err, "refresh canceled", goerr.V("refreshed", refreshed))
		}

		req := &model.SyncUserRequest{
			InternalID: m.InternalID,
			Username:   m.Username,
			FullName:   m.FullName,
			Email:      m.Email,
		}
		if _, err := uc.SyncUser(ctx, req); err != nil {
			logger.Warn("mapping refresh failed, skipping",
				"internalID", m.InternalID, "error", err)
			continue
		}
		refreshed++
	}

	meta.LastRefreshSuccess = time.Now().UTC()
	meta.MappingCount = refreshed
	if err := uc.repo.UserMappings().SaveMetadata(ctx, meta); err != nil {
		return refreshed, goerr.Wrap(err, "failed to save resync metadata")
	}

	return refreshed, nil
}
