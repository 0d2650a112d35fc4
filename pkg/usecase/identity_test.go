package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/interfaces"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/Quangdung1996/chat-sub001/pkg/repository/memory"
	"github.com/Quangdung1996/chat-sub001/pkg/usecase"
	"github.com/m-mizutani/gt"
)

// contendedRepo slips a rival write for the same internal user under the
// first Put, so the caller's revision goes stale and its write loses the
// race.
type contendedRepo struct {
	interfaces.Repository
	once sync.Once
}

func (r *contendedRepo) UserMappings() interfaces.UserMappingRepository {
	return &contendedUserMappings{
		UserMappingRepository: r.Repository.UserMappings(),
		parent:                r,
	}
}

type contendedUserMappings struct {
	interfaces.UserMappingRepository
	parent *contendedRepo
}

func (r *contendedUserMappings) Put(ctx context.Context, mapping *model.UserMapping) (*model.UserMapping, error) {
	r.parent.once.Do(func() {
		rival := mapping.Clone()
		rival.FullName = "Rival Writer"
		_, _ = r.UserMappingRepository.Put(ctx, rival)
	})
	return r.UserMappingRepository.Put(ctx, mapping)
}

func newTestUseCases(rocketSvc *fakeRocket) *usecase.UseCases {
	return usecase.New(memory.New(), rocketSvc,
		usecase.WithRetry(2, time.Millisecond),
		usecase.WithBulkRate(time.Microsecond, 1),
	)
}

func TestSyncUser(t *testing.T) {
	ctx := context.Background()

	t.Run("first sync provisions user and mapping", func(t *testing.T) {
		platform := newFakeRocket()
		uc := newTestUseCases(platform)

		mapping, err := uc.Identity.SyncUser(ctx, &model.SyncUserRequest{
			InternalID: 42,
			Username:   "alice",
			FullName:   "Alice A",
			Email:      "alice@example.com",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, mapping.InternalID).Equal(types.InternalUserID(42))
		gt.Value(t, mapping.Username).Equal("alice")
		gt.True(t, mapping.Active)
		gt.Equal(t, platform.createUserCalls, 1)
	})

	t.Run("repeated sync reuses the mapping", func(t *testing.T) {
		platform := newFakeRocket()
		uc := newTestUseCases(platform)

		req := &model.SyncUserRequest{InternalID: 42, Username: "alice", FullName: "Alice A", Email: "alice@example.com"}
		first, err := uc.Identity.SyncUser(ctx, req)
		gt.NoError(t, err).Required()

		second, err := uc.Identity.SyncUser(ctx, req)
		gt.NoError(t, err).Required()

		gt.Value(t, second.RocketID).Equal(first.RocketID)
		gt.Equal(t, platform.createUserCalls, 1)
	})

	t.Run("sync refreshes changed profile fields", func(t *testing.T) {
		platform := newFakeRocket()
		uc := newTestUseCases(platform)

		req := &model.SyncUserRequest{InternalID: 42, Username: "alice", FullName: "Alice A", Email: "alice@example.com"}
		_, err := uc.Identity.SyncUser(ctx, req)
		gt.NoError(t, err).Required()

		req.FullName = "Alice B"
		req.Email = "alice.b@example.com"
		updated, err := uc.Identity.SyncUser(ctx, req)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.FullName).Equal("Alice B")
		gt.Value(t, updated.Email).Equal("alice.b@example.com")
	})

	t.Run("username collision adopts the unmapped holder", func(t *testing.T) {
		platform := newFakeRocket()
		uc := newTestUseCases(platform)

		// The username exists on the platform with no mapping behind it
		ghost := platform.addUser("bob", "Bob B", "bob@example.com")

		mapping, err := uc.Identity.SyncUser(ctx, &model.SyncUserRequest{
			InternalID: 7, Username: "bob", FullName: "Bob B", Email: "bob@example.com",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, mapping.RocketID).Equal(ghost.ID)
	})

	t.Run("username collision with a mapped user is refused", func(t *testing.T) {
		platform := newFakeRocket()
		uc := newTestUseCases(platform)

		_, err := uc.Identity.SyncUser(ctx, &model.SyncUserRequest{
			InternalID: 7, Username: "carol", FullName: "Carol C", Email: "carol@example.com",
		})
		gt.NoError(t, err).Required()

		_, err = uc.Identity.SyncUser(ctx, &model.SyncUserRequest{
			InternalID: 8, Username: "carol", FullName: "Carol Imposter", Email: "other@example.com",
		})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, usecase.ErrMappingConflict))
	})

	t.Run("vanished platform user is re-provisioned", func(t *testing.T) {
		platform := newFakeRocket()
		uc := newTestUseCases(platform)

		req := &model.SyncUserRequest{InternalID: 42, Username: "dave", FullName: "Dave D", Email: "dave@example.com"}
		first, err := uc.Identity.SyncUser(ctx, req)
		gt.NoError(t, err).Required()

		// Simulate out-of-band deletion on the platform
		platform.mu.Lock()
		delete(platform.users, "dave")
		platform.mu.Unlock()

		second, err := uc.Identity.SyncUser(ctx, req)
		gt.NoError(t, err).Required()
		gt.Value(t, second.RocketID).NotEqual(first.RocketID)
		gt.Equal(t, platform.createUserCalls, 2)
	})

	t.Run("retryable failure is retried", func(t *testing.T) {
		platform := newFakeRocket()
		uc := newTestUseCases(platform)

		platform.failOnce("CreateUser", types.ErrKindUpstreamError, true)
		mapping, err := uc.Identity.SyncUser(ctx, &model.SyncUserRequest{
			InternalID: 42, Username: "erin", FullName: "Erin E", Email: "erin@example.com",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, mapping.Username).Equal("erin")
		gt.Equal(t, platform.createUserCalls, 2)
	})

	t.Run("non-retryable failure surfaces the platform error", func(t *testing.T) {
		platform := newFakeRocket()
		uc := newTestUseCases(platform)

		platform.failOnce("CreateUser", types.ErrKindUpstreamError, false)
		_, err := uc.Identity.SyncUser(ctx, &model.SyncUserRequest{
			InternalID: 42, Username: "frank", FullName: "Frank F", Email: "frank@example.com",
		})
		gt.Error(t, err)
		pe, ok := usecase.AsPlatformError(err)
		gt.True(t, ok)
		gt.Value(t, pe.Failure.Kind).Equal(types.ErrKindUpstreamError)
		gt.Equal(t, platform.createUserCalls, 1)
	})

	t.Run("lost write race converges on one external user", func(t *testing.T) {
		platform := newFakeRocket()
		uc := usecase.New(&contendedRepo{Repository: memory.New()}, platform,
			usecase.WithRetry(2, time.Millisecond),
			usecase.WithBulkRate(time.Microsecond, 1),
		)

		mapping, err := uc.Identity.SyncUser(ctx, &model.SyncUserRequest{
			InternalID: 42, Username: "alice", FullName: "Alice A", Email: "alice@example.com",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, mapping.FullName).Equal("Alice A")
		gt.Equal(t, platform.createUserCalls, 1)

		// The retry landed on top of the rival's revision
		gt.Value(t, mapping.Revision).Equal(int64(2))

		stored, err := uc.Identity.GetMappingByInternalID(ctx, 42)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.FullName).Equal("Alice A")
		gt.Value(t, stored.RocketID).Equal(mapping.RocketID)
	})

	t.Run("invalid request is rejected before any call", func(t *testing.T) {
		platform := newFakeRocket()
		uc := newTestUseCases(platform)

		_, err := uc.Identity.SyncUser(ctx, &model.SyncUserRequest{InternalID: 42})
		gt.Error(t, err)
		gt.Equal(t, platform.createUserCalls, 0)
	})
}

func TestUserExists(t *testing.T) {
	ctx := context.Background()

	t.Run("existing user", func(t *testing.T) {
		platform := newFakeRocket()
		platform.addUser("alice", "Alice A", "alice@example.com")
		uc := newTestUseCases(platform)

		exists, err := uc.Identity.UserExists(ctx, "alice")
		gt.NoError(t, err).Required()
		gt.True(t, exists)
	})

	t.Run("missing user is an answer, not an error", func(t *testing.T) {
		uc := newTestUseCases(newFakeRocket())

		exists, err := uc.Identity.UserExists(ctx, "nobody")
		gt.NoError(t, err).Required()
		gt.False(t, exists)
	})

	t.Run("platform failure is an error", func(t *testing.T) {
		platform := newFakeRocket()
		uc := newTestUseCases(platform)

		platform.failOnce("GetUserByUsername", types.ErrKindAuthFailure, false)
		_, err := uc.Identity.UserExists(ctx, "alice")
		gt.Error(t, err)
	})
}

func TestDeactivateUser(t *testing.T) {
	ctx := context.Background()
	platform := newFakeRocket()
	uc := newTestUseCases(platform)

	req := &model.SyncUserRequest{InternalID: 42, Username: "alice", FullName: "Alice A", Email: "alice@example.com"}
	_, err := uc.Identity.SyncUser(ctx, req)
	gt.NoError(t, err).Required()

	gt.NoError(t, uc.Identity.DeactivateUser(ctx, 42))

	mapping, err := uc.Identity.GetMappingByInternalID(ctx, 42)
	gt.NoError(t, err).Required()
	gt.True(t, mapping.Deleted)
	gt.False(t, mapping.Active)

	// A later sync revives the record
	revived, err := uc.Identity.SyncUser(ctx, req)
	gt.NoError(t, err).Required()
	gt.False(t, revived.Deleted)
	gt.True(t, revived.Active)
}

func TestRefreshAllMappings(t *testing.T) {
	ctx := context.Background()
	platform := newFakeRocket()
	uc := newTestUseCases(platform)

	for _, u := range []struct {
		id       types.InternalUserID
		username string
	}{{1, "alice"}, {2, "bob"}, {3, "carol"}} {
		_, err := uc.Identity.SyncUser(ctx, &model.SyncUserRequest{
			InternalID: u.id, Username: u.username, FullName: u.username, Email: u.username + "@example.com",
		})
		gt.NoError(t, err).Required()
	}
	gt.NoError(t, uc.Identity.DeactivateUser(ctx, 3))

	refreshed, err := uc.Identity.RefreshAllMappings(ctx)
	gt.NoError(t, err).Required()
	gt.Equal(t, refreshed, 2)
}
