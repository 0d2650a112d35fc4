package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type userMappingRepository struct {
	mu       sync.RWMutex
	mappings map[types.InternalUserID]*model.UserMapping
	metadata *model.UserMappingMetadata
}

func newUserMappingRepository() *userMappingRepository {
	return &userMappingRepository{
		mappings: make(map[types.InternalUserID]*model.UserMapping),
		metadata: &model.UserMappingMetadata{},
	}
}

// GetByInternalID retrieves a mapping by internal user ID, including
// soft-deleted records. Callers check the Deleted flag.
func (r *userMappingRepository) GetByInternalID(ctx context.Context, id types.InternalUserID) (*model.UserMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mappings[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "user mapping not found", goerr.V("internalID", id))
	}

	return m.Clone(), nil
}

// GetByRocketID retrieves a live (non-deleted) mapping by Rocket.Chat user ID
func (r *userMappingRepository) GetByRocketID(ctx context.Context, id types.RocketUserID) (*model.UserMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.mappings {
		if m.RocketID == id && !m.Deleted {
			return m.Clone(), nil
		}
	}

	return nil, goerr.Wrap(ErrNotFound, "user mapping not found", goerr.V("rocketID", id))
}

// GetByUsername retrieves a live (non-deleted) mapping by external username
func (r *userMappingRepository) GetByUsername(ctx context.Context, username string) (*model.UserMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.mappings {
		if m.Username == username && !m.Deleted {
			return m.Clone(), nil
		}
	}

	return nil, goerr.Wrap(ErrNotFound, "user mapping not found", goerr.V("username", username))
}

// Put upserts a mapping with compare-and-set on Revision
func (r *userMappingRepository) Put(ctx context.Context, mapping *model.UserMapping) (*model.UserMapping, error) {
	if err := mapping.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid user mapping")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.mappings[mapping.InternalID]
	if exists {
		if current.Revision != mapping.Revision {
			return nil, goerr.Wrap(ErrRevisionMismatch, "user mapping was updated concurrently",
				goerr.V("internalID", mapping.InternalID),
				goerr.V("want", mapping.Revision),
				goerr.V("have", current.Revision),
			)
		}
	} else if mapping.Revision != 0 {
		return nil, goerr.Wrap(ErrRevisionMismatch, "user mapping does not exist",
			goerr.V("internalID", mapping.InternalID),
			goerr.V("want", mapping.Revision),
		)
	}

	// One live mapping per external user ID
	if !mapping.Deleted {
		for _, m := range r.mappings {
			if m.InternalID != mapping.InternalID && m.RocketID == mapping.RocketID && !m.Deleted {
				return nil, goerr.Wrap(ErrDuplicateExternalID, "rocket user already mapped",
					goerr.V("rocketID", mapping.RocketID),
					goerr.V("mappedTo", m.InternalID),
				)
			}
		}
	}

	stored := mapping.Clone()
	stored.Revision++
	r.mappings[mapping.InternalID] = stored

	return stored.Clone(), nil
}

// SoftDelete marks a mapping deleted; the record is kept
func (r *userMappingRepository) SoftDelete(ctx context.Context, id types.InternalUserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mappings[id]
	if !ok {
		return goerr.Wrap(ErrNotFound, "user mapping not found", goerr.V("internalID", id))
	}

	m.Deleted = true
	m.Active = false
	m.LastSyncAt = time.Now().UTC()
	m.Revision++
	return nil
}

// List retrieves all mappings, soft-deleted included
func (r *userMappingRepository) List(ctx context.Context) ([]*model.UserMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.UserMapping, 0, len(r.mappings))
	for _, m := range r.mappings {
		out = append(out, m.Clone())
	}

	return out, nil
}

// GetMetadata retrieves resync metadata
func (r *userMappingRepository) GetMetadata(ctx context.Context) (*model.UserMappingMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadataCopy := *r.metadata
	return &metadataCopy, nil
}

// SaveMetadata saves resync metadata
func (r *userMappingRepository) SaveMetadata(ctx context.Context, metadata *model.UserMappingMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	metadataCopy := *metadata
	r.metadata = &metadataCopy
	return nil
}
