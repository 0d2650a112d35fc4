package memory

import (
	"context"
	"sync"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type roomMappingRepository struct {
	mu       sync.RWMutex
	mappings map[types.RoomCode]*model.RoomMapping
}

func newRoomMappingRepository() *roomMappingRepository {
	return &roomMappingRepository{
		mappings: make(map[types.RoomCode]*model.RoomMapping),
	}
}

// GetByCode retrieves a mapping by room code
func (r *roomMappingRepository) GetByCode(ctx context.Context, code types.RoomCode) (*model.RoomMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mappings[code]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "room mapping not found", goerr.V("code", code))
	}

	return m.Clone(), nil
}

// GetByRoomID retrieves a mapping by Rocket.Chat room ID
func (r *roomMappingRepository) GetByRoomID(ctx context.Context, id types.RoomID) (*model.RoomMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.mappings {
		if m.RoomID == id {
			return m.Clone(), nil
		}
	}

	return nil, goerr.Wrap(ErrNotFound, "room mapping not found", goerr.V("roomID", id))
}

// Put upserts a mapping with compare-and-set on Revision
func (r *roomMappingRepository) Put(ctx context.Context, mapping *model.RoomMapping) (*model.RoomMapping, error) {
	if err := mapping.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid room mapping")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.mappings[mapping.Code]
	if exists {
		if current.Revision != mapping.Revision {
			return nil, goerr.Wrap(ErrRevisionMismatch, "room mapping was updated concurrently",
				goerr.V("code", mapping.Code),
				goerr.V("want", mapping.Revision),
				goerr.V("have", current.Revision),
			)
		}
	} else if mapping.Revision != 0 {
		return nil, goerr.Wrap(ErrRevisionMismatch, "room mapping does not exist",
			goerr.V("code", mapping.Code),
			goerr.V("want", mapping.Revision),
		)
	}

	// One room code per external room ID
	for _, m := range r.mappings {
		if m.Code != mapping.Code && m.RoomID == mapping.RoomID {
			return nil, goerr.Wrap(ErrDuplicateExternalID, "rocket room already mapped",
				goerr.V("roomID", mapping.RoomID),
				goerr.V("mappedTo", m.Code),
			)
		}
	}

	stored := mapping.Clone()
	stored.Revision++
	r.mappings[mapping.Code] = stored

	return stored.Clone(), nil
}

// List retrieves all room mappings
func (r *roomMappingRepository) List(ctx context.Context) ([]*model.RoomMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.RoomMapping, 0, len(r.mappings))
	for _, m := range r.mappings {
		out = append(out, m.Clone())
	}

	return out, nil
}
