package interfaces

import (
	"context"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
)

// Repository defines the interface for durable mapping persistence
type Repository interface {
	UserMappings() UserMappingRepository
	RoomMappings() RoomMappingRepository
	Close() error
}

// UserMappingRepository persists internal-user ↔ Rocket.Chat user mappings.
// Lookups return an error wrapping the implementation's ErrNotFound when no
// live mapping exists.
type UserMappingRepository interface {
	GetByInternalID(ctx context.Context, id types.InternalUserID) (*model.UserMapping, error)
	GetByRocketID(ctx context.Context, id types.RocketUserID) (*model.UserMapping, error)
	GetByUsername(ctx context.Context, username string) (*model.UserMapping, error)

	// Put upserts a mapping with compare-and-set semantics: the write is
	// rejected with ErrRevisionMismatch when the stored revision differs
	// from mapping.Revision. The returned copy carries the new revision.
	Put(ctx context.Context, mapping *model.UserMapping) (*model.UserMapping, error)

	// SoftDelete marks the mapping deleted; the record is never removed
	SoftDelete(ctx context.Context, id types.InternalUserID) error

	List(ctx context.Context) ([]*model.UserMapping, error)

	GetMetadata(ctx context.Context) (*model.UserMappingMetadata, error)
	SaveMetadata(ctx context.Context, metadata *model.UserMappingMetadata) error
}

// RoomMappingRepository persists room-code ↔ Rocket.Chat room mappings
type RoomMappingRepository interface {
	GetByCode(ctx context.Context, code types.RoomCode) (*model.RoomMapping, error)
	GetByRoomID(ctx context.Context, id types.RoomID) (*model.RoomMapping, error)

	// Put upserts a mapping with compare-and-set semantics, as in
	// UserMappingRepository.Put
	Put(ctx context.Context, mapping *model.RoomMapping) (*model.RoomMapping, error)

	List(ctx context.Context) ([]*model.RoomMapping, error)
}
