package model

import (
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// UserMapping links an internal user to its Rocket.Chat counterpart.
// Mappings are created on first successful sync, mutated by later syncs
// and never physically deleted, only soft-deleted.
type UserMapping struct {
	InternalID types.InternalUserID
	RocketID   types.RocketUserID
	Username   string
	FullName   string
	Email      string
	Active     bool
	Deleted    bool
	CreatedAt  time.Time
	LastSyncAt time.Time
	Metadata   map[string]string

	// Revision is bumped on every Put; repositories reject a Put whose
	// revision does not match the stored one (compare-and-set).
	Revision int64
}

// NewUserMapping creates a mapping for a freshly confirmed external identity
func NewUserMapping(internalID types.InternalUserID, rocketID types.RocketUserID, username, fullName, email string) *UserMapping {
	now := time.Now().UTC()
	return &UserMapping{
		InternalID: internalID,
		RocketID:   rocketID,
		Username:   username,
		FullName:   fullName,
		Email:      email,
		Active:     true,
		CreatedAt:  now,
		LastSyncAt: now,
	}
}

// Validate checks if the UserMapping is consistent
func (x *UserMapping) Validate() error {
	if err := x.InternalID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid internal user ID")
	}
	if err := x.RocketID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid rocket user ID")
	}
	if x.Username == "" {
		return goerr.New("username cannot be empty", goerr.V("internalID", x.InternalID))
	}
	return nil
}

// Clone returns a deep copy to prevent external modifications
func (x *UserMapping) Clone() *UserMapping {
	copied := *x
	if x.Metadata != nil {
		copied.Metadata = make(map[string]string, len(x.Metadata))
		for k, v := range x.Metadata {
			copied.Metadata[k] = v
		}
	}
	return &copied
}

// Touch refreshes the externally synced fields and bumps the sync timestamp
func (x *UserMapping) Touch(username, fullName, email string) {
	x.Username = username
	x.FullName = fullName
	x.Email = email
	x.LastSyncAt = time.Now().UTC()
}

// UserMappingMetadata tracks the health of the periodic mapping resync
type UserMappingMetadata struct {
	LastRefreshSuccess time.Time
	LastRefreshAttempt time.Time
	MappingCount       int
}
