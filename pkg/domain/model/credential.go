package model

import (
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Credential is a token + user-id pair attached to platform requests
type Credential struct {
	Token  string `masq:"secret"`
	UserID types.RocketUserID
	Owner  types.OwnerClass
}

// Validate checks if the Credential is complete
func (x Credential) Validate() error {
	if x.Token == "" {
		return goerr.New("credential token cannot be empty")
	}
	if err := x.UserID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid credential user ID")
	}
	if !x.Owner.IsValid() {
		return goerr.New("invalid credential owner class", goerr.V("owner", x.Owner))
	}
	return nil
}

// TokenEntry is an immutable cached credential. Refresh creates a new entry,
// it never mutates one in place.
type TokenEntry struct {
	Credential Credential
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// NewTokenEntry creates a token entry valid for ttl from issuedAt
func NewTokenEntry(cred Credential, issuedAt time.Time, ttl time.Duration) TokenEntry {
	return TokenEntry{
		Credential: cred,
		IssuedAt:   issuedAt,
		ExpiresAt:  issuedAt.Add(ttl),
	}
}

// Live reports whether the entry is still usable at now, applying the
// safety margin so a token is refreshed before it actually expires.
func (x TokenEntry) Live(now time.Time, margin time.Duration) bool {
	return now.Add(margin).Before(x.ExpiresAt)
}
