package rocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Quangdung1996/chat-sub001/pkg/domain/model"
	"github.com/Quangdung1996/chat-sub001/pkg/domain/types"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTokenTTL matches the platform's default session lifetime with
	// headroom for clock drift
	DefaultTokenTTL = 23 * time.Hour
	// DefaultTokenMargin forces refresh slightly before actual expiry
	DefaultTokenMargin = time.Minute
)

// loginFunc performs the underlying platform login for an owner class
type loginFunc func(ctx context.Context, owner types.OwnerClass) model.Outcome[model.Credential]

// tokenCache caches one live credential per owner class. Concurrent callers
// that miss the cache collapse into a single login call via singleflight;
// all waiters observe the result of that one call. Entries are immutable:
// refresh stores a new entry, evicting the previous one.
type tokenCache struct {
	ttl    time.Duration
	margin time.Duration
	login  loginFunc

	mu      sync.RWMutex
	entries map[types.OwnerClass]model.TokenEntry
	group   singleflight.Group
}

func newTokenCache(login loginFunc, ttl, margin time.Duration) *tokenCache {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if margin <= 0 {
		margin = DefaultTokenMargin
	}
	return &tokenCache{
		ttl:     ttl,
		margin:  margin,
		login:   login,
		entries: make(map[types.OwnerClass]model.TokenEntry),
	}
}

// failureErr carries a model.Failure through singleflight's error return
type failureErr struct {
	failure *model.Failure
}

func (x *failureErr) Error() string {
	return x.failure.Err.Error()
}

// Get returns a live credential for the owner class, refreshing via a
// single-flight login when the cached entry is missing or near expiry.
// Login failures are never cached; the next call re-attempts.
func (c *tokenCache) Get(ctx context.Context, owner types.OwnerClass) model.Outcome[model.Credential] {
	c.mu.RLock()
	entry, ok := c.entries[owner]
	c.mu.RUnlock()

	if ok && entry.Live(time.Now(), c.margin) {
		return model.OK(entry.Credential)
	}

	v, err, _ := c.group.Do(owner.String(), func() (any, error) {
		// Another waiter may have refreshed while we queued
		c.mu.RLock()
		entry, ok := c.entries[owner]
		c.mu.RUnlock()
		if ok && entry.Live(time.Now(), c.margin) {
			return entry.Credential, nil
		}

		outcome := c.login(ctx, owner)
		if outcome.IsFailed() {
			return nil, &failureErr{failure: outcome.Failure()}
		}

		cred := outcome.Unwrap()
		c.mu.Lock()
		c.entries[owner] = model.NewTokenEntry(cred, time.Now(), c.ttl)
		c.mu.Unlock()

		return cred, nil
	})
	if err != nil {
		var fe *failureErr
		if errors.As(err, &fe) {
			return model.FailedWith[model.Credential](fe.failure)
		}
		return model.Failed[model.Credential](types.ErrKindAuthFailure, err, true)
	}

	return model.OK(v.(model.Credential))
}

// Peek returns the cached credential for an owner class without triggering
// a login
func (c *tokenCache) Peek(owner types.OwnerClass) (model.Credential, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[owner]
	if !ok || !entry.Live(time.Now(), 0) {
		return model.Credential{}, false
	}
	return entry.Credential, true
}

// Invalidate evicts the cached entry for an owner class, typically after
// the platform rejected the token
func (c *tokenCache) Invalidate(owner types.OwnerClass) {
	c.mu.Lock()
	delete(c.entries, owner)
	c.mu.Unlock()
}
