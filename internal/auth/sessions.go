package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/staff-perf/pkg/cache"
)

// Cacher is the key-value store behind sessions and lockout counters.
type Cacher interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}

type session struct {
	AccountID string    `json:"accountId"`
	CreatedAt time.Time `json:"createdAt"`
}

func sessionKey(id string) string { return "session:" + id }

func lockoutKey(login string) string { return "lockout:" + login }

// sessions stores live session IDs with the token lifetime as TTL.
type sessions struct {
	cache Cacher
	ttl   time.Duration
}

func (s sessions) create(ctx context.Context, id, accountID string, now time.Time) error {
	if err := s.cache.Set(ctx, sessionKey(id), session{AccountID: accountID, CreatedAt: now}, s.ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// lookup returns ErrUnauthenticated when the session expired or was revoked.
func (s sessions) lookup(ctx context.Context, id string) (session, error) {
	var sess session
	err := s.cache.Get(ctx, sessionKey(id), &sess)
	if errors.Is(err, cache.ErrCacheMiss) {
		return session{}, ErrUnauthenticated
	}
	if err != nil {
		return session{}, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

func (s sessions) revoke(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// lockout counts failed logins per login name. Once maxAttempts failures
// are reached the login is refused until the counter expires.
type lockout struct {
	cache       Cacher
	maxAttempts int
	duration    time.Duration
}

// check returns a LockedError while the login is locked.
func (l lockout) check(ctx context.Context, login string) error {
	var failures int64
	err := l.cache.Get(ctx, lockoutKey(login), &failures)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load lockout: %w", err)
	}
	if failures < int64(l.maxAttempts) {
		return nil
	}
	remaining, err := l.cache.TTL(ctx, lockoutKey(login))
	if err != nil {
		return fmt.Errorf("load lockout ttl: %w", err)
	}
	return &LockedError{RetryAfter: remaining}
}

// fail records a failure and reports whether the login just became locked.
func (l lockout) fail(ctx context.Context, login string) (bool, error) {
	n, err := l.cache.IncrWithTTL(ctx, lockoutKey(login), l.duration)
	if err != nil {
		return false, fmt.Errorf("count failed login: %w", err)
	}
	if n < int64(l.maxAttempts) {
		return false, nil
	}
	// the lock runs for the full duration after the last failure
	if err := l.cache.Set(ctx, lockoutKey(login), n, l.duration); err != nil {
		return true, fmt.Errorf("extend lockout: %w", err)
	}
	return true, nil
}

func (l lockout) reset(ctx context.Context, login string) error {
	return l.cache.Delete(ctx, lockoutKey(login))
}
