// Package session caches the public profile of a logged-in user with an
// expiry horizon, behind an injected store so tests can swap the backing
// storage freely.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/aiarcade/aiarcade/internal/types"
)

// Store is the minimal contract the holder needs: get, set, clear, with
// the backing store enforcing the expiry horizon.
type Store interface {
	Get(userID string) (*types.UserProfile, bool)
	Set(userID string, profile *types.UserProfile)
	Clear(userID string)
}

var _ Store = (*CacheStore)(nil)

// CacheStore backs the session holder with an in-memory TTL cache.
type CacheStore struct {
	c *cache.Cache
}

func NewCacheStore(ttl time.Duration) *CacheStore {
	return &CacheStore{c: cache.New(ttl, ttl/2)}
}

func (s *CacheStore) Get(userID string) (*types.UserProfile, bool) {
	v, found := s.c.Get(userID)
	if !found {
		return nil, false
	}
	profile, ok := v.(*types.UserProfile)
	return profile, ok
}

func (s *CacheStore) Set(userID string, profile *types.UserProfile) {
	s.c.Set(userID, profile, cache.DefaultExpiration)
}

func (s *CacheStore) Clear(userID string) {
	s.c.Delete(userID)
}

// ProfileFetcher re-fetches the authoritative profile from the server side.
type ProfileFetcher func(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)

// Holder exposes the cached session and a debounced Refresh: concurrent
// refresh requests inside the debounce window are served from the cache
// instead of hitting the backend again.
type Holder struct {
	logger   *slog.Logger
	store    Store
	fetch    ProfileFetcher
	debounce time.Duration

	mu          sync.Mutex
	lastRefresh map[string]time.Time
}

func NewHolder(store Store, fetch ProfileFetcher, debounce time.Duration, logger *slog.Logger) *Holder {
	return &Holder{
		logger:      logger,
		store:       store,
		fetch:       fetch,
		debounce:    debounce,
		lastRefresh: make(map[string]time.Time),
	}
}

// Current returns the cached profile, if any.
func (h *Holder) Current(userID string) (*types.UserProfile, bool) {
	return h.store.Get(userID)
}

// Set caches a fresh profile, e.g. right after login or verification.
func (h *Holder) Set(profile *types.UserProfile) {
	userID := profile.ID.String()
	h.store.Set(userID, profile)
	h.mu.Lock()
	h.lastRefresh[userID] = time.Now()
	h.mu.Unlock()
}

// Refresh re-fetches the authoritative profile and overwrites the cache.
// Calls inside the debounce window return the cached copy untouched.
func (h *Holder) Refresh(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	key := userID.String()

	h.mu.Lock()
	last, seen := h.lastRefresh[key]
	h.mu.Unlock()

	if seen && time.Since(last) < h.debounce {
		if cached, ok := h.store.Get(key); ok {
			return cached, nil
		}
	}

	profile, err := h.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	h.store.Set(key, profile)
	h.mu.Lock()
	h.lastRefresh[key] = time.Now()
	h.mu.Unlock()

	h.logger.DebugContext(ctx, "Session refreshed", slog.String("userID", key))
	return profile, nil
}

// Clear drops the cached session (logout).
func (h *Holder) Clear(userID string) {
	h.store.Clear(userID)
	h.mu.Lock()
	delete(h.lastRefresh, userID)
	h.mu.Unlock()
}
