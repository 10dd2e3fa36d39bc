package orgs

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/platinummonkey/coachgate/pkg/observability"
	"golang.org/x/sync/singleflight"
)

// Cache tiers, used as metric labels
const (
	TierLocal  = "local"
	TierShared = "shared"
)

// Cache lookup results, used as metric labels
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// CacheEntry is a cached membership lookup. Found is false for a cached
// "no membership" answer.
type CacheEntry struct {
	Membership *Membership `json:"membership,omitempty"`
	Found      bool        `json:"found"`

	// TTL is how much longer a shared tier keeps serving the entry.
	// Zero when unknown.
	TTL time.Duration `json:"-"`
}

type localEntry struct {
	entry     CacheEntry
	expiresAt time.Time
}

// SharedCache is a cache tier shared between service replicas.
// Get returns nil, nil on a miss.
type SharedCache interface {
	Get(ctx context.Context, userID, orgID string) (*CacheEntry, error)
	Set(ctx context.Context, userID, orgID string, entry CacheEntry) error
	Delete(ctx context.Context, userID, orgID string) error
}

// CacheRecorder receives cache lookup outcomes
type CacheRecorder interface {
	RecordMembershipCache(tier, result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordMembershipCache(string, string) {}

type multiRecorder []CacheRecorder

func (m multiRecorder) RecordMembershipCache(tier, result string) {
	for _, r := range m {
		r.RecordMembershipCache(tier, result)
	}
}

// MultiCacheRecorder fans lookup outcomes out to every non-nil recorder
func MultiCacheRecorder(recorders ...CacheRecorder) CacheRecorder {
	out := make(multiRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// CachedResolver puts a short-lived cache keyed by (user, organization) in
// front of a Resolver.
//
// Staleness: a membership change becomes visible to this process after at
// most the configured TTL, or immediately when Invalidate is called for the
// pair. The TTL counts from the store read, so an answer copied from the
// shared tier only lives for what remains of its shared TTL. Both found and
// not-found answers are cached. Lookup errors are never
// cached and are returned to the caller unchanged, so callers that fail
// closed keep failing closed. A failing shared tier falls through to the
// wrapped resolver.
type CachedResolver struct {
	next     Resolver
	local    *lru.LRU[string, localEntry]
	shared   SharedCache
	group    singleflight.Group
	recorder CacheRecorder
	logger   *observability.Logger
	ttl      time.Duration
	now      func() time.Time

	// generation changes on every Invalidate. A load that started under an
	// older generation returns its answer but does not cache it.
	mu         sync.Mutex
	generation uint64
}

// CacheOption configures a CachedResolver
type CacheOption func(*CachedResolver)

// WithSharedCache adds a second cache tier consulted after the local one
func WithSharedCache(shared SharedCache) CacheOption {
	return func(c *CachedResolver) {
		c.shared = shared
	}
}

// WithCacheRecorder reports hit and miss counts
func WithCacheRecorder(recorder CacheRecorder) CacheOption {
	return func(c *CachedResolver) {
		c.recorder = recorder
	}
}

// WithCacheLogger sets the logger used for shared tier failures
func WithCacheLogger(logger *observability.Logger) CacheOption {
	return func(c *CachedResolver) {
		c.logger = logger
	}
}

// NewCachedResolver wraps next with an in-process LRU holding at most size
// entries, each living at most ttl.
func NewCachedResolver(next Resolver, size int, ttl time.Duration, opts ...CacheOption) *CachedResolver {
	if size < 1 {
		size = 1
	}
	c := &CachedResolver{
		next:     next,
		local:    lru.NewLRU[string, localEntry](size, nil, ttl),
		recorder: nopRecorder{},
		logger:   observability.NewNopLogger(),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindMembership implements Resolver
func (c *CachedResolver) FindMembership(ctx context.Context, userID, orgID string) (*Membership, error) {
	key := cacheKey(userID, orgID)

	if cached, ok := c.local.Get(key); ok && c.now().Before(cached.expiresAt) {
		c.recorder.RecordMembershipCache(TierLocal, CacheHit)
		return cached.entry.result()
	}
	c.recorder.RecordMembershipCache(TierLocal, CacheMiss)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.load(ctx, key, userID, orgID)
	})
	if err != nil {
		return nil, err
	}
	return v.(CacheEntry).result()
}

func (c *CachedResolver) load(ctx context.Context, key, userID, orgID string) (CacheEntry, error) {
	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	if c.shared != nil {
		entry, err := c.shared.Get(ctx, userID, orgID)
		switch {
		case err != nil:
			c.recorder.RecordMembershipCache(TierShared, CacheError)
			c.logger.WithError(err).Warn("shared membership cache read failed")
		case entry != nil:
			c.recorder.RecordMembershipCache(TierShared, CacheHit)
			ttl := c.ttl
			if entry.TTL > 0 && entry.TTL < ttl {
				ttl = entry.TTL
			}
			c.remember(key, gen, *entry, ttl)
			return *entry, nil
		default:
			c.recorder.RecordMembershipCache(TierShared, CacheMiss)
		}
	}

	member, err := c.next.FindMembership(ctx, userID, orgID)
	var entry CacheEntry
	switch {
	case errors.Is(err, ErrMembershipNotFound):
		entry = CacheEntry{Found: false}
	case err != nil:
		return CacheEntry{}, err
	default:
		entry = CacheEntry{Membership: member, Found: true}
	}

	if !c.remember(key, gen, entry, c.ttl) {
		return entry, nil
	}
	if c.shared != nil {
		if err := c.shared.Set(ctx, userID, orgID, entry); err != nil {
			c.logger.WithError(err).Warn("shared membership cache write failed")
		}
	}
	return entry, nil
}

// remember stores entry locally for ttl unless an Invalidate ran since gen
// was read. It reports whether the entry was stored.
func (c *CachedResolver) remember(key string, gen uint64, entry CacheEntry, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.local.Add(key, localEntry{entry: entry, expiresAt: c.now().Add(ttl)})
	return true
}

// Invalidate drops the cached answer for (userID, orgID) from every tier.
// Lookups already in flight for the pair are not cached, and later callers
// do not share their result.
func (c *CachedResolver) Invalidate(ctx context.Context, userID, orgID string) error {
	key := cacheKey(userID, orgID)
	c.mu.Lock()
	c.generation++
	c.local.Remove(key)
	c.mu.Unlock()
	c.group.Forget(key)

	if c.shared != nil {
		return c.shared.Delete(ctx, userID, orgID)
	}
	return nil
}

// Len returns the number of live entries in the local tier
func (c *CachedResolver) Len() int {
	return c.local.Len()
}

// TTL returns the staleness bound of the cache
func (c *CachedResolver) TTL() time.Duration {
	return c.ttl
}

func (e CacheEntry) result() (*Membership, error) {
	if !e.Found || e.Membership == nil {
		return nil, ErrMembershipNotFound
	}
	m := *e.Membership
	return &m, nil
}

func cacheKey(userID, orgID string) string {
	return userID + "|" + orgID
}
