package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opspanel/opspanel/pkg/model"
)

// Status is the lifecycle state of a cache entry.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// DefaultCacheTTL is how long an unobserved entry survives before eviction.
const DefaultCacheTTL = 5 * time.Minute

// Fetcher loads one page of data. It is the only place the coordinator
// touches the network.
type Fetcher func(ctx context.Context) (*model.Page, error)

// Entry is the externally visible state of one cached query.
type Entry struct {
	Key           QueryKey
	Status        Status
	Data          *model.Page
	Err           error
	LastFetchedAt time.Time
	Stale         bool
}

// cacheEntry adds the coordinator's bookkeeping: the request token used for
// superseded-response detection, the fetcher to replay on invalidation, and
// the access time driving TTL eviction.
type cacheEntry struct {
	Entry
	token      uint64
	fetcher    Fetcher
	lastAccess time.Time
}

// Coordinator owns fetch execution keyed by QueryKey. Concurrent fetches for
// the same key collapse into one network call; responses for superseded
// requests are dropped; a fetch failure keeps the last good data so a view
// can degrade instead of blanking.
//
// A Coordinator may be shared by several views of the same resource. Entries
// are shared by key; selection state never lives here.
type Coordinator struct {
	mu      sync.Mutex
	entries map[QueryKey]*cacheEntry
	current map[model.Resource]QueryKey
	ttl     time.Duration

	subsMu sync.RWMutex
	subs   map[string]chan Entry
}

// NewCoordinator creates a coordinator. A non-positive ttl selects
// DefaultCacheTTL.
func NewCoordinator(ttl time.Duration) *Coordinator {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Coordinator{
		entries: make(map[QueryKey]*cacheEntry),
		current: make(map[model.Resource]QueryKey),
		ttl:     ttl,
		subs:    make(map[string]chan Entry),
	}
}

// Fetch makes key the current key for its resource and starts a fetch for
// it, unless one is already in flight, in which case the caller joins the
// existing fetch. Returns a snapshot of the entry as of the call.
func (c *Coordinator) Fetch(ctx context.Context, key QueryKey, fetcher Fetcher) Entry {
	now := time.Now()

	c.mu.Lock()
	c.evictLocked(now)
	e := c.entries[key]
	if e == nil {
		e = &cacheEntry{Entry: Entry{Key: key, Status: StatusIdle}}
		c.entries[key] = e
	}
	c.current[key.Resource] = key
	e.lastAccess = now

	if e.Status == StatusLoading {
		snap := e.Entry
		c.mu.Unlock()
		slog.Debug("fetch joined in-flight request", "key", key.String())
		return snap
	}

	e.token++
	tok := e.token
	e.Status = StatusLoading
	e.fetcher = fetcher
	snap := e.Entry
	c.mu.Unlock()

	go c.run(ctx, key, tok, fetcher)
	return snap
}

// run executes one fetch and applies its result, unless the request was
// superseded while in flight.
func (c *Coordinator) run(ctx context.Context, key QueryKey, tok uint64, fetcher Fetcher) {
	data, err := fetcher(ctx)

	c.mu.Lock()
	e := c.entries[key]
	if e == nil || e.token != tok {
		c.mu.Unlock()
		slog.Debug("response dropped: request superseded", "key", key.String())
		return
	}
	if cur, ok := c.current[key.Resource]; ok && cur != key {
		// The view moved to a different key while this fetch was in flight.
		// The entry returns to idle; whoever observes this key next refetches.
		e.Status = StatusIdle
		c.mu.Unlock()
		slog.Debug("response dropped: key no longer current", "key", key.String())
		return
	}

	if err != nil {
		e.Status = StatusError
		e.Err = model.WrapError(err)
		// Last good data is retained so the view can keep rendering it.
	} else {
		e.Status = StatusSuccess
		e.Data = data
		e.Err = nil
		e.Stale = false
		e.LastFetchedAt = time.Now()
	}
	snap := e.Entry
	c.mu.Unlock()

	if err != nil {
		slog.Warn("fetch failed", "key", key.String(), "error", err)
	} else {
		slog.Debug("fetch completed", "key", key.String(), "rows", len(data.Items))
	}
	c.publish(snap)
}

// Invalidate marks every entry of the resource stale and refetches the
// current key only; other cached variants refresh lazily when next observed.
// An in-flight fetch for the current key is superseded: its response predates
// the mutation that triggered the invalidation and must never be applied.
func (c *Coordinator) Invalidate(ctx context.Context, resource model.Resource) {
	c.mu.Lock()
	for k, e := range c.entries {
		if k.Resource == resource {
			e.Stale = true
		}
	}

	var (
		refetch Fetcher
		key     QueryKey
		tok     uint64
	)
	if cur, ok := c.current[resource]; ok {
		if e := c.entries[cur]; e != nil && e.fetcher != nil {
			e.token++
			tok = e.token
			e.Status = StatusLoading
			key = cur
			refetch = e.fetcher
		}
	}
	c.mu.Unlock()

	if refetch != nil {
		slog.Debug("invalidation refetch", "resource", resource, "key", key.String())
		go c.run(ctx, key, tok, refetch)
	}
}

// InFlight reports whether a fetch for key is currently running.
func (c *Coordinator) InFlight(key QueryKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	return e != nil && e.Status == StatusLoading
}

// Snapshot returns the entry for key, if one exists. Observing an entry
// counts as use for eviction purposes.
func (c *Coordinator) Snapshot(key QueryKey) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	if e == nil {
		return Entry{}, false
	}
	e.lastAccess = time.Now()
	return e.Entry, true
}

// CurrentKey returns the current key for a resource, if any fetch has been
// issued for it.
func (c *Coordinator) CurrentKey(resource model.Resource) (QueryKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.current[resource]
	return k, ok
}

// Reset drops the entry for key entirely, including last-good data. Used
// when a view explicitly asks for a hard reload.
func (c *Coordinator) Reset(key QueryKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Subscribe registers for entry updates. Every applied fetch result is
// published; subscribers filter by key. The returned function cancels the
// subscription.
func (c *Coordinator) Subscribe() (<-chan Entry, func()) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	id := uuid.NewString()
	ch := make(chan Entry, 16)
	c.subs[id] = ch

	unsubscribe := func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		if ch, exists := c.subs[id]; exists {
			close(ch)
			delete(c.subs, id)
		}
	}
	return ch, unsubscribe
}

func (c *Coordinator) publish(e Entry) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, ch := range c.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// evictLocked drops entries idle for longer than the TTL. Current and
// in-flight entries are never evicted. Caller holds c.mu.
func (c *Coordinator) evictLocked(now time.Time) {
	for k, e := range c.entries {
		if e.Status == StatusLoading {
			continue
		}
		if cur, ok := c.current[k.Resource]; ok && cur == k {
			continue
		}
		if now.Sub(e.lastAccess) > c.ttl {
			delete(c.entries, k)
		}
	}
}
