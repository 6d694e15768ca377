package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/opspanel/opspanel/pkg/model"
)

// Config holds the engine configuration shared by all views.
type Config struct {
	// CacheTTL is how long unobserved cache entries survive.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// RefreshInterval is the auto refresh polling period.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// AutoRefresh starts polling as soon as a view opens.
	AutoRefresh bool `yaml:"auto_refresh"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		CacheTTL:        DefaultCacheTTL,
		RefreshInterval: 30 * time.Second,
		AutoRefresh:     false,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.CacheTTL < 0 {
		return fmt.Errorf("engine: cache_ttl must not be negative")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("engine: refresh_interval must be positive")
	}
	return nil
}

// Lister is the read slice of the resource API. *apiclient.Client
// satisfies it.
type Lister interface {
	List(ctx context.Context, resource model.Resource, f model.ListFilter) (*model.Page, error)
}

// Deps are the collaborators injected into a view controller.
type Deps struct {
	Lister  Lister
	Mutator Mutator
	Confirm ConfirmationGate
	Notify  NotificationGate

	// Cache optionally shares a coordinator between views. Nil gives the
	// view its own. Selections are never shared.
	Cache *Coordinator
}

// Controller is the per-view façade over the engine: it owns the view's
// filter state and selection, reacts to filter changes by fetching through
// the shared-or-private cache coordinator, and exposes mutations.
//
// Construct one per open view and Close it on exit; never keep a
// process-wide instance.
type Controller struct {
	resource  model.Resource
	cfg       Config
	lister    Lister
	filters   *FilterStore
	cache     *Coordinator
	selection *Selection
	mutations *Orchestrator
	refresh   *Scheduler

	ctx          context.Context
	cancel       context.CancelFunc
	unsubFilters func()
}

// New creates a controller for one view of a resource and issues the
// initial fetch.
func New(resource model.Resource, deps Deps, cfg Config) *Controller {
	cache := deps.Cache
	if cache == nil {
		cache = NewCoordinator(cfg.CacheTTL)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		resource:  resource,
		cfg:       cfg,
		lister:    deps.Lister,
		filters:   NewFilterStore(model.ListFilter{Page: 1, PageSize: DefaultPageSize}),
		cache:     cache,
		selection: NewSelection(),
		ctx:       ctx,
		cancel:    cancel,
	}
	c.mutations = NewOrchestrator(resource, deps.Mutator, cache, c.selection, deps.Confirm, deps.Notify)
	c.refresh = NewScheduler(c.refreshTick)

	ch, unsub := c.filters.Subscribe()
	c.unsubFilters = unsub
	go c.watchFilters(ch)

	c.fetch(c.filters.Current())
	if cfg.AutoRefresh {
		c.refresh.Start(cfg.RefreshInterval)
	}
	return c
}

// Close releases the view: stops polling, detaches from the filter store,
// and cancels any in-flight work issued by this view.
func (c *Controller) Close() {
	c.refresh.Stop()
	c.unsubFilters()
	c.cancel()
}

func (c *Controller) watchFilters(ch <-chan model.ListFilter) {
	for f := range ch {
		c.fetch(f)
	}
}

func (c *Controller) fetch(f model.ListFilter) {
	key := BuildKey(c.resource, OpList, f)
	c.cache.Fetch(c.ctx, key, func(ctx context.Context) (*model.Page, error) {
		return c.lister.List(ctx, c.resource, f)
	})
}

// refreshTick is the auto refresh callback: skip when the current key is
// already being fetched.
func (c *Controller) refreshTick(context.Context) bool {
	if c.cache.InFlight(c.CurrentKey()) {
		return false
	}
	c.fetch(c.filters.Current())
	return true
}

// Resource returns the resource this view browses.
func (c *Controller) Resource() model.Resource {
	return c.resource
}

// CurrentKey returns the cache key the view is showing.
func (c *Controller) CurrentKey() QueryKey {
	return BuildKey(c.resource, OpList, c.filters.Current())
}

// Entry returns the cache entry for the current key.
func (c *Controller) Entry() Entry {
	key := c.CurrentKey()
	if e, ok := c.cache.Snapshot(key); ok {
		return e
	}
	return Entry{Key: key, Status: StatusIdle}
}

// Page returns the data for the current key, which may be last-good data
// alongside an error status.
func (c *Controller) Page() *model.Page {
	return c.Entry().Data
}

// Updates streams cache entries for whatever key is current when each
// update arrives; results of superseded keys never reach the view. The
// returned function cancels the stream.
func (c *Controller) Updates() (<-chan Entry, func()) {
	raw, unsub := c.cache.Subscribe()
	out := make(chan Entry, 16)
	go func() {
		defer close(out)
		for e := range raw {
			if e.Key != c.CurrentKey() {
				continue
			}
			select {
			case out <- e:
			default:
			}
		}
	}()
	return out, unsub
}

// Filter state pass-throughs. Every change resets pagination per the filter
// store's rules and triggers a fetch via the subscription.

func (c *Controller) Filter() model.ListFilter   { return c.filters.Current() }
func (c *Controller) UpdateFilter(p FilterPatch) { c.filters.Update(p) }
func (c *Controller) SetPage(n int)              { c.filters.SetPage(n) }
func (c *Controller) SetPageSize(n int)          { c.filters.SetPageSize(n) }
func (c *Controller) ClearFilters()              { c.filters.Clear() }

// Refresh refetches the current key immediately.
func (c *Controller) Refresh() {
	c.fetch(c.filters.Current())
}

// HardReset drops the current entry, including last-good data, and
// refetches from scratch.
func (c *Controller) HardReset() {
	c.cache.Reset(c.CurrentKey())
	c.fetch(c.filters.Current())
}

// StartAutoRefresh begins polling with the configured interval.
func (c *Controller) StartAutoRefresh() {
	c.refresh.Start(c.cfg.RefreshInterval)
}

// StopAutoRefresh cancels polling.
func (c *Controller) StopAutoRefresh() {
	c.refresh.Stop()
}

// Selection pass-throughs.

func (c *Controller) Toggle(id string) bool   { return c.selection.Toggle(id) }
func (c *Controller) Selected(id string) bool { return c.selection.Selected(id) }
func (c *Controller) SelectedIDs() []string   { return c.selection.IDs() }
func (c *Controller) SelectedCount() int      { return c.selection.Count() }
func (c *Controller) ClearSelection()         { c.selection.Clear() }

// SelectAllVisible selects every row of the currently shown page.
func (c *Controller) SelectAllVisible() {
	c.selection.SelectAllVisible(c.Page().ItemIDs())
}

// Mutation pass-throughs.

func (c *Controller) MutationPending() bool {
	return c.mutations.Pending()
}

func (c *Controller) MutateSingle(ctx context.Context, kind MutationKind, id string) error {
	return c.mutations.MutateSingle(ctx, kind, id)
}

func (c *Controller) MutateBulk(ctx context.Context, kind MutationKind, ids []string) (model.BulkResult, error) {
	return c.mutations.MutateBulk(ctx, kind, ids)
}

// MutateSelected runs a bulk operation over the current selection.
func (c *Controller) MutateSelected(ctx context.Context, kind MutationKind) (model.BulkResult, error) {
	return c.mutations.MutateBulk(ctx, kind, c.selection.IDs())
}
