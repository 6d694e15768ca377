package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opspanel/opspanel/pkg/model"
)

// fakeLister answers List calls from a per-canonical-filter page table and
// can hold selected responses until released.
type fakeLister struct {
	mu      sync.Mutex
	calls   []model.ListFilter
	pages   map[string]*model.Page
	blocked map[string]chan struct{}
}

func newFakeLister() *fakeLister {
	return &fakeLister{
		pages:   make(map[string]*model.Page),
		blocked: make(map[string]chan struct{}),
	}
}

func (l *fakeLister) respond(f model.ListFilter, page *model.Page) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pages[f.Canonical()] = page
}

func (l *fakeLister) holdResponse(f model.ListFilter) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan struct{})
	l.blocked[f.Canonical()] = ch
	return ch
}

func (l *fakeLister) List(_ context.Context, _ model.Resource, f model.ListFilter) (*model.Page, error) {
	l.mu.Lock()
	l.calls = append(l.calls, f)
	page := l.pages[f.Canonical()]
	gate := l.blocked[f.Canonical()]
	l.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if page == nil {
		page = testPage()
	}
	return page, nil
}

func (l *fakeLister) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func (l *fakeLister) lastCall() model.ListFilter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[len(l.calls)-1]
}

func newTestController(t *testing.T, lister *fakeLister, mutator *fakeMutator) (*Controller, *fakeNotify) {
	t.Helper()
	notify := &fakeNotify{}
	c := New(model.ResourceLogs, Deps{
		Lister:  lister,
		Mutator: mutator,
		Confirm: &fakeConfirm{answer: true},
		Notify:  notify,
	}, DefaultConfig())
	t.Cleanup(c.Close)
	return c, notify
}

func waitEntry(t *testing.T, c *Controller, want Status) Entry {
	t.Helper()
	var entry Entry
	require.Eventually(t, func() bool {
		entry = c.Entry()
		return entry.Status == want
	}, time.Second, 2*time.Millisecond)
	return entry
}

func TestController_InitialFetch(t *testing.T) {
	lister := newFakeLister()
	lister.respond(model.ListFilter{Page: 1, PageSize: DefaultPageSize}, testPage("1", "2"))

	c, _ := newTestController(t, lister, &fakeMutator{})

	entry := waitEntry(t, c, StatusSuccess)
	assert.Equal(t, 2, entry.Data.TotalCount)
	assert.Equal(t, 1, lister.callCount())
}

func TestController_FilterChangeResetsPageAndRefetches(t *testing.T) {
	lister := newFakeLister()
	c, _ := newTestController(t, lister, &fakeMutator{})
	waitEntry(t, c, StatusSuccess)

	c.SetPage(3)
	require.Eventually(t, func() bool { return c.Filter().Page == 3 }, time.Second, 2*time.Millisecond)
	before := c.CurrentKey()

	c.UpdateFilter(FilterPatch{Search: strPtr("error")})

	require.Eventually(t, func() bool {
		last := c.Filter()
		return last.Search == "error" && last.Page == 1
	}, time.Second, 2*time.Millisecond)
	assert.NotEqual(t, before, c.CurrentKey())

	require.Eventually(t, func() bool {
		return lister.callCount() >= 3 && lister.lastCall().Search == "error" && lister.lastCall().Page == 1
	}, time.Second, 2*time.Millisecond)
}

func TestController_SupersededFilterNeverVisible(t *testing.T) {
	lister := newFakeLister()
	slow := model.ListFilter{Page: 1, PageSize: DefaultPageSize}
	fast := model.ListFilter{Search: "error", Page: 1, PageSize: DefaultPageSize}
	lister.respond(slow, testPage("stale"))
	lister.respond(fast, testPage("fresh"))
	gate := lister.holdResponse(slow)

	c, _ := newTestController(t, lister, &fakeMutator{})

	// Move to the second filter while the first fetch hangs.
	c.UpdateFilter(FilterPatch{Search: strPtr("error")})
	entry := waitEntry(t, c, StatusSuccess)
	require.Equal(t, "fresh", entry.Data.Items[0].ID())

	// The slow response lands afterwards and must not become visible.
	close(gate)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "fresh", c.Page().Items[0].ID())
}

func TestController_SelectAllVisible(t *testing.T) {
	lister := newFakeLister()
	lister.respond(model.ListFilter{Page: 1, PageSize: DefaultPageSize}, testPage("1", "2", "3"))

	c, _ := newTestController(t, lister, &fakeMutator{})
	waitEntry(t, c, StatusSuccess)

	c.SelectAllVisible()
	assert.Equal(t, []string{"1", "2", "3"}, c.SelectedIDs())

	c.Toggle("2")
	assert.Equal(t, 2, c.SelectedCount())
}

func TestController_MutateSelectedDeletesAndPrunes(t *testing.T) {
	lister := newFakeLister()
	lister.respond(model.ListFilter{Page: 1, PageSize: DefaultPageSize}, testPage("1", "2", "3"))
	mutator := &fakeMutator{outcome: model.BulkOutcome{SucceededCount: 3}}

	c, notify := newTestController(t, lister, mutator)
	waitEntry(t, c, StatusSuccess)
	c.SelectAllVisible()

	res, err := c.MutateSelected(context.Background(), MutationDelete)
	require.NoError(t, err)
	assert.True(t, res.AllSucceeded())
	assert.Equal(t, 0, c.SelectedCount())
	assert.Equal(t, []string{"3 items deleted"}, notify.successes)

	// Invalidation refetches the visible key.
	require.Eventually(t, func() bool { return lister.callCount() == 2 }, time.Second, 2*time.Millisecond)
}

func TestController_AutoRefreshSkipsWhileFetchPending(t *testing.T) {
	lister := newFakeLister()
	filter := model.ListFilter{Page: 1, PageSize: DefaultPageSize}
	gate := lister.holdResponse(filter)

	notify := &fakeNotify{}
	cfg := DefaultConfig()
	cfg.RefreshInterval = 10 * time.Millisecond
	c := New(model.ResourceLogs, Deps{
		Lister:  lister,
		Mutator: &fakeMutator{},
		Confirm: &fakeConfirm{answer: true},
		Notify:  notify,
	}, cfg)
	defer c.Close()

	c.StartAutoRefresh()

	// Several ticks pass while the initial fetch hangs: no extra calls.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, lister.callCount())

	// Once the fetch resolves, the next tick polls again.
	close(gate)
	lister.mu.Lock()
	delete(lister.blocked, filter.Canonical())
	lister.mu.Unlock()
	require.Eventually(t, func() bool { return lister.callCount() >= 2 }, time.Second, 2*time.Millisecond)

	c.StopAutoRefresh()
}

func TestController_UpdatesStreamFollowsCurrentKey(t *testing.T) {
	lister := newFakeLister()
	lister.respond(model.ListFilter{Page: 1, PageSize: DefaultPageSize}, testPage("a"))
	lister.respond(model.ListFilter{Search: "x", Page: 1, PageSize: DefaultPageSize}, testPage("b"))

	c, _ := newTestController(t, lister, &fakeMutator{})
	waitEntry(t, c, StatusSuccess)

	updates, stop := c.Updates()
	defer stop()

	c.UpdateFilter(FilterPatch{Search: strPtr("x")})

	select {
	case e := <-updates:
		assert.Equal(t, c.CurrentKey(), e.Key)
		assert.Equal(t, "b", e.Data.Items[0].ID())
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestController_HardResetDropsLastGoodData(t *testing.T) {
	lister := newFakeLister()
	lister.respond(model.ListFilter{Page: 1, PageSize: DefaultPageSize}, testPage("1"))

	c, _ := newTestController(t, lister, &fakeMutator{})
	waitEntry(t, c, StatusSuccess)

	c.HardReset()
	waitEntry(t, c, StatusSuccess)
	require.Eventually(t, func() bool { return lister.callCount() == 2 }, time.Second, 2*time.Millisecond)
}

func TestController_SharedCoordinatorPrivateSelection(t *testing.T) {
	lister := newFakeLister()
	shared := NewCoordinator(0)
	deps := Deps{
		Lister:  lister,
		Mutator: &fakeMutator{},
		Confirm: &fakeConfirm{answer: true},
		Notify:  &fakeNotify{},
		Cache:   shared,
	}

	a := New(model.ResourceLogs, deps, DefaultConfig())
	defer a.Close()
	b := New(model.ResourceLogs, deps, DefaultConfig())
	defer b.Close()

	waitEntry(t, a, StatusSuccess)
	waitEntry(t, b, StatusSuccess)

	a.Toggle("1")
	assert.Equal(t, 1, a.SelectedCount())
	assert.Equal(t, 0, b.SelectedCount())
}

func TestController_CloseStopsReactions(t *testing.T) {
	lister := newFakeLister()
	c, _ := newTestController(t, lister, &fakeMutator{})
	waitEntry(t, c, StatusSuccess)

	c.Close()
	settled := lister.callCount()

	c.UpdateFilter(FilterPatch{Search: strPtr("after close")})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, settled, lister.callCount())
}
