// Package controller implements the list-view engine shared by every
// resource screen: filter state, cache-key derivation, fetch coordination,
// row selection, mutations, and auto refresh. One Controller instance is
// created per open view and discarded when the view closes.
package controller

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opspanel/opspanel/pkg/model"
)

// AllowedPageSizes are the page sizes a view may request.
var AllowedPageSizes = []int{10, 25, 50, 100}

// DefaultPageSize is used when a view does not specify one.
const DefaultPageSize = 25

// FilterPatch is a partial filter update. Nil fields are left untouched.
type FilterPatch struct {
	Search   *string
	Level    *string
	Start    *time.Time
	End      *time.Time
	SortBy   *string
	SortDesc *bool
	Page     *int
	PageSize *int
}

// touchesFilter reports whether the patch changes anything other than
// pagination. Such changes invalidate the current page position.
func (p FilterPatch) touchesFilter() bool {
	return p.Search != nil || p.Level != nil || p.Start != nil ||
		p.End != nil || p.SortBy != nil || p.SortDesc != nil
}

// FilterStore holds the filter state of one view and notifies subscribers
// on every change. It knows nothing about the network or the cache.
type FilterStore struct {
	mu       sync.RWMutex
	state    model.ListFilter
	defaults model.ListFilter
	sizes    []int
	subs     map[string]chan model.ListFilter
}

// NewFilterStore creates a store seeded with defaults. A zero Page or
// PageSize in the defaults is replaced with page 1 and DefaultPageSize.
func NewFilterStore(defaults model.ListFilter) *FilterStore {
	if defaults.Page < 1 {
		defaults.Page = 1
	}
	defaults.PageSize = snapPageSize(defaults.PageSize)
	return &FilterStore{
		state:    defaults,
		defaults: defaults,
		sizes:    AllowedPageSizes,
		subs:     make(map[string]chan model.ListFilter),
	}
}

// Current returns a snapshot of the filter state.
func (s *FilterStore) Current() model.ListFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Update merges the patch into the current state. Any change outside
// page/pageSize resets the page to 1 before the merge completes.
func (s *FilterStore) Update(p FilterPatch) model.ListFilter {
	s.mu.Lock()
	next := s.state
	if p.touchesFilter() {
		next.Page = 1
	}
	if p.Search != nil {
		next.Search = *p.Search
	}
	if p.Level != nil {
		next.Level = *p.Level
	}
	if p.Start != nil {
		next.Start = p.Start.UTC()
	}
	if p.End != nil {
		next.End = p.End.UTC()
	}
	if p.SortBy != nil {
		next.SortBy = *p.SortBy
	}
	if p.SortDesc != nil {
		next.SortDesc = *p.SortDesc
	}
	if p.PageSize != nil {
		next.PageSize = snapPageSize(*p.PageSize)
		next.Page = 1
	}
	if p.Page != nil {
		next.Page = clampPage(*p.Page)
	}
	s.state = next
	s.mu.Unlock()

	s.publish(next)
	return next
}

// SetPage moves to the given page without touching any filter field.
// Values below 1 clamp to 1.
func (s *FilterStore) SetPage(n int) model.ListFilter {
	s.mu.Lock()
	s.state.Page = clampPage(n)
	next := s.state
	s.mu.Unlock()

	s.publish(next)
	return next
}

// SetPageSize changes the page size and resets to the first page. Sizes
// outside the allowed set snap to the default.
func (s *FilterStore) SetPageSize(n int) model.ListFilter {
	s.mu.Lock()
	s.state.PageSize = snapPageSize(n)
	s.state.Page = 1
	next := s.state
	s.mu.Unlock()

	s.publish(next)
	return next
}

// Clear restores the default filter state.
func (s *FilterStore) Clear() model.ListFilter {
	s.mu.Lock()
	s.state = s.defaults
	next := s.state
	s.mu.Unlock()

	s.publish(next)
	return next
}

// Subscribe registers for filter snapshots. Every successful update emits
// the new state. The returned function cancels the subscription.
func (s *FilterStore) Subscribe() (<-chan model.ListFilter, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan model.ListFilter, 16)
	s.subs[id] = ch

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if ch, exists := s.subs[id]; exists {
			close(ch)
			delete(s.subs, id)
		}
	}
	return ch, unsubscribe
}

func (s *FilterStore) publish(state model.ListFilter) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		// Non-blocking send so a stalled subscriber cannot wedge updates.
		select {
		case ch <- state:
		default:
		}
	}
}

func clampPage(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func snapPageSize(n int) int {
	for _, allowed := range AllowedPageSizes {
		if n == allowed {
			return n
		}
	}
	return DefaultPageSize
}
