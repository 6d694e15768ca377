package controller

import (
	"sort"
	"sync"
)

// Selection tracks the set of selected row ids for one view. It lives
// independently of the fetch lifecycle: ids stay selected across page
// navigation until explicitly cleared or pruned.
type Selection struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Selection) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// SelectAllVisible adds every given id. Ids already selected but not in the
// list stay selected; "visible" scopes to the current page, not globally.
func (s *Selection) SelectAllVisible(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}

// Prune removes exactly the given ids, typically after a successful delete,
// approve, or reject.
func (s *Selection) Prune(removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range removed {
		delete(s.ids, id)
	}
}

// Selected reports whether id is in the selection.
func (s *Selection) Selected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Count returns the number of selected ids.
func (s *Selection) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs returns the selected ids in sorted order.
func (s *Selection) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
