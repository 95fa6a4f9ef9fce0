package store

import (
	"iter"
	"strings"
	"sync"
	"time"

	"studio/server/internal/model"
)

// Filter narrows a gallery query. Zero values match everything; Type "all" is
// accepted as an alias for no type filter.
type Filter struct {
	Text string
	Type model.Variant
}

func (f Filter) match(item model.ContentItem) bool {
	if f.Type != "" && f.Type != "all" && item.Type != f.Type {
		return false
	}
	if f.Text == "" {
		return true
	}
	needle := strings.ToLower(f.Text)
	for _, field := range []string{item.Prompt, item.Topic, item.Content} {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// ContentStore is the gallery of one session: append-only, newest first.
type ContentStore struct {
	mu     sync.RWMutex
	items  []model.ContentItem
	lastID int64
}

func NewContentStore() *ContentStore {
	return &ContentStore{}
}

// NextID derives an id from the creation time in milliseconds, bumped past
// the previous id when two items land in the same millisecond.
func (s *ContentStore) NextID(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Append inserts item at the front. It never fails and never deduplicates.
func (s *ContentStore) Append(item model.ContentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID > s.lastID {
		s.lastID = item.ID
	}
	s.items = append(s.items, item)
}

// Query snapshots the store and yields matching items newest first. The
// returned sequence can be ranged over any number of times.
func (s *ContentStore) Query(f Filter) iter.Seq[model.ContentItem] {
	snapshot := s.snapshot()
	return func(yield func(model.ContentItem) bool) {
		for i := len(snapshot) - 1; i >= 0; i-- {
			if !f.match(snapshot[i]) {
				continue
			}
			if !yield(snapshot[i]) {
				return
			}
		}
	}
}

func (s *ContentStore) Get(id int64) (model.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, nil
		}
	}
	return model.ContentItem{}, ErrNotFound
}

func (s *ContentStore) CountByVariant(v model.Variant) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, item := range s.items {
		if item.Type == v {
			n++
		}
	}
	return n
}

func (s *ContentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// items are kept oldest first internally; Query reverses.
func (s *ContentStore) snapshot() []model.ContentItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ContentItem(nil), s.items...)
}
