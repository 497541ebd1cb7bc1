package catalog

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when an item does not exist in the store.
var ErrNotFound = errors.New("catalog: item not found")

// Store is the source of media items.
type Store interface {
	List(ctx context.Context) ([]MediaItem, error)
	Get(ctx context.Context, id string) (*MediaItem, error)
	Search(ctx context.Context, query string) ([]MediaItem, error)
}

// Memory is a Store over a fixed slice of items.
type Memory struct {
	items []MediaItem
	byID  map[string]int
}

// NewMemory creates a Memory store. The slice is copied.
func NewMemory(items []MediaItem) *Memory {
	m := &Memory{
		items: append([]MediaItem(nil), items...),
		byID:  make(map[string]int, len(items)),
	}
	for i, it := range m.items {
		m.byID[it.ID] = i
	}
	return m
}

// List returns every item in catalog order. Never nil.
func (m *Memory) List(_ context.Context) ([]MediaItem, error) {
	out := make([]MediaItem, len(m.items))
	copy(out, m.items)
	return out, nil
}

// Get returns the item with the given id.
func (m *Memory) Get(_ context.Context, id string) (*MediaItem, error) {
	i, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	it := m.items[i]
	return &it, nil
}

// Search returns items whose title contains query, ignoring case. An empty
// query matches everything.
func (m *Memory) Search(_ context.Context, query string) ([]MediaItem, error) {
	out := make([]MediaItem, 0, len(m.items))
	for _, it := range m.items {
		if MatchesTitle(it.Title, query) {
			out = append(out, it)
		}
	}
	return out, nil
}

// MatchesTitle reports whether title matches a search query.
func MatchesTitle(title, query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(q))
}
