package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/twinfoundation/auditable-item-stream/internal/model"
)

// MemoryStreamStore is an in-memory StreamStore, used by engine unit
// tests the way ai-infra/internal/store.MemoryStore and
// eval-engine/internal/store.MemoryStore back their service tests:
// sync.RWMutex-guarded maps, no external dependency.
type MemoryStreamStore struct {
	mu      sync.RWMutex
	streams map[string]*model.Stream
}

// NewMemoryStreamStore constructs an empty MemoryStreamStore.
func NewMemoryStreamStore() *MemoryStreamStore {
	return &MemoryStreamStore{streams: make(map[string]*model.Stream)}
}

// Put implements StreamStore.
func (m *MemoryStreamStore) Put(_ context.Context, s *model.Stream) error {
	cp := *s
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[s.ID] = &cp
	return nil
}

// Get implements StreamStore.
func (m *MemoryStreamStore) Get(_ context.Context, id string) (*model.Stream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.streams[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// Query implements StreamStore.
func (m *MemoryStreamStore) Query(_ context.Context, q Query) (Page[*model.Stream], error) {
	m.mu.RLock()
	all := make([]*model.Stream, 0, len(m.streams))
	for _, s := range m.streams {
		cp := *s
		all = append(all, &cp)
	}
	m.mu.RUnlock()

	filtered := all[:0:0]
	for _, s := range all {
		if Matches(StreamProperties(s), q.Conditions) {
			filtered = append(filtered, s)
		}
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = OrderByDateCreated
	}
	dir := q.Direction
	if dir == "" {
		dir = Desc
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		ti := sortKeyStream(filtered[i], orderBy)
		tj := sortKeyStream(filtered[j], orderBy)
		if dir == Asc {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	cur, err := decodeBackendCursor(q.Cursor)
	if err != nil {
		return Page[*model.Stream]{}, err
	}
	start := 0
	if cur.lastID != "" {
		for i, s := range filtered {
			if s.ID == cur.lastID {
				start = i + 1
				break
			}
		}
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	var page []*model.Stream
	if start < len(filtered) {
		page = filtered[start:end]
	}

	var cursor string
	if end < len(filtered) && len(page) > 0 {
		last := page[len(page)-1]
		cursor = encodeBackendCursor(backendCursor{
			lastSortKey: sortKeyStream(last, orderBy).Format(time.RFC3339Nano),
			lastID:      last.ID,
		})
	}

	return Page[*model.Stream]{Items: page, Cursor: cursor}, nil
}

// Ping implements StreamStore.
func (m *MemoryStreamStore) Ping(_ context.Context) error { return nil }

func sortKeyStream(s *model.Stream, orderBy OrderBy) time.Time {
	if orderBy == OrderByDateModified {
		return zeroTimeIfNil(s.DateModified)
	}
	return s.DateCreated
}

// MemoryEntryStore is an in-memory EntryStore.
type MemoryEntryStore struct {
	mu sync.RWMutex
	// byStream holds entries keyed by streamID then entryID.
	byStream map[string]map[string]*model.Entry
}

// NewMemoryEntryStore constructs an empty MemoryEntryStore.
func NewMemoryEntryStore() *MemoryEntryStore {
	return &MemoryEntryStore{byStream: make(map[string]map[string]*model.Entry)}
}

// Put implements EntryStore.
func (m *MemoryEntryStore) Put(_ context.Context, e *model.Entry) error {
	cp := *e
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.byStream[e.StreamID]
	if !ok {
		bucket = make(map[string]*model.Entry)
		m.byStream[e.StreamID] = bucket
	}
	bucket[e.ID] = &cp
	return nil
}

// Get implements EntryStore.
func (m *MemoryEntryStore) Get(_ context.Context, streamID, entryID string) (*model.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket, ok := m.byStream[streamID]
	if !ok {
		return nil, model.ErrNotFound
	}
	e, ok := bucket[entryID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// Query implements EntryStore.
func (m *MemoryEntryStore) Query(_ context.Context, streamID string, q Query) (Page[*model.Entry], error) {
	m.mu.RLock()
	bucket := m.byStream[streamID]
	all := make([]*model.Entry, 0, len(bucket))
	for _, e := range bucket {
		cp := *e
		all = append(all, &cp)
	}
	m.mu.RUnlock()

	filtered := all[:0:0]
	for _, e := range all {
		if Matches(EntryProperties(e), q.Conditions) {
			filtered = append(filtered, e)
		}
	}

	dir := q.Direction
	if dir == "" {
		dir = Desc
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].DateCreated.Equal(filtered[j].DateCreated) {
			if dir == Asc {
				return filtered[i].Index < filtered[j].Index
			}
			return filtered[i].Index > filtered[j].Index
		}
		if dir == Asc {
			return filtered[i].DateCreated.Before(filtered[j].DateCreated)
		}
		return filtered[i].DateCreated.After(filtered[j].DateCreated)
	})

	cur, err := decodeBackendCursor(q.Cursor)
	if err != nil {
		return Page[*model.Entry]{}, err
	}
	start := 0
	if cur.lastID != "" {
		for i, e := range filtered {
			if e.ID == cur.lastID {
				start = i + 1
				break
			}
		}
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	var page []*model.Entry
	if start < len(filtered) {
		page = filtered[start:end]
	}

	var cursor string
	if end < len(filtered) && len(page) > 0 {
		last := page[len(page)-1]
		cursor = encodeBackendCursor(backendCursor{
			lastSortKey: last.DateCreated.Format(time.RFC3339Nano),
			lastID:      last.ID,
		})
	}

	return Page[*model.Entry]{Items: page, Cursor: cursor}, nil
}

// AllByStream implements EntryStore, visiting entries oldest-first.
func (m *MemoryEntryStore) AllByStream(_ context.Context, streamID string, fn func(*model.Entry) error) error {
	m.mu.RLock()
	bucket := m.byStream[streamID]
	all := make([]*model.Entry, 0, len(bucket))
	for _, e := range bucket {
		cp := *e
		all = append(all, &cp)
	}
	m.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].DateCreated.Before(all[j].DateCreated)
	})
	for _, e := range all {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Ping implements EntryStore.
func (m *MemoryEntryStore) Ping(_ context.Context) error { return nil }
