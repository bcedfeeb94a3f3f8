package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinfoundation/auditable-item-stream/internal/model"
	"github.com/twinfoundation/auditable-item-stream/internal/store"
)

func TestMemoryStreamStorePutGet(t *testing.T) {
	s := store.NewMemoryStreamStore()
	ctx := context.Background()

	rec := &model.Stream{ID: "s1", DateCreated: time.Now().UTC(), Hash: "h", Signature: "sig"}
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, rec.Hash, got.Hash)

	// mutating the returned record must not affect the stored copy
	got.Hash = "mutated"
	reread, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "h", reread.Hash)
}

func TestMemoryStreamStoreGetNotFound(t *testing.T) {
	s := store.NewMemoryStreamStore()
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryStreamStoreQueryOrderingAndPaging(t *testing.T) {
	s := store.NewMemoryStreamStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put(ctx, &model.Stream{
			ID:          string(rune('a' + i)),
			DateCreated: base.Add(time.Duration(i) * time.Hour),
			Hash:        "h", Signature: "sig",
		}))
	}

	page, err := s.Query(ctx, store.Query{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	// default order is dateCreated desc, so the most recently created
	// stream ("e") comes first.
	assert.Equal(t, "e", page.Items[0].ID)
	assert.Equal(t, "d", page.Items[1].ID)
	assert.NotEmpty(t, page.Cursor)

	next, err := s.Query(ctx, store.Query{PageSize: 2, Cursor: page.Cursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 2)
	assert.Equal(t, "c", next.Items[0].ID)
	assert.Equal(t, "b", next.Items[1].ID)
}

func TestMemoryStreamStoreQueryConditions(t *testing.T) {
	s := store.NewMemoryStreamStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &model.Stream{ID: "s1", DateCreated: time.Now().UTC(), UserIdentity: "did:user:a", Hash: "h", Signature: "sig"}))
	require.NoError(t, s.Put(ctx, &model.Stream{ID: "s2", DateCreated: time.Now().UTC(), UserIdentity: "did:user:b", Hash: "h", Signature: "sig"}))

	page, err := s.Query(ctx, store.Query{
		Conditions: []store.Condition{{Property: "userIdentity", Comparison: store.Eq, Value: "did:user:b"}},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "s2", page.Items[0].ID)
}

func TestMemoryEntryStorePutGetAndDeletedFilter(t *testing.T) {
	s := store.NewMemoryEntryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	e0 := &model.Entry{ID: "e0", StreamID: "s1", DateCreated: base, Index: 0, Hash: "h", Signature: "sig"}
	e1 := &model.Entry{ID: "e1", StreamID: "s1", DateCreated: base.Add(time.Minute), Index: 1, Hash: "h", Signature: "sig"}
	require.NoError(t, s.Put(ctx, e0))
	require.NoError(t, s.Put(ctx, e1))

	got, err := s.Get(ctx, "s1", "e0")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Index)

	deletedAt := base.Add(2 * time.Minute)
	e0.DateDeleted = &deletedAt
	require.NoError(t, s.Put(ctx, e0))

	page, err := s.Query(ctx, "s1", store.Query{
		Conditions: []store.Condition{{Property: "dateDeleted", Comparison: store.Eq, Value: nil}},
		OrderBy:    store.OrderByDateCreated,
		Direction:  store.Asc,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "e1", page.Items[0].ID)
}

func TestMemoryEntryStoreAllByStreamOldestFirst(t *testing.T) {
	s := store.NewMemoryEntryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Put(ctx, &model.Entry{ID: "e1", StreamID: "s1", DateCreated: base.Add(time.Hour), Index: 1, Hash: "h", Signature: "sig"}))
	require.NoError(t, s.Put(ctx, &model.Entry{ID: "e0", StreamID: "s1", DateCreated: base, Index: 0, Hash: "h", Signature: "sig"}))

	var seen []string
	require.NoError(t, s.AllByStream(ctx, "s1", func(e *model.Entry) error {
		seen = append(seen, e.ID)
		return nil
	}))
	assert.Equal(t, []string{"e0", "e1"}, seen)
}

func TestMemoryEntryStoreGetNotFound(t *testing.T) {
	s := store.NewMemoryEntryStore()
	_, err := s.Get(context.Background(), "s1", "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryEntryStoreQueryNestedCondition(t *testing.T) {
	s := store.NewMemoryEntryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Put(ctx, &model.Entry{
		ID: "e0", StreamID: "s1", DateCreated: base, Index: 0,
		EntryObject: map[string]interface{}{"content": "a"}, Hash: "h", Signature: "sig",
	}))
	require.NoError(t, s.Put(ctx, &model.Entry{
		ID: "e1", StreamID: "s1", DateCreated: base.Add(time.Minute), Index: 1,
		EntryObject: map[string]interface{}{"content": "b"}, Hash: "h", Signature: "sig",
	}))

	page, err := s.Query(ctx, "s1", store.Query{
		Conditions: []store.Condition{{Property: "entryObject.content", Comparison: store.Eq, Value: "b"}},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "e1", page.Items[0].ID)
}
