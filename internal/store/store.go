package store

import (
	"context"

	"github.com/twinfoundation/auditable-item-stream/internal/model"
)

// StreamStore is the stream store contract.
type StreamStore interface {
	// Put inserts or replaces a stream record keyed by its id.
	Put(ctx context.Context, s *model.Stream) error

	// Get fetches a stream by id. Returns model.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*model.Stream, error)

	// Query runs a filtered, ordered, paginated read over streams.
	Query(ctx context.Context, q Query) (Page[*model.Stream], error)

	// Ping validates the store is reachable.
	Ping(ctx context.Context) error
}

// EntryStore is the entry store contract, queryable by
// stream id.
type EntryStore interface {
	// Put inserts or replaces an entry record keyed by its id.
	Put(ctx context.Context, e *model.Entry) error

	// Get fetches a single entry by (streamID, entryID). Returns
	// model.ErrNotFound if absent.
	Get(ctx context.Context, streamID, entryID string) (*model.Entry, error)

	// Query runs a filtered, ordered, paginated read over the entries
	// of a single stream.
	Query(ctx context.Context, streamID string, q Query) (Page[*model.Entry], error)

	// AllByStream iterates every entry of a stream, oldest first,
	// calling fn for each. Used by removeImmutable, which
	// needs to visit every entry regardless of deletion or pagination.
	AllByStream(ctx context.Context, streamID string, fn func(*model.Entry) error) error

	// Ping validates the store is reachable.
	Ping(ctx context.Context) error
}
