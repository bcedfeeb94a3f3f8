// Package immutablestore is the immutable-storage gateway: it stores,
// fetches, and removes opaque credential blobs. It mirrors an
// S3Archiver/FileStore split — S3 for a real deployment, a local-file
// backend for development and tests — narrowed to the store/fetch/
// remove trio the verifier and engine need.
package immutablestore

import "context"

// Store is the immutable-storage gateway contract.
type Store interface {
	// Put persists blob and returns an opaque storage id the engine
	// records as a record's immutableStorageId.
	Put(ctx context.Context, blob []byte) (string, error)

	// Get fetches the blob previously stored under id.
	Get(ctx context.Context, id string) ([]byte, error)

	// Remove deletes the blob stored under id. Removing an id that does
	// not exist is not an error — removeImmutable relies on this to stay
	// idempotent.
	Remove(ctx context.Context, id string) error
}
