package engine

import (
	"context"

	"github.com/twinfoundation/auditable-item-stream/internal/credential"
	"github.com/twinfoundation/auditable-item-stream/internal/immutablestore"
	"github.com/twinfoundation/auditable-item-stream/internal/store"
	"github.com/twinfoundation/auditable-item-stream/internal/vault"
)

// Config is the process-wide configuration the engine is constructed
// with.
type Config struct {
	VaultKeyID               string
	AssertionMethodID        string
	DefaultImmutableInterval int
}

// DefaultConfig returns the engine's out-of-the-box defaults.
func DefaultConfig() Config {
	return Config{
		VaultKeyID:               "auditable-item-stream",
		AssertionMethodID:        "auditable-item-stream",
		DefaultImmutableInterval: 10,
	}
}

// Notifier is an optional collaborator the engine publishes
// stream/entry mutation events to after a successful write. It is
// never consulted for correctness — a nil Notifier (NoopNotifier) is a
// perfectly valid engine dependency.
type Notifier interface {
	StreamCreated(ctx context.Context, streamID string)
	EntryCreated(ctx context.Context, streamID, entryID string, index int)
	EntryRemoved(ctx context.Context, streamID, entryID string, index int)
}

// NoopNotifier discards every notification.
type NoopNotifier struct{}

func (NoopNotifier) StreamCreated(context.Context, string)             {}
func (NoopNotifier) EntryCreated(context.Context, string, string, int) {}
func (NoopNotifier) EntryRemoved(context.Context, string, string, int) {}

// Engine orchestrates the stream and entry lifecycle, integrating the
// hasher, vault signer gateway, credential gateway, immutable store,
// and the stream/entry stores behind one method per operation.
type Engine struct {
	cfg      Config
	vault    vault.Vault
	cred     credential.Gateway
	immut    immutablestore.Store
	streams  store.StreamStore
	entries  store.EntryStore
	notifier Notifier
	locks    *streamLocks
}

// New constructs an Engine. notifier may be nil, in which case
// NoopNotifier is used.
func New(
	cfg Config,
	v vault.Vault,
	cred credential.Gateway,
	immut immutablestore.Store,
	streams store.StreamStore,
	entries store.EntryStore,
	notifier Notifier,
) *Engine {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Engine{
		cfg:      cfg,
		vault:    v,
		cred:     cred,
		immut:    immut,
		streams:  streams,
		entries:  entries,
		notifier: notifier,
		locks:    newStreamLocks(),
	}
}
