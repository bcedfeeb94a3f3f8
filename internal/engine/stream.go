package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/twinfoundation/auditable-item-stream/internal/credential"
	"github.com/twinfoundation/auditable-item-stream/internal/hashing"
	"github.com/twinfoundation/auditable-item-stream/internal/ids"
	"github.com/twinfoundation/auditable-item-stream/internal/jsonld"
	"github.com/twinfoundation/auditable-item-stream/internal/model"
	"github.com/twinfoundation/auditable-item-stream/internal/store"
	"github.com/twinfoundation/auditable-item-stream/internal/verify"
)

// CreateOptions carries the per-call overrides create() accepts.
type CreateOptions struct {
	ImmutableInterval *int
}

// EntryInput is a single entry supplied inline to create().
type EntryInput struct {
	EntryObject map[string]interface{}
}

// Create implements the stream engine's create operation.
func (e *Engine) Create(
	ctx context.Context,
	annotationObject map[string]interface{},
	entries []EntryInput,
	opts CreateOptions,
	userIdentity string,
	nodeIdentity string,
) (string, error) {
	const op = "create"

	if userIdentity == "" || nodeIdentity == "" {
		return "", wrapErr(op, KindValidation, fmt.Errorf("userIdentity and nodeIdentity are required"))
	}
	if err := jsonld.Validate(annotationObject); err != nil {
		return "", wrapErr(op, KindValidation, err)
	}

	streamHex, err := ids.New()
	if err != nil {
		return "", wrapErr(op, KindCreateFailed, err)
	}

	now := time.Now().UTC()
	interval := e.cfg.DefaultImmutableInterval
	if opts.ImmutableInterval != nil {
		interval = *opts.ImmutableInterval
	}

	s := &model.Stream{
		ID:                streamHex,
		DateCreated:       now,
		DateModified:      timePtr(now),
		NodeIdentity:      nodeIdentity,
		UserIdentity:      userIdentity,
		AnnotationObject:  annotationObject,
		IndexCounter:      0,
		ImmutableInterval: interval,
	}

	if err := e.signStream(ctx, s); err != nil {
		return "", wrapErr(op, KindCreateFailed, err)
	}
	if err := e.anchorStream(ctx, s); err != nil {
		return "", wrapErr(op, KindCreateFailed, err)
	}

	lock := e.locks.get(streamHex)
	lock.Lock()
	defer lock.Unlock()

	sectx := setEntryContext{
		now:               now,
		userIdentity:      userIdentity,
		immutableInterval: interval,
	}
	for _, in := range entries {
		partial := entryPartial{entryObject: in.EntryObject}
		if _, err := e.setEntry(ctx, &sectx, streamHex, partial); err != nil {
			return "", wrapErr(op, KindCreateFailed, err)
		}
		s.IndexCounter = sectx.indexCounter
	}

	if err := e.streams.Put(ctx, s); err != nil {
		return "", wrapErr(op, KindCreateFailed, err)
	}

	e.notifier.StreamCreated(ctx, streamHex)
	return ids.StreamURN(streamHex), nil
}

// signStream computes and sets a stream's hash and signature. The
// stream's hash does not cover AnnotationObject — only its
// identity-bound attributes — so the annotation object is never an
// input here, and update() never needs to recompute it.
func (e *Engine) signStream(ctx context.Context, s *model.Stream) error {
	digest, err := hashing.Digest(hashing.Subject{
		ID:           s.ID,
		DateCreated:  s.DateCreated.Format(time.RFC3339Nano),
		NodeIdentity: s.NodeIdentity,
		UserIdentity: s.UserIdentity,
		Object:       nil,
		Index:        nil,
	})
	if err != nil {
		return fmt.Errorf("hash stream: %w", err)
	}
	sig, err := e.vault.Sign(ctx, e.cfg.VaultKeyID, digest)
	if err != nil {
		return fmt.Errorf("sign stream: %w", err)
	}
	s.Hash = b64(digest)
	s.Signature = b64(sig)
	return nil
}

// anchorStream issues and stores the stream's anchoring credential. A
// stream is always anchored on creation regardless of
// ImmutableInterval.
func (e *Engine) anchorStream(ctx context.Context, s *model.Stream) error {
	subject := credential.Subject{
		Kind:         credential.KindStream,
		DateCreated:  s.DateCreated.Format(time.RFC3339Nano),
		UserIdentity: s.UserIdentity,
		Hash:         s.Hash,
		Signature:    s.Signature,
	}
	blob, err := e.cred.Issue(ctx, subject)
	if err != nil {
		return fmt.Errorf("issue stream credential: %w", err)
	}
	storageID, err := e.immut.Put(ctx, blob)
	if err != nil {
		return fmt.Errorf("store stream credential: %w", err)
	}
	s.ImmutableStorageID = &storageID
	return nil
}

// GetOptions controls what Get returns alongside the stream record.
type GetOptions struct {
	IncludeEntries bool
	IncludeDeleted bool
	VerifyStream   bool
	VerifyEntries  bool
}

// StreamView is the result of Get: the stream plus any requested
// verification state and first page of entries.
type StreamView struct {
	Stream           *model.Stream
	StreamVerify     *verify.Result
	Entries          []EntryView
	EntriesCursor    string
}

// EntryView pairs an entry with its optional verification result.
type EntryView struct {
	Entry        *model.Entry
	EntryVerify  *verify.Result
}

// Get implements the stream engine's get operation.
func (e *Engine) Get(ctx context.Context, urn string, opts GetOptions) (*StreamView, error) {
	const op = "get"

	streamHex, err := ids.ParseStreamURN(urn)
	if err != nil {
		return nil, wrapErr(op, kindForParseErr(err), err)
	}

	s, err := e.streams.Get(ctx, streamHex)
	if err != nil {
		if err == model.ErrNotFound {
			return nil, wrapErr(op, KindNotFound, err)
		}
		return nil, wrapErr(op, KindGetFailed, err)
	}

	view := &StreamView{Stream: s}

	if opts.VerifyStream {
		r, err := verify.VerifyStream(ctx, e.vault, e.cred, e.immut, e.cfg.VaultKeyID, s)
		if err != nil {
			return nil, wrapErr(op, KindGetFailed, err)
		}
		view.StreamVerify = r
	}

	if opts.IncludeEntries {
		page, err := e.findEntries(ctx, streamHex, findEntriesOptions{
			IncludeDeleted: opts.IncludeDeleted,
			VerifyEntries:  opts.VerifyEntries,
		})
		if err != nil {
			return nil, wrapErr(op, KindGetFailed, err)
		}
		view.Entries = page.Entries
		view.EntriesCursor = page.Cursor
	}

	return view, nil
}

// Update implements the stream engine's update operation.
// Only the annotation object is mutable; the stream is
// never re-hashed or re-signed on update.
func (e *Engine) Update(ctx context.Context, urn string, annotationObject map[string]interface{}, userIdentity, nodeIdentity string) error {
	const op = "update"

	streamHex, err := ids.ParseStreamURN(urn)
	if err != nil {
		return wrapErr(op, kindForParseErr(err), err)
	}
	if err := jsonld.Validate(annotationObject); err != nil {
		return wrapErr(op, KindValidation, err)
	}

	lock := e.locks.get(streamHex)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.streams.Get(ctx, streamHex)
	if err != nil {
		if err == model.ErrNotFound {
			return wrapErr(op, KindNotFound, err)
		}
		return wrapErr(op, KindUpdateFailed, err)
	}

	if jsonld.Equal(s.AnnotationObject, annotationObject) {
		return nil
	}

	s.AnnotationObject = annotationObject
	now := time.Now().UTC()
	s.DateModified = &now

	if err := e.streams.Put(ctx, s); err != nil {
		return wrapErr(op, KindUpdateFailed, err)
	}
	return nil
}

// QueryOptions controls a stream list query.
type QueryOptions struct {
	Conditions       []store.Condition
	OrderBy          store.OrderBy
	OrderByDirection store.Direction
	Cursor           string
	PageSize         int
}

// QueryResult is the page of streams a query returns.
type QueryResult struct {
	Streams []*model.Stream
	Cursor  string
}

// Query implements the stream engine's query operation.
// The "entries" property is never expanded in a list query; callers
// that need a stream's entries call Get with IncludeEntries.
func (e *Engine) Query(ctx context.Context, opts QueryOptions) (*QueryResult, error) {
	const op = "query"

	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = store.OrderByDateCreated
	}
	dir := opts.OrderByDirection
	if dir == "" {
		dir = store.Desc
	}

	page, err := e.streams.Query(ctx, store.Query{
		Conditions: opts.Conditions,
		OrderBy:    orderBy,
		Direction:  dir,
		Cursor:     opts.Cursor,
		PageSize:   opts.PageSize,
	})
	if err != nil {
		return nil, wrapErr(op, KindQueryingFailed, err)
	}
	return &QueryResult{Streams: page.Items, Cursor: page.Cursor}, nil
}

func kindForParseErr(err error) Kind {
	if err == ids.ErrNamespaceMismatch {
		return KindNamespaceMismatch
	}
	return KindValidation
}

func timePtr(t time.Time) *time.Time { return &t }
