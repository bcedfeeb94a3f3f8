package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/twinfoundation/auditable-item-stream/internal/credential"
	"github.com/twinfoundation/auditable-item-stream/internal/hashing"
	"github.com/twinfoundation/auditable-item-stream/internal/ids"
	"github.com/twinfoundation/auditable-item-stream/internal/jsonld"
	"github.com/twinfoundation/auditable-item-stream/internal/model"
	"github.com/twinfoundation/auditable-item-stream/internal/store"
	"github.com/twinfoundation/auditable-item-stream/internal/verify"
)

// setEntryContext carries the state setEntry needs across a run of
// entries appended in one call: the assignment timestamp and the
// stream's running index counter. A single stream's indexCounter is
// only ever touched while its per-stream lock is held.
type setEntryContext struct {
	now               time.Time
	userIdentity      string
	immutableInterval int
	indexCounter      int
}

// entryPartial is the content setEntry assigns identity and position
// to; the entry's id, dateCreated, and index are always freshly
// assigned here, never supplied by the caller.
type entryPartial struct {
	entryObject map[string]interface{}
}

// setEntry mints a new entry under streamHex: it validates the entry
// object, assigns it the next index from sectx.indexCounter, computes
// and signs its digest, anchors it with a credential whenever its
// index lands on an immutableInterval boundary, and persists it. It is
// shared by Create (entries supplied inline at stream creation) and
// CreateEntry so both paths assign indices and anchor on exactly the
// same schedule.
func (e *Engine) setEntry(ctx context.Context, sectx *setEntryContext, streamHex string, partial entryPartial) (*model.Entry, error) {
	if err := jsonld.Validate(partial.entryObject); err != nil {
		return nil, err
	}

	entryHex, err := ids.New()
	if err != nil {
		return nil, fmt.Errorf("generate entry id: %w", err)
	}

	index := sectx.indexCounter
	sectx.indexCounter++

	entry := &model.Entry{
		ID:           entryHex,
		StreamID:     streamHex,
		DateCreated:  sectx.now,
		UserIdentity: sectx.userIdentity,
		EntryObject:  partial.entryObject,
		Index:        index,
	}

	digest, err := hashing.Digest(hashing.Subject{
		ID:          entryHex,
		DateCreated: entry.DateCreated.Format(time.RFC3339Nano),
		UserIdentity: sectx.userIdentity,
		Object:      partial.entryObject,
		Index:       &index,
	})
	if err != nil {
		return nil, fmt.Errorf("hash entry: %w", err)
	}
	sig, err := e.vault.Sign(ctx, e.cfg.VaultKeyID, digest)
	if err != nil {
		return nil, fmt.Errorf("sign entry: %w", err)
	}
	entry.Hash = b64(digest)
	entry.Signature = b64(sig)

	if sectx.immutableInterval > 0 && index%sectx.immutableInterval == 0 {
		subject := credential.Subject{
			Kind:         credential.KindEntry,
			DateCreated:  entry.DateCreated.Format(time.RFC3339Nano),
			UserIdentity: sectx.userIdentity,
			Hash:         entry.Hash,
			Signature:    entry.Signature,
			Index:        &index,
		}
		blob, err := e.cred.Issue(ctx, subject)
		if err != nil {
			return nil, fmt.Errorf("issue entry credential: %w", err)
		}
		storageID, err := e.immut.Put(ctx, blob)
		if err != nil {
			return nil, fmt.Errorf("store entry credential: %w", err)
		}
		entry.ImmutableStorageID = &storageID
	}

	if err := e.entries.Put(ctx, entry); err != nil {
		return nil, fmt.Errorf("persist entry: %w", err)
	}

	e.notifier.EntryCreated(ctx, streamHex, entryHex, index)
	return entry, nil
}

// CreateEntry appends a single entry to an existing stream. nodeIdentity
// is accepted to match the operation's documented signature but is
// currently unused: an entry's persisted record has no nodeIdentity
// field, and its hash/signature never cover one.
func (e *Engine) CreateEntry(ctx context.Context, streamURN string, entryObject map[string]interface{}, userIdentity, nodeIdentity string) (string, error) {
	const op = "createEntry"

	streamHex, err := ids.ParseStreamURN(streamURN)
	if err != nil {
		return "", wrapErr(op, kindForParseErr(err), err)
	}
	if userIdentity == "" {
		return "", wrapErr(op, KindValidation, fmt.Errorf("userIdentity is required"))
	}

	lock := e.locks.get(streamHex)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.streams.Get(ctx, streamHex)
	if err != nil {
		if err == model.ErrNotFound {
			return "", wrapErr(op, KindNotFound, err)
		}
		return "", wrapErr(op, KindCreatingEntryFailed, err)
	}

	now := time.Now().UTC()
	sectx := setEntryContext{
		now:               now,
		userIdentity:      userIdentity,
		immutableInterval: s.ImmutableInterval,
		indexCounter:      s.IndexCounter,
	}
	entry, err := e.setEntry(ctx, &sectx, streamHex, entryPartial{entryObject: entryObject})
	if err != nil {
		return "", wrapErr(op, KindCreatingEntryFailed, err)
	}

	s.IndexCounter = sectx.indexCounter
	s.DateModified = &now
	if err := e.streams.Put(ctx, s); err != nil {
		return "", wrapErr(op, KindCreatingEntryFailed, err)
	}

	return ids.EntryURN(streamHex, entry.ID), nil
}

// GetEntryOptions controls whether GetEntry verifies the entry it
// returns.
type GetEntryOptions struct {
	VerifyEntry bool
}

// GetEntry fetches a single entry by its URN.
func (e *Engine) GetEntry(ctx context.Context, entryURN string, opts GetEntryOptions) (*EntryView, error) {
	const op = "getEntry"

	streamHex, entryHex, err := ids.ParseEntryURN(entryURN)
	if err != nil {
		return nil, wrapErr(op, kindForParseErr(err), err)
	}

	entry, err := e.entries.Get(ctx, streamHex, entryHex)
	if err != nil {
		if err == model.ErrNotFound {
			return nil, wrapErr(op, KindNotFound, err)
		}
		return nil, wrapErr(op, KindGettingEntryFailed, err)
	}

	view := &EntryView{Entry: entry}
	if opts.VerifyEntry {
		r, err := verify.VerifyEntry(ctx, e.vault, e.cred, e.immut, e.cfg.VaultKeyID, entry)
		if err != nil {
			return nil, wrapErr(op, KindGettingEntryFailed, err)
		}
		view.EntryVerify = r
	}
	return view, nil
}

// GetEntryObject fetches only an entry's payload, without its
// envelope fields, for callers that don't need hash/signature/verify
// state.
func (e *Engine) GetEntryObject(ctx context.Context, entryURN string) (map[string]interface{}, error) {
	const op = "getEntryObject"

	streamHex, entryHex, err := ids.ParseEntryURN(entryURN)
	if err != nil {
		return nil, wrapErr(op, kindForParseErr(err), err)
	}

	entry, err := e.entries.Get(ctx, streamHex, entryHex)
	if err != nil {
		if err == model.ErrNotFound {
			return nil, wrapErr(op, KindNotFound, err)
		}
		return nil, wrapErr(op, KindGettingEntryObjectFailed, err)
	}
	return entry.EntryObject, nil
}

// UpdateEntry replaces an entry's payload in place. The
// entry's id, dateCreated, and index never change; its hash and
// signature are recomputed over the new payload, but it is never
// re-anchored — an existing immutableStorageId is left exactly as is,
// the same asymmetry the stream's update() observes for its own hash.
// Any entry mutation also refreshes the owning stream's dateModified.
// userIdentity becomes the entry's recorded userIdentity and is covered
// by the recomputed hash. nodeIdentity is accepted to match the
// operation's documented signature but is unused, for the same reason
// CreateEntry's nodeIdentity is.
func (e *Engine) UpdateEntry(ctx context.Context, entryURN string, entryObject map[string]interface{}, userIdentity, nodeIdentity string) error {
	const op = "updateEntry"

	streamHex, entryHex, err := ids.ParseEntryURN(entryURN)
	if err != nil {
		return wrapErr(op, kindForParseErr(err), err)
	}
	if userIdentity == "" {
		return wrapErr(op, KindValidation, fmt.Errorf("userIdentity is required"))
	}
	if err := jsonld.Validate(entryObject); err != nil {
		return wrapErr(op, KindValidation, err)
	}

	lock := e.locks.get(streamHex)
	lock.Lock()
	defer lock.Unlock()

	entry, err := e.entries.Get(ctx, streamHex, entryHex)
	if err != nil {
		if err == model.ErrNotFound {
			return wrapErr(op, KindNotFound, err)
		}
		return wrapErr(op, KindUpdatingEntryFailed, err)
	}
	if entry.IsDeleted() {
		return wrapErr(op, KindUpdatingEntryFailed, fmt.Errorf("entry %s has been removed", entryURN))
	}

	if jsonld.Equal(entry.EntryObject, entryObject) {
		return nil
	}

	entry.EntryObject = entryObject
	entry.UserIdentity = userIdentity
	index := entry.Index
	digest, err := hashing.Digest(hashing.Subject{
		ID:           entry.ID,
		DateCreated:  entry.DateCreated.Format(time.RFC3339Nano),
		UserIdentity: entry.UserIdentity,
		Object:       entryObject,
		Index:        &index,
	})
	if err != nil {
		return wrapErr(op, KindUpdatingEntryFailed, fmt.Errorf("hash entry: %w", err))
	}
	sig, err := e.vault.Sign(ctx, e.cfg.VaultKeyID, digest)
	if err != nil {
		return wrapErr(op, KindUpdatingEntryFailed, fmt.Errorf("sign entry: %w", err))
	}
	entry.Hash = b64(digest)
	entry.Signature = b64(sig)

	now := time.Now().UTC()
	entry.DateModified = &now

	if err := e.entries.Put(ctx, entry); err != nil {
		return wrapErr(op, KindUpdatingEntryFailed, err)
	}

	s, err := e.streams.Get(ctx, streamHex)
	if err != nil {
		return wrapErr(op, KindUpdatingEntryFailed, err)
	}
	s.DateModified = &now
	if err := e.streams.Put(ctx, s); err != nil {
		return wrapErr(op, KindUpdatingEntryFailed, err)
	}
	return nil
}

// RemoveEntry soft-deletes an entry and refreshes the owning stream's
// dateModified. Removing an already-deleted entry is a no-op, not an
// error, and leaves the stream record untouched. userIdentity and
// nodeIdentity are accepted to match the operation's documented
// signature but are unused: removal only sets dateDeleted, and the
// entry's hash, signature and userIdentity are left as they were.
func (e *Engine) RemoveEntry(ctx context.Context, entryURN string, userIdentity, nodeIdentity string) error {
	const op = "removeEntry"

	streamHex, entryHex, err := ids.ParseEntryURN(entryURN)
	if err != nil {
		return wrapErr(op, kindForParseErr(err), err)
	}

	lock := e.locks.get(streamHex)
	lock.Lock()
	defer lock.Unlock()

	entry, err := e.entries.Get(ctx, streamHex, entryHex)
	if err != nil {
		if err == model.ErrNotFound {
			return wrapErr(op, KindNotFound, err)
		}
		return wrapErr(op, KindRemovingEntryFailed, err)
	}
	if entry.IsDeleted() {
		return nil
	}

	now := time.Now().UTC()
	entry.DateDeleted = &now
	if err := e.entries.Put(ctx, entry); err != nil {
		return wrapErr(op, KindRemovingEntryFailed, err)
	}

	s, err := e.streams.Get(ctx, streamHex)
	if err != nil {
		return wrapErr(op, KindRemovingEntryFailed, err)
	}
	s.DateModified = &now
	if err := e.streams.Put(ctx, s); err != nil {
		return wrapErr(op, KindRemovingEntryFailed, err)
	}

	e.notifier.EntryRemoved(ctx, streamHex, entryHex, entry.Index)
	return nil
}

// findEntriesOptions is the shared shape behind both the internal
// expansion Get(IncludeEntries) performs and the exported FindEntries
// query surface.
type findEntriesOptions struct {
	Conditions       []store.Condition
	IncludeDeleted   bool
	VerifyEntries    bool
	OrderBy          store.OrderBy
	OrderByDirection store.Direction
	Cursor           string
	PageSize         int
}

// EntriesPage is a page of entries returned by findEntries.
type EntriesPage struct {
	Entries []EntryView
	Cursor  string
}

// findEntries runs a filtered, paginated read of one stream's entries,
// excluding soft-deleted entries unless IncludeDeleted is set. The
// includeDeleted flag travels inside the cursor it returns so a caller
// paging through results never has to resupply it.
func (e *Engine) findEntries(ctx context.Context, streamHex string, opts findEntriesOptions) (*EntriesPage, error) {
	includeDeleted := opts.IncludeDeleted
	innerCursor := opts.Cursor
	if opts.Cursor != "" {
		var err error
		includeDeleted, innerCursor, err = unwrapCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}
	}

	conditions := opts.Conditions
	if !includeDeleted {
		conditions = append(append([]store.Condition{}, conditions...), store.Condition{
			Property:   "dateDeleted",
			Comparison: store.Eq,
			Value:      nil,
		})
	}

	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = store.OrderByDateCreated
	}
	dir := opts.OrderByDirection
	if dir == "" {
		dir = store.Asc
	}

	page, err := e.entries.Query(ctx, streamHex, store.Query{
		Conditions: conditions,
		OrderBy:    orderBy,
		Direction:  dir,
		Cursor:     innerCursor,
		PageSize:   opts.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}

	views := make([]EntryView, 0, len(page.Items))
	for _, entry := range page.Items {
		view := EntryView{Entry: entry}
		if opts.VerifyEntries {
			r, err := verify.VerifyEntry(ctx, e.vault, e.cred, e.immut, e.cfg.VaultKeyID, entry)
			if err != nil {
				return nil, err
			}
			view.EntryVerify = r
		}
		views = append(views, view)
	}

	return &EntriesPage{Entries: views, Cursor: wrapCursor(includeDeleted, page.Cursor)}, nil
}

// FindEntriesOptions parameterizes a direct entry query against one
// stream.
type FindEntriesOptions struct {
	Conditions       []store.Condition
	IncludeDeleted   bool
	VerifyEntries    bool
	OrderBy          store.OrderBy
	OrderByDirection store.Direction
	Cursor           string
	PageSize         int
}

// FindEntries is the exported entry query operation.
func (e *Engine) FindEntries(ctx context.Context, streamURN string, opts FindEntriesOptions) (*EntriesPage, error) {
	const op = "findEntries"

	streamHex, err := ids.ParseStreamURN(streamURN)
	if err != nil {
		return nil, wrapErr(op, kindForParseErr(err), err)
	}

	page, err := e.findEntries(ctx, streamHex, findEntriesOptions(opts))
	if err != nil {
		return nil, wrapErr(op, KindGettingEntriesFailed, err)
	}
	return page, nil
}

// EntryObjectsPage is a page of bare entry payloads returned by
// GetEntryObjects, alongside the cursor to resume from.
type EntryObjectsPage struct {
	EntryObjects []map[string]interface{}
	Cursor       string
}

// GetEntryObjects runs the same filtered, paginated read as FindEntries
// but projects only each entry's payload, for callers that want a
// stream's content without its hash/signature/anchoring envelope.
func (e *Engine) GetEntryObjects(ctx context.Context, streamURN string, opts FindEntriesOptions) (*EntryObjectsPage, error) {
	const op = "getEntryObjects"

	streamHex, err := ids.ParseStreamURN(streamURN)
	if err != nil {
		return nil, wrapErr(op, kindForParseErr(err), err)
	}

	page, err := e.findEntries(ctx, streamHex, findEntriesOptions(opts))
	if err != nil {
		return nil, wrapErr(op, KindGettingEntryObjectsFailed, err)
	}

	objects := make([]map[string]interface{}, 0, len(page.Entries))
	for _, view := range page.Entries {
		objects = append(objects, view.Entry.EntryObject)
	}
	return &EntryObjectsPage{EntryObjects: objects, Cursor: page.Cursor}, nil
}

// RemoveImmutable clears every anchored credential belonging to a
// stream and its entries: an administrative operation for responding
// to a right-to-be-forgotten or key-compromise event without losing
// the stream's append-only history. It does not alter any
// hash or signature — only the pointer to the now-deleted credential.
func (e *Engine) RemoveImmutable(ctx context.Context, streamURN string) error {
	const op = "removeImmutable"

	streamHex, err := ids.ParseStreamURN(streamURN)
	if err != nil {
		return wrapErr(op, kindForParseErr(err), err)
	}

	lock := e.locks.get(streamHex)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.streams.Get(ctx, streamHex)
	if err != nil {
		if err == model.ErrNotFound {
			return wrapErr(op, KindNotFound, err)
		}
		return wrapErr(op, KindRemoveImmutableFailed, err)
	}

	var walkErr error
	err = e.entries.AllByStream(ctx, streamHex, func(entry *model.Entry) error {
		if entry.ImmutableStorageID == nil {
			return nil
		}
		if err := e.immut.Remove(ctx, *entry.ImmutableStorageID); err != nil {
			return fmt.Errorf("remove entry credential %s: %w", entry.ID, err)
		}
		entry.ImmutableStorageID = nil
		if err := e.entries.Put(ctx, entry); err != nil {
			return fmt.Errorf("persist entry %s: %w", entry.ID, err)
		}
		return nil
	})
	if err != nil {
		walkErr = err
	}
	if walkErr != nil {
		return wrapErr(op, KindRemoveImmutableFailed, walkErr)
	}

	if s.ImmutableStorageID != nil {
		if err := e.immut.Remove(ctx, *s.ImmutableStorageID); err != nil {
			return wrapErr(op, KindRemoveImmutableFailed, fmt.Errorf("remove stream credential: %w", err))
		}
		s.ImmutableStorageID = nil
		if err := e.streams.Put(ctx, s); err != nil {
			return wrapErr(op, KindRemoveImmutableFailed, err)
		}
	}

	return nil
}

func wrapCursor(includeDeleted bool, inner string) string {
	if inner == "" {
		return ""
	}
	flag := "0"
	if includeDeleted {
		flag = "1"
	}
	return flag + ":" + inner
}

func unwrapCursor(cursor string) (includeDeleted bool, inner string, err error) {
	if cursor == "" {
		return false, "", nil
	}
	parts := strings.SplitN(cursor, ":", 2)
	if len(parts) != 2 {
		return false, "", fmt.Errorf("engine: malformed cursor")
	}
	return parts[0] == "1", parts[1], nil
}
