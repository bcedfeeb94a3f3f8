package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twinfoundation/auditable-item-stream/internal/model"
)

// PGEntryStore persists entry records into Postgres, keyed by id and
// indexed by stream_id, grounded on the same
// audit.PGStore shape as PGStreamStore.
type PGEntryStore struct {
	db *sql.DB
}

// NewPGEntryStore constructs a Postgres-backed EntryStore.
func NewPGEntryStore(db *sql.DB) *PGEntryStore {
	return &PGEntryStore{db: db}
}

// Ping implements EntryStore.
func (p *PGEntryStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Put implements EntryStore: upsert keyed by id.
func (p *PGEntryStore) Put(ctx context.Context, e *model.Entry) error {
	objJSON, err := json.Marshal(e.EntryObject)
	if err != nil {
		return fmt.Errorf("store: marshal entryObject: %w", err)
	}

	const q = `
		INSERT INTO auditable_item_stream_entry
			(id, stream_id, date_created, date_modified, date_deleted, user_identity,
			 entry_object, index, hash, signature, immutable_storage_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			date_modified = EXCLUDED.date_modified,
			date_deleted = EXCLUDED.date_deleted,
			entry_object = EXCLUDED.entry_object,
			hash = EXCLUDED.hash,
			signature = EXCLUDED.signature,
			immutable_storage_id = EXCLUDED.immutable_storage_id
	`
	_, err = p.db.ExecContext(ctx, q,
		e.ID, e.StreamID, e.DateCreated, nullableTime(e.DateModified), nullableTime(e.DateDeleted), e.UserIdentity,
		objJSON, e.Index, e.Hash, e.Signature, nullableString(e.ImmutableStorageID),
	)
	if err != nil {
		return fmt.Errorf("store: upsert entry: %w", err)
	}
	return nil
}

// Get implements EntryStore.
func (p *PGEntryStore) Get(ctx context.Context, streamID, entryID string) (*model.Entry, error) {
	const q = `
		SELECT id, stream_id, date_created, date_modified, date_deleted, user_identity,
		       entry_object, index, hash, signature, immutable_storage_id
		FROM auditable_item_stream_entry WHERE stream_id = $1 AND id = $2
	`
	row := p.db.QueryRowContext(ctx, q, streamID, entryID)
	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("store: get entry: %w", err)
	}
	return e, nil
}

// Query implements EntryStore; same SQL-paginate-then-Go-filter
// approach as PGStreamStore.Query, see its comment for the tradeoff.
func (p *PGEntryStore) Query(ctx context.Context, streamID string, q Query) (Page[*model.Entry], error) {
	dir := "DESC"
	if q.Direction == Asc {
		dir = "ASC"
	}

	cur, err := decodeBackendCursor(q.Cursor)
	if err != nil {
		return Page[*model.Entry]{}, err
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var (
		sqlText string
		args    []interface{}
	)
	if cur.lastID == "" {
		sqlText = fmt.Sprintf(`
			SELECT id, stream_id, date_created, date_modified, date_deleted, user_identity,
			       entry_object, index, hash, signature, immutable_storage_id
			FROM auditable_item_stream_entry
			WHERE stream_id = $1
			ORDER BY date_created %s, id %s
			LIMIT $2
		`, dir, dir)
		args = []interface{}{streamID, pageSize + 1}
	} else {
		sqlText = fmt.Sprintf(`
			SELECT id, stream_id, date_created, date_modified, date_deleted, user_identity,
			       entry_object, index, hash, signature, immutable_storage_id
			FROM auditable_item_stream_entry
			WHERE stream_id = $1 AND date_created %s $3
			ORDER BY date_created %s, id %s
			LIMIT $2
		`, gtOrLt(dir), dir, dir)
		args = []interface{}{streamID, pageSize + 1, cur.lastSortKey}
	}

	rows, err := p.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return Page[*model.Entry]{}, fmt.Errorf("store: query entries: %w", err)
	}
	defer rows.Close()

	var fetched []*model.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return Page[*model.Entry]{}, fmt.Errorf("store: scan entry row: %w", err)
		}
		fetched = append(fetched, e)
	}
	if err := rows.Err(); err != nil {
		return Page[*model.Entry]{}, fmt.Errorf("store: rows: %w", err)
	}

	hasMore := len(fetched) > pageSize
	if hasMore {
		fetched = fetched[:pageSize]
	}

	var filtered []*model.Entry
	for _, e := range fetched {
		if Matches(EntryProperties(e), q.Conditions) {
			filtered = append(filtered, e)
		}
	}

	var cursor string
	if hasMore {
		last := fetched[len(fetched)-1]
		cursor = encodeBackendCursor(backendCursor{
			lastSortKey: last.DateCreated.Format(time.RFC3339Nano),
			lastID:      last.ID,
		})
	}

	return Page[*model.Entry]{Items: filtered, Cursor: cursor}, nil
}

// AllByStream implements EntryStore, streaming every row for streamID
// ordered oldest-first regardless of deletion state.
func (p *PGEntryStore) AllByStream(ctx context.Context, streamID string, fn func(*model.Entry) error) error {
	const q = `
		SELECT id, stream_id, date_created, date_modified, date_deleted, user_identity,
		       entry_object, index, hash, signature, immutable_storage_id
		FROM auditable_item_stream_entry
		WHERE stream_id = $1
		ORDER BY date_created ASC, id ASC
	`
	rows, err := p.db.QueryContext(ctx, q, streamID)
	if err != nil {
		return fmt.Errorf("store: query all entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return fmt.Errorf("store: scan entry row: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanEntry(row rowScanner) (*model.Entry, error) {
	var (
		e             model.Entry
		dateModified  sql.NullTime
		dateDeleted   sql.NullTime
		objJSON       []byte
		immutableID   sql.NullString
	)
	if err := row.Scan(
		&e.ID, &e.StreamID, &e.DateCreated, &dateModified, &dateDeleted, &e.UserIdentity,
		&objJSON, &e.Index, &e.Hash, &e.Signature, &immutableID,
	); err != nil {
		return nil, err
	}
	if dateModified.Valid {
		t := dateModified.Time
		e.DateModified = &t
	}
	if dateDeleted.Valid {
		t := dateDeleted.Time
		e.DateDeleted = &t
	}
	if immutableID.Valid {
		v := immutableID.String
		e.ImmutableStorageID = &v
	}
	if len(objJSON) > 0 && string(objJSON) != "null" {
		var m map[string]interface{}
		if err := json.Unmarshal(objJSON, &m); err == nil {
			e.EntryObject = m
		}
	}
	return &e, nil
}
