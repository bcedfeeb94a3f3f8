package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twinfoundation/auditable-item-stream/internal/model"
)

// PGStreamStore persists stream records into Postgres, following the
// column-per-field, json.Marshal-for-JSONB shape of a typical
// audit.PGStore implementation.
type PGStreamStore struct {
	db *sql.DB
}

// NewPGStreamStore constructs a Postgres-backed StreamStore.
func NewPGStreamStore(db *sql.DB) *PGStreamStore {
	return &PGStreamStore{db: db}
}

// Ping implements StreamStore.
func (p *PGStreamStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Put implements StreamStore: an upsert keyed by id, matching how the
// engine treats Put as "persist current state" rather than
// insert-only.
func (p *PGStreamStore) Put(ctx context.Context, s *model.Stream) error {
	annotationJSON, err := json.Marshal(s.AnnotationObject)
	if err != nil {
		return fmt.Errorf("store: marshal annotationObject: %w", err)
	}

	const q = `
		INSERT INTO auditable_item_stream
			(id, date_created, date_modified, node_identity, user_identity,
			 annotation_object, index_counter, immutable_interval, hash, signature, immutable_storage_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			date_modified = EXCLUDED.date_modified,
			annotation_object = EXCLUDED.annotation_object,
			index_counter = EXCLUDED.index_counter,
			immutable_interval = EXCLUDED.immutable_interval,
			hash = EXCLUDED.hash,
			signature = EXCLUDED.signature,
			immutable_storage_id = EXCLUDED.immutable_storage_id
	`
	_, err = p.db.ExecContext(ctx, q,
		s.ID, s.DateCreated, nullableTime(s.DateModified), s.NodeIdentity, s.UserIdentity,
		annotationJSON, s.IndexCounter, s.ImmutableInterval, s.Hash, s.Signature, nullableString(s.ImmutableStorageID),
	)
	if err != nil {
		return fmt.Errorf("store: upsert stream: %w", err)
	}
	return nil
}

// Get implements StreamStore.
func (p *PGStreamStore) Get(ctx context.Context, id string) (*model.Stream, error) {
	const q = `
		SELECT id, date_created, date_modified, node_identity, user_identity,
		       annotation_object, index_counter, immutable_interval, hash, signature, immutable_storage_id
		FROM auditable_item_stream WHERE id = $1
	`
	row := p.db.QueryRowContext(ctx, q, id)
	s, err := scanStream(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("store: get stream: %w", err)
	}
	return s, nil
}

// Query implements StreamStore. The WHERE clause for Conditions is
// intentionally not pushed into SQL here: nested JSON-LD property
// paths vary per-call, so rows are fetched ordered and
// paginated by SQL, then filtered in Go with the same Matches
// predicate the in-memory store uses — keeping filter semantics
// identical across both backends. Fetching pageSize+1 rows per page
// and filtering afterward means a page with heavy Condition rejection
// can come back shorter than PageSize before the cursor is exhausted;
// callers that need exact page sizes under selective filters should
// page until Cursor is empty rather than assuming len(Items)==PageSize.
func (p *PGStreamStore) Query(ctx context.Context, q Query) (Page[*model.Stream], error) {
	orderCol := "date_created"
	if q.OrderBy == OrderByDateModified {
		orderCol = "date_modified"
	}
	dir := "DESC"
	if q.Direction == Asc {
		dir = "ASC"
	}

	cur, err := decodeBackendCursor(q.Cursor)
	if err != nil {
		return Page[*model.Stream]{}, err
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	sqlText := fmt.Sprintf(`
		SELECT id, date_created, date_modified, node_identity, user_identity,
		       annotation_object, index_counter, immutable_interval, hash, signature, immutable_storage_id
		FROM auditable_item_stream
		ORDER BY %s %s, id %s
		LIMIT $1
	`, orderCol, dir, dir)

	args := []interface{}{pageSize + 1}
	if cur.lastID != "" {
		sqlText = fmt.Sprintf(`
			SELECT id, date_created, date_modified, node_identity, user_identity,
			       annotation_object, index_counter, immutable_interval, hash, signature, immutable_storage_id
			FROM auditable_item_stream
			WHERE %s %s $2
			ORDER BY %s %s, id %s
			LIMIT $1
		`, orderCol, gtOrLt(dir), orderCol, dir, dir)
		args = append(args, cur.lastSortKey)
	}

	rows, err := p.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return Page[*model.Stream]{}, fmt.Errorf("store: query streams: %w", err)
	}
	defer rows.Close()

	var fetched []*model.Stream
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return Page[*model.Stream]{}, fmt.Errorf("store: scan stream row: %w", err)
		}
		fetched = append(fetched, s)
	}
	if err := rows.Err(); err != nil {
		return Page[*model.Stream]{}, fmt.Errorf("store: rows: %w", err)
	}

	hasMore := len(fetched) > pageSize
	if hasMore {
		fetched = fetched[:pageSize]
	}

	var filtered []*model.Stream
	for _, s := range fetched {
		if Matches(StreamProperties(s), q.Conditions) {
			filtered = append(filtered, s)
		}
	}

	var cursor string
	if hasMore {
		last := fetched[len(fetched)-1]
		key := last.DateCreated
		if q.OrderBy == OrderByDateModified {
			key = zeroTimeIfNil(last.DateModified)
		}
		cursor = encodeBackendCursor(backendCursor{
			lastSortKey: key.Format(time.RFC3339Nano),
			lastID:      last.ID,
		})
	}

	return Page[*model.Stream]{Items: filtered, Cursor: cursor}, nil
}

func gtOrLt(dir string) string {
	if dir == "ASC" {
		return ">"
	}
	return "<"
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStream(row rowScanner) (*model.Stream, error) {
	var (
		s              model.Stream
		dateModified   sql.NullTime
		annotationJSON []byte
		immutableID    sql.NullString
	)
	if err := row.Scan(
		&s.ID, &s.DateCreated, &dateModified, &s.NodeIdentity, &s.UserIdentity,
		&annotationJSON, &s.IndexCounter, &s.ImmutableInterval, &s.Hash, &s.Signature, &immutableID,
	); err != nil {
		return nil, err
	}
	if dateModified.Valid {
		t := dateModified.Time
		s.DateModified = &t
	}
	if immutableID.Valid {
		v := immutableID.String
		s.ImmutableStorageID = &v
	}
	if len(annotationJSON) > 0 && string(annotationJSON) != "null" {
		var m map[string]interface{}
		if err := json.Unmarshal(annotationJSON, &m); err == nil {
			s.AnnotationObject = m
		}
	}
	return &s, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
