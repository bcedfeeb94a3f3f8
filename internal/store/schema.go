package store

import (
	"database/sql"
	"fmt"
)

// EnsureSchema creates the stream and entry tables if they do not
// already exist, the same bootstrap-on-connect approach as a
// keys.Store.ensureTable style helper.
func EnsureSchema(db *sql.DB) error {
	const q = `
CREATE TABLE IF NOT EXISTS auditable_item_stream (
  id                    text PRIMARY KEY,
  date_created          timestamptz NOT NULL,
  date_modified         timestamptz,
  node_identity         text NOT NULL,
  user_identity         text NOT NULL,
  annotation_object     jsonb,
  index_counter         integer NOT NULL DEFAULT 0,
  immutable_interval    integer NOT NULL DEFAULT 10,
  hash                  text NOT NULL,
  signature             text NOT NULL,
  immutable_storage_id  text
);
CREATE INDEX IF NOT EXISTS idx_ais_date_created ON auditable_item_stream (date_created DESC);
CREATE INDEX IF NOT EXISTS idx_ais_date_modified ON auditable_item_stream (date_modified DESC);

CREATE TABLE IF NOT EXISTS auditable_item_stream_entry (
  id                    text PRIMARY KEY,
  stream_id             text NOT NULL,
  date_created          timestamptz NOT NULL,
  date_modified         timestamptz,
  date_deleted          timestamptz,
  user_identity         text NOT NULL,
  entry_object          jsonb,
  index                 integer NOT NULL,
  hash                  text NOT NULL,
  signature             text NOT NULL,
  immutable_storage_id  text
);
CREATE INDEX IF NOT EXISTS idx_aise_stream_id ON auditable_item_stream_entry (stream_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_aise_stream_index ON auditable_item_stream_entry (stream_id, index);
CREATE INDEX IF NOT EXISTS idx_aise_stream_date_created ON auditable_item_stream_entry (stream_id, date_created);
`
	if _, err := db.Exec(q); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}
