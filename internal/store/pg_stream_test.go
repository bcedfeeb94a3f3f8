package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twinfoundation/auditable-item-stream/internal/model"
	"github.com/twinfoundation/auditable-item-stream/internal/store"
)

func streamColumns() []string {
	return []string{
		"id", "date_created", "date_modified", "node_identity", "user_identity",
		"annotation_object", "index_counter", "immutable_interval", "hash", "signature", "immutable_storage_id",
	}
}

func TestPGStreamStorePutUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := store.NewPGStreamStore(db)

	mock.ExpectExec("INSERT INTO auditable_item_stream").
		WithArgs("s1", sqlmock.AnyArg(), sqlmock.AnyArg(), "", "did:user:1", sqlmock.AnyArg(), 0, 10, "h", "sig", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = s.Put(context.Background(), &model.Stream{
		ID: "s1", DateCreated: time.Now().UTC(), UserIdentity: "did:user:1",
		ImmutableInterval: 10, Hash: "h", Signature: "sig",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStreamStoreGetFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := store.NewPGStreamStore(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(streamColumns()).
		AddRow("s1", now, nil, "did:node:1", "did:user:1", []byte(`{"k":"v"}`), 3, 10, "h", "sig", nil)
	mock.ExpectQuery("SELECT id, date_created").WithArgs("s1").WillReturnRows(rows)

	got, err := s.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "did:node:1", got.NodeIdentity)
	assert.Equal(t, 3, got.IndexCounter)
	assert.Equal(t, "v", got.AnnotationObject["k"])
	assert.Nil(t, got.DateModified)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStreamStoreGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := store.NewPGStreamStore(db)
	mock.ExpectQuery("SELECT id, date_created").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStreamStoreQueryAppliesInMemoryFilterAfterFetch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := store.NewPGStreamStore(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(streamColumns()).
		AddRow("s1", now, nil, "", "did:user:a", []byte(`{}`), 0, 10, "h", "sig", nil).
		AddRow("s2", now.Add(time.Minute), nil, "", "did:user:b", []byte(`{}`), 0, 10, "h", "sig", nil)
	mock.ExpectQuery("SELECT id, date_created").WithArgs(51).WillReturnRows(rows)

	page, err := s.Query(context.Background(), store.Query{
		Conditions: []store.Condition{{Property: "userIdentity", Comparison: store.Eq, Value: "did:user:b"}},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "s2", page.Items[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStreamStorePing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	s := store.NewPGStreamStore(db)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
