package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunebox/internal/domain/track"
)

func sampleTracks() []track.Track {
	return []track.Track{
		{
			ID:       "abc",
			Name:     "Kesariya",
			Artists:  "Arijit Singh",
			Album:    "Brahmastra",
			Images:   []track.Variant{{Quality: "500x500", URL: "https://c.saavncdn.com/500.jpg"}},
			Streams:  []track.Variant{{Quality: "320kbps", URL: "https://aac.saavncdn.com/320.mp4"}},
			Duration: 268 * time.Second,
			Source:   "saavn",
		},
		{ID: "def", Name: "Apna Bana Le", Artists: "Arijit Singh"},
	}
}

func TestDB_OnDisk(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "tunebox.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, db.Set(ctx, "k", "v1"))
	require.NoError(t, db.Set(ctx, "k", "v2"))
	v, err := db.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

}

func TestQueueRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "tunebox.db"))
	require.NoError(t, err)
	defer db.Close()

	repo := NewQueueRepository(db, "")
	assert.Empty(t, repo.LoadQueue(ctx))

	want := sampleTracks()
	repo.SaveQueue(ctx, want)
	assert.Equal(t, want, repo.LoadQueue(ctx))

	raw, err := db.Get(ctx, DefaultQueueKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"id":"abc"`)

	repo.SaveQueue(ctx, nil)
	got := repo.LoadQueue(ctx)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestQueueRepository_MalformedValue(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "tunebox.db"))
	require.NoError(t, err)
	defer db.Close()

	for _, raw := range []string{"{not json", `{"id":"abc"}`, "null"} {
		require.NoError(t, db.Set(ctx, DefaultQueueKey, raw))
		got := NewQueueRepository(db, DefaultQueueKey).LoadQueue(ctx)
		assert.NotNil(t, got, raw)
		assert.Empty(t, got, raw)
	}
}

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS kv")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	db, err := New(conn)
	require.NoError(t, err)
	return db, mock, conn
}

func TestDB_SetWithMock(t *testing.T) {
	db, mock, conn := newMock(t)
	defer conn.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)")).
		WithArgs("MUSIC_QUEUE", "[]", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, db.Set(context.Background(), "MUSIC_QUEUE", "[]"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_ErrorsAreMarked(t *testing.T) {
	db, mock, conn := newMock(t)
	defer conn.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv WHERE key = ?")).
		WithArgs("MUSIC_QUEUE").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv")).
		WillReturnError(errors.New("database is locked"))

	_, err := db.Get(context.Background(), "MUSIC_QUEUE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))

	err = db.Set(context.Background(), "MUSIC_QUEUE", "[]")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepository_StorageFailureYieldsEmptyQueue(t *testing.T) {
	db, mock, conn := newMock(t)
	defer conn.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv WHERE key = ?")).
		WithArgs("MUSIC_QUEUE").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv")).
		WillReturnError(errors.New("database is locked"))

	repo := NewQueueRepository(db, DefaultQueueKey)
	assert.Empty(t, repo.LoadQueue(context.Background()))
	repo.SaveQueue(context.Background(), sampleTracks())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_SchemaFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("read-only database"))

	_, err = New(conn)
	assert.Error(t, err)
}
