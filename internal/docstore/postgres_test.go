package docstore

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, "documents"), mock
}

func TestPostgresStore_CommitIsOneTransaction(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "documents"`)).
		WithArgs(Stores, "s1", `{"name":"Riyadh"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`data = "documents".data || EXCLUDED.data`)).
		WithArgs(DailyMetrics, "v1", `{"visitors":10}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "documents"`)).
		WithArgs(Employees, "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := NewBatch()
	b.Set(Stores, "s1", map[string]any{"name": "Riyadh"}, false)
	b.Set(DailyMetrics, "v1", map[string]any{"visitors": 10}, true)
	b.Delete(Employees, "e1")

	require.NoError(t, s.Commit(context.Background(), b))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CommitRollsBackOnError(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "documents"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "documents"`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	b := NewBatch()
	b.Set(Stores, "s1", map[string]any{"name": "Riyadh"}, false)
	b.Set(Stores, "s2", map[string]any{"name": "Jeddah"}, false)

	err := s.Commit(context.Background(), b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetAndList(t *testing.T) {
	s, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM "documents" WHERE collection = $1 AND id = $2`)).
		WithArgs(Stores, "s1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"name":"Riyadh","target":100000}`)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM "documents"`)).
		WithArgs(Stores, "nope").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, data FROM "documents" WHERE collection = $1 ORDER BY id`)).
		WithArgs(Stores).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).
			AddRow("s1", []byte(`{"name":"Riyadh"}`)).
			AddRow("s2", []byte(`{"name":"Jeddah"}`)))

	doc, err := s.Get(ctx, Stores, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Riyadh", doc.Data["name"])
	assert.Equal(t, float64(100000), doc.Data["target"])

	_, err = s.Get(ctx, Stores, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	docs, err := s.List(ctx, Stores)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "s2", docs[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "documents"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
