package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	table   string
	pkCol   string
	pkVal   any
	columns map[string]any
}

func (r *testRecord) Table() string             { return r.table }
func (r *testRecord) PrimaryKey() (string, any) { return r.pkCol, r.pkVal }
func (r *testRecord) Columns() map[string]any   { return r.columns }
func (r *testRecord) SetColumn(c string, v any) { r.columns[c] = v }

func TestFindExcludesSoftDeleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := NewSQLConnector(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM movies WHERE status = $1 AND deleted_at IS NULL")).
		WithArgs("published").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
			AddRow("m-1", []byte("Heat")))

	rows, err := conn.Find(context.Background(), "movies", map[string]any{"status": "published"}, nil, QueryParams{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "m-1", rows[0]["id"])
	// Byte slices from the driver come back as strings.
	assert.Equal(t, "Heat", rows[0]["title"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCriteriaOperators(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := NewSQLConnector(db)

	// Criteria columns are sorted, so the clause order is deterministic.
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM movies WHERE deleted_reason IS NULL AND published_at IS NOT NULL AND rating = ANY($1)")).
		WithArgs(pq.Array([]string{"PG", "R"})).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("m-1"))

	criteria := map[string]any{
		"rating":         []string{"PG", "R"},
		"deleted_reason": nil,
		"published_at":   NotNull{},
	}
	rows, err := conn.Find(context.Background(), "movies", criteria, nil, QueryParams{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindProjectionOrderingPaging(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := NewSQLConnector(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, title FROM movies WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT 10 OFFSET 20")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow("m-1", "Heat"))

	rows, err := conn.Find(context.Background(), "movies", nil, []string{"id", "title"},
		QueryParams{OrderBy: "-created_at", Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindRejectsInvalidIdentifiers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := NewSQLConnector(db)
	ctx := context.Background()

	_, err = conn.Find(ctx, "movies; DROP TABLE movies", nil, nil, QueryParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid identifier")

	_, err = conn.Find(ctx, "movies", nil, []string{"title, password"}, QueryParams{})
	require.Error(t, err)

	_, err = conn.Find(ctx, "movies", nil, nil, QueryParams{OrderBy: "created_at; --"})
	require.Error(t, err)

	_, err = conn.Find(ctx, "movies", map[string]any{"bad column": 1}, nil, QueryParams{})
	require.Error(t, err)

	// Nothing reached the driver.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSortsColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := NewSQLConnector(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO movies (created_at, id, title) VALUES ($1, $2, $3)")).
		WithArgs(now, "m-1", "Heat").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &testRecord{
		table: "movies",
		pkCol: "id",
		pkVal: "m-1",
		columns: map[string]any{
			"title":      "Heat",
			"id":         "m-1",
			"created_at": now,
		},
	}
	require.NoError(t, conn.Create(context.Background(), rec))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEmptyRecord(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := NewSQLConnector(db)
	rec := &testRecord{table: "movies", pkCol: "id", columns: map[string]any{}}

	err = conn.Create(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")
}

func TestUpdatePlacesKeyLast(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := NewSQLConnector(db)

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE movies SET title = $1, year = $2 WHERE id = $3")).
		WithArgs("Heat", 1995, "m-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &testRecord{
		table: "movies",
		pkCol: "id",
		pkVal: "m-1",
		columns: map[string]any{
			"id":    "m-1",
			"year":  1995,
			"title": "Heat",
		},
	}
	require.NoError(t, conn.Update(context.Background(), rec))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := NewSQLConnector(db)

	mock.ExpectExec(`UPDATE movies SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := &testRecord{
		table:   "movies",
		pkCol:   "id",
		pkVal:   "m-404",
		columns: map[string]any{"id": "m-404", "title": "Heat"},
	}
	err = conn.Update(context.Background(), rec)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSoftDeleteStampsRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := NewSQLConnector(db)
	stamp := Stamp("admin")

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE movies SET deleted_at = $1, deleted_by = $2 WHERE id = $3 AND deleted_at IS NULL")).
		WithArgs(stamp.At, "admin", "m-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &testRecord{table: "movies", pkCol: "id", pkVal: "m-1", columns: map[string]any{"id": "m-1"}}
	require.NoError(t, conn.SoftDelete(context.Background(), rec, stamp))

	// The stamp is mirrored onto the record so callers see the final state.
	assert.Equal(t, stamp.At, rec.columns["deleted_at"])
	assert.Equal(t, "admin", rec.columns["deleted_by"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteAlreadyDeleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := NewSQLConnector(db)

	mock.ExpectExec(`UPDATE movies SET deleted_at`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := &testRecord{table: "movies", pkCol: "id", pkVal: "m-1", columns: map[string]any{"id": "m-1"}}
	err = conn.SoftDelete(context.Background(), rec, Stamp("admin"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotContains(t, rec.columns, "deleted_at")
}

func TestHardDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := NewSQLConnector(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM movies WHERE id = $1")).
		WithArgs("m-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &testRecord{table: "movies", pkCol: "id", pkVal: "m-1", columns: map[string]any{"id": "m-1"}}
	require.NoError(t, conn.HardDelete(context.Background(), rec))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := NewSQLConnector(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT EXISTS(SELECT 1 FROM rel_1_movies_M_moviequotes WHERE deleted_at IS NULL AND one_movies_id = $1)")).
		WithArgs("m-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := conn.RecordExists(context.Background(), "rel_1_movies_M_moviequotes", map[string]any{
		"one_movies_id": "m-1",
		"deleted_at":    nil,
	})
	require.NoError(t, err)
	assert.True(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteWhere(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	conn := NewSQLConnector(db)
	stamp := Stamp("admin")

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE rel_N_users_M_roles SET deleted_at = $1, deleted_by = $2 WHERE many_roles_id = $3 AND deleted_at IS NULL")).
		WithArgs(stamp.At, "admin", "r-7").
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := conn.SoftDeleteWhere(context.Background(), "rel_N_users_M_roles",
		map[string]any{"many_roles_id": "r-7"}, stamp)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertError(t *testing.T) {
	assert.NoError(t, ConvertError(nil))

	assert.ErrorIs(t, ConvertError(sql.ErrNoRows), ErrNotFound)

	err := ConvertError(&pgconn.PgError{Code: "23505", Detail: "Key (email)=(a@b.c) already exists."})
	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.Contains(t, err.Error(), "already exists")
	assert.True(t, IsUniqueViolation(err))

	assert.ErrorIs(t, ConvertError(&pgconn.PgError{Code: "23503"}), ErrForeignKeyViolation)
	assert.ErrorIs(t, ConvertError(&pgconn.PgError{Code: "23514"}), ErrCheckViolation)

	err = ConvertError(&pgconn.PgError{Code: "23502", ColumnName: "title"})
	assert.ErrorIs(t, err, ErrNotNullViolation)
	assert.Contains(t, err.Error(), "title")

	plain := errors.New("connection refused")
	assert.Same(t, plain, ConvertError(plain))
}
