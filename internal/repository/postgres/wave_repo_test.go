package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/wave-portal/internal/errs"
	"github.com/and161185/wave-portal/internal/model"
)

const portal = "0x9C65B2C87fa0557a74Aa72Db309B466e0183bE1a"

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func wave(msg string, sec int64) model.ArchivedWave {
	return model.ArchivedWave{
		ID:          uuid.Must(uuid.NewV4()),
		Contract:    portal,
		Author:      "0x00000000000000000000000000000000000A11CE",
		Message:     msg,
		SubmittedAt: time.Unix(sec, 0).UTC(),
	}
}

const insertSQL = `INSERT INTO waves \(id, contract, author, message, submitted_at\) VALUES \(\$1,\$2,\$3,\$4,\$5\) ON CONFLICT \(id\) DO NOTHING`

func TestWaveRepo_SaveBatch_CountsNewRows(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWaveRepo(db)

	a, b := wave("a", 1), wave("b", 2)
	mock.ExpectBegin()
	mock.ExpectExec(insertSQL).
		WithArgs(a.ID, portal, string(a.Author), "a", a.SubmittedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(insertSQL).
		WithArgs(b.ID, portal, string(b.Author), "b", b.SubmittedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectCommit()

	n, err := r.SaveBatch(context.Background(), []model.ArchivedWave{a, b})
	require.NoError(t, err)
	require.Equal(t, 1, n, "existing id is skipped")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaveRepo_SaveBatch_Empty(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	n, err := NewWaveRepo(db).SaveBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaveRepo_SaveBatch_RollsBackOnError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWaveRepo(db)

	a := wave("a", 1)
	boom := errors.New("disk full")
	mock.ExpectBegin()
	mock.ExpectExec(insertSQL).
		WithArgs(a.ID, portal, string(a.Author), "a", a.SubmittedAt).
		WillReturnError(boom)
	mock.ExpectRollback()

	_, err := r.SaveBatch(context.Background(), []model.ArchivedWave{a})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaveRepo_Recent(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWaveRepo(db)

	a := wave("newest", 2)
	observed := time.Unix(100, 0).UTC()
	mock.ExpectQuery(`SELECT id, contract, author, message, submitted_at, observed_at\s+FROM waves\s+WHERE contract=\$1\s+ORDER BY submitted_at DESC, observed_at DESC\s+LIMIT \$2`).
		WithArgs(portal, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "contract", "author", "message", "submitted_at", "observed_at"}).
			AddRow(a.ID, portal, string(a.Author), "newest", a.SubmittedAt, observed))

	got, err := r.Recent(context.Background(), portal, 10)
	require.NoError(t, err)
	a.ObservedAt = observed
	require.Equal(t, []model.ArchivedWave{a}, got)
}

func TestWaveRepo_Latest_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWaveRepo(db)

	mock.ExpectQuery(`SELECT id, contract, author, message, submitted_at, observed_at\s+FROM waves WHERE contract=\$1`).
		WithArgs(portal).
		WillReturnError(pgx.ErrNoRows)

	_, err := r.Latest(context.Background(), portal)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestWaveRepo_Count(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewWaveRepo(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM waves WHERE contract=\$1`).
		WithArgs(portal).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	n, err := r.Count(context.Background(), portal)
	require.NoError(t, err)
	require.EqualValues(t, 7, n)
}
