package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/wave-portal/internal/errs"
	"github.com/and161185/wave-portal/internal/model"
)

// WaveRepo implements repository.WaveRepository using PostgreSQL.
type WaveRepo struct{ db *DB }

// NewWaveRepo constructs a wave repository.
func NewWaveRepo(db *DB) *WaveRepo { return &WaveRepo{db: db} }

const waveColumns = `id, contract, author, message, submitted_at, observed_at`

// SaveBatch inserts waves in one transaction. Existing ids are left untouched.
func (r *WaveRepo) SaveBatch(ctx context.Context, waves []model.ArchivedWave) (n int, err error) {
	if len(waves) == 0 {
		return 0, nil
	}
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const ins = `INSERT INTO waves (id, contract, author, message, submitted_at) VALUES ($1,$2,$3,$4,$5) ON CONFLICT (id) DO NOTHING`
	for _, w := range waves {
		tag, e := tx.Exec(ctx, ins, w.ID, w.Contract, string(w.Author), w.Message, w.SubmittedAt)
		if e != nil {
			err = e
			return 0, err
		}
		n += int(tag.RowsAffected())
	}
	return n, nil
}

// Recent returns up to limit waves, newest first.
func (r *WaveRepo) Recent(ctx context.Context, contract string, limit int) ([]model.ArchivedWave, error) {
	const q = `SELECT ` + waveColumns + `
FROM waves
WHERE contract=$1
ORDER BY submitted_at DESC, observed_at DESC
LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, contract, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ArchivedWave{}
	for rows.Next() {
		w, err := scanWave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Latest returns the newest wave or errs.ErrNotFound.
func (r *WaveRepo) Latest(ctx context.Context, contract string) (model.ArchivedWave, error) {
	const q = `SELECT ` + waveColumns + `
FROM waves WHERE contract=$1
ORDER BY submitted_at DESC, observed_at DESC
LIMIT 1`
	w, err := scanWave(r.db.Pool.QueryRow(ctx, q, contract))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ArchivedWave{}, errs.ErrNotFound
		}
		return model.ArchivedWave{}, err
	}
	return w, nil
}

// Count returns the number of archived waves.
func (r *WaveRepo) Count(ctx context.Context, contract string) (int64, error) {
	const q = `SELECT COUNT(*) FROM waves WHERE contract=$1`
	var n int64
	if err := r.db.Pool.QueryRow(ctx, q, contract).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanWave(row pgx.Row) (model.ArchivedWave, error) {
	var (
		w      model.ArchivedWave
		author string
	)
	if err := row.Scan(&w.ID, &w.Contract, &author, &w.Message, &w.SubmittedAt, &w.ObservedAt); err != nil {
		return model.ArchivedWave{}, err
	}
	w.Author = model.Account(author)
	return w, nil
}
