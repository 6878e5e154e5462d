package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/revittco/galaxystats/internal/store"
)

func (d *DB) CreateRun(ctx context.Context, r *store.RunRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = store.RunRunning
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO runs (id, status, error, bytes, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Status, r.Error, r.Bytes, formatTime(r.StartedAt),
	)
	return mapConstraintError(err)
}

func (d *DB) FinishRun(ctx context.Context, id, status, errMsg string, bytes int64) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, bytes = ?, finished_at = ?
		WHERE id = ?`,
		status, errMsg, bytes, formatTime(time.Now()), id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (d *DB) GetRun(ctx context.Context, id string) (*store.RunRecord, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, status, error, bytes, started_at, finished_at
		FROM runs WHERE id = ?`, id)
	r, err := scanRunRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return r, err
}

func (d *DB) ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, status, error, bytes, started_at, finished_at
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.RunRecord
	for rows.Next() {
		r, err := scanRunRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRunRow(row rowScanner) (*store.RunRecord, error) {
	var r store.RunRecord
	var startedAt string
	var finishedAt *string
	if err := row.Scan(&r.ID, &r.Status, &r.Error, &r.Bytes, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	r.StartedAt = parseTime(startedAt)
	r.FinishedAt = parseTimePtr(finishedAt)
	return &r, nil
}
