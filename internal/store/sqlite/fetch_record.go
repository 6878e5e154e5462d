package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/revittco/galaxystats/internal/store"
)

func (d *DB) InsertFetchRecord(ctx context.Context, r *store.FetchRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO fetch_records
			(id, run_id, key, outcome, error_kind, error_msg,
			 status_code, bytes, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RunID, r.Key, r.Outcome, r.ErrorKind, r.ErrorMsg,
		r.StatusCode, r.Bytes, r.LatencyMs, formatTime(r.Timestamp),
	)
	return mapConstraintError(err)
}

func (d *DB) QueryFetchRecords(
	ctx context.Context, f store.FetchFilter,
) ([]store.FetchRecord, int, error) {
	where, args := buildFetchWhere(f)

	var total int
	countQ := "SELECT COUNT(*) FROM fetch_records" + where
	if err := d.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	dataQ := `SELECT id, run_id, key, outcome, error_kind, error_msg,
		status_code, bytes, latency_ms, timestamp
		FROM fetch_records` + where +
		` ORDER BY timestamp DESC, rowid DESC LIMIT ? OFFSET ?`
	dataArgs := append(args, limit, f.Offset)

	rows, err := d.db.QueryContext(ctx, dataQ, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []store.FetchRecord
	for rows.Next() {
		r, err := scanFetchRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

func (d *DB) GetFetchStats(
	ctx context.Context, after, before time.Time,
) (*store.FetchStats, error) {
	var s store.FetchStats
	err := d.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE outcome = 'hit'),
			COUNT(*) FILTER (WHERE outcome = 'success'),
			COUNT(*) FILTER (WHERE outcome = 'error'),
			COALESCE(AVG(latency_ms) FILTER (WHERE outcome != 'hit'), 0),
			COALESCE(SUM(bytes) FILTER (WHERE outcome = 'success'), 0)
		FROM fetch_records
		WHERE timestamp >= ? AND timestamp <= ?`,
		formatTime(after), formatTime(before),
	).Scan(&s.Total, &s.Hits, &s.Successes, &s.Errors, &s.AvgLatencyMs, &s.Bytes)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func buildFetchWhere(f store.FetchFilter) (string, []any) {
	var conds []string
	var args []any
	if f.RunID != nil {
		conds = append(conds, "run_id = ?")
		args = append(args, *f.RunID)
	}
	if f.Key != nil {
		conds = append(conds, "key = ?")
		args = append(args, *f.Key)
	}
	if f.Outcome != nil {
		conds = append(conds, "outcome = ?")
		args = append(args, *f.Outcome)
	}
	if f.After != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, formatTime(*f.After))
	}
	if f.Before != nil {
		conds = append(conds, "timestamp <= ?")
		args = append(args, formatTime(*f.Before))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanFetchRow(row rowScanner) (*store.FetchRecord, error) {
	var r store.FetchRecord
	var ts string
	err := row.Scan(
		&r.ID, &r.RunID, &r.Key, &r.Outcome, &r.ErrorKind, &r.ErrorMsg,
		&r.StatusCode, &r.Bytes, &r.LatencyMs, &ts,
	)
	if err != nil {
		return nil, fmt.Errorf("scan fetch row: %w", err)
	}
	r.Timestamp = parseTime(ts)
	return &r, nil
}
