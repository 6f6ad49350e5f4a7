package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// RefreshRun is one journaled refresh attempt. FinishedAt stays null
// while the run is in flight or the process died mid scrape.
type RefreshRun struct {
	ID         string
	Family     string
	StartedAt  int64
	FinishedAt sql.NullInt64
	Outcome    string
	RowCount   int64
	Error      string
}

const createRefreshRun = `
INSERT INTO refresh_runs (id, family, started_at, outcome)
VALUES (?, ?, ?, 'running')
`

type CreateRefreshRunParams struct {
	ID        string
	Family    string
	StartedAt int64
}

func (q *Queries) CreateRefreshRun(ctx context.Context, arg CreateRefreshRunParams) error {
	_, err := q.db.ExecContext(ctx, createRefreshRun, arg.ID, arg.Family, arg.StartedAt)
	return err
}

const finishRefreshRun = `
UPDATE refresh_runs
SET finished_at = ?, outcome = ?, row_count = ?, error = ?
WHERE id = ?
`

type FinishRefreshRunParams struct {
	FinishedAt int64
	Outcome    string
	RowCount   int64
	Error      string
	ID         string
}

func (q *Queries) FinishRefreshRun(ctx context.Context, arg FinishRefreshRunParams) error {
	_, err := q.db.ExecContext(ctx, finishRefreshRun,
		arg.FinishedAt, arg.Outcome, arg.RowCount, arg.Error, arg.ID)
	return err
}

const listRefreshRuns = `
SELECT id, family, started_at, finished_at, outcome, row_count, error
FROM refresh_runs
ORDER BY started_at DESC, id
LIMIT ?
`

func (q *Queries) ListRefreshRuns(ctx context.Context, limit int64) ([]RefreshRun, error) {
	rows, err := q.db.QueryContext(ctx, listRefreshRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RefreshRun
	for rows.Next() {
		var i RefreshRun
		err := rows.Scan(
			&i.ID,
			&i.Family,
			&i.StartedAt,
			&i.FinishedAt,
			&i.Outcome,
			&i.RowCount,
			&i.Error,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRefreshRunsByFamily = `
SELECT id, family, started_at, finished_at, outcome, row_count, error
FROM refresh_runs
WHERE family = ?
ORDER BY started_at DESC, id
LIMIT ?
`

type ListRefreshRunsByFamilyParams struct {
	Family string
	Limit  int64
}

func (q *Queries) ListRefreshRunsByFamily(ctx context.Context, arg ListRefreshRunsByFamilyParams) ([]RefreshRun, error) {
	rows, err := q.db.QueryContext(ctx, listRefreshRunsByFamily, arg.Family, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RefreshRun
	for rows.Next() {
		var i RefreshRun
		err := rows.Scan(
			&i.ID,
			&i.Family,
			&i.StartedAt,
			&i.FinishedAt,
			&i.Outcome,
			&i.RowCount,
			&i.Error,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
