package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// RunRow is one script host transition worth keeping: a run reaching
// Running, Failed, or Idle after a stop.
type RunRow struct {
	RunID      string
	Project    string
	Entry      string
	Language   string
	Digest     string
	State      string
	Diagnostic string
	At         time.Time
}

type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// InsertBatch writes rows in a single round trip.
func (r *RunRepo) InsertBatch(ctx context.Context, rows []RunRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(
			`INSERT INTO script_runs (run_id, project, entry, language, digest, state, diagnostic, at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			row.RunID, row.Project, row.Entry, row.Language, row.Digest, row.State, row.Diagnostic, row.At,
		)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert script run: %w", err)
		}
	}
	return nil
}

// History returns the newest rows for project, newest first.
func (r *RunRepo) History(ctx context.Context, project string, limit int) ([]RunRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT run_id, project, entry, language, digest, state, diagnostic, at
		 FROM script_runs WHERE project = $1 ORDER BY at DESC, id DESC LIMIT $2`,
		project, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query script runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var row RunRow
		if err := rows.Scan(&row.RunID, &row.Project, &row.Entry, &row.Language,
			&row.Digest, &row.State, &row.Diagnostic, &row.At); err != nil {
			return nil, fmt.Errorf("scan script run: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
