package export

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PostgresWriter persists long-form rows to postgres. each Write
// replaces the stored data of exactly the families it carries.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens the connection, waits for the database to
// come up and runs the schema migration.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS observations (
			id          SERIAL PRIMARY KEY,
			family      VARCHAR(50) NOT NULL,
			series      TEXT        NOT NULL,
			observed_on DATE        NOT NULL,
			value       DOUBLE PRECISION NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (family, series, observed_on)
		);

		CREATE INDEX IF NOT EXISTS idx_observations_family ON observations(family);
		CREATE INDEX IF NOT EXISTS idx_observations_date   ON observations(observed_on);
	`)
	return err
}

// Clear deletes the stored rows of the given families.
func (pw *PostgresWriter) Clear(families ...string) error {
	for _, family := range families {
		if _, err := pw.db.Exec("DELETE FROM observations WHERE family = $1", family); err != nil {
			return fmt.Errorf("postgres: clear %s: %w", family, err)
		}
	}
	return nil
}

// Write replaces the stored data of the families present in rows,
// batch-inserting the new observations.
func (pw *PostgresWriter) Write(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	if err := pw.Clear(families(rows)...); err != nil {
		return err
	}

	const batchSize = 50
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := pw.insertBatch(rows[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(batch []Row) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*4)

	for idx, r := range batch {
		base := idx * 4
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4))
		valueArgs = append(valueArgs, r.Family, r.Series, r.Date, r.Value)
	}

	query := fmt.Sprintf(`
		INSERT INTO observations (family, series, observed_on, value)
		VALUES %s
		ON CONFLICT (family, series, observed_on) DO NOTHING
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

func families(rows []Row) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rows {
		if !seen[r.Family] {
			seen[r.Family] = true
			out = append(out, r.Family)
		}
	}
	return out
}
