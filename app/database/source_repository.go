package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ SourceRepository = (*SourceRepo)(nil)

// SourceRepo maintains the ingestion source registry: one row per configured
// source, carrying the outcome of its most recent run.
type SourceRepo struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

// UpsertSource syncs a configured source into the registry. Run-outcome
// columns are left untouched so a config reload does not erase history.
func (r *SourceRepo) UpsertSource(name, displayName, sourceType, url string, enabled bool) error {
	_, err := r.db.Exec(`
		INSERT INTO sources (name, display_name, type, url, enabled)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			display_name = excluded.display_name,
			type = excluded.type,
			url = excluded.url,
			enabled = excluded.enabled,
			updated_at = CURRENT_TIMESTAMP
	`, name, displayName, sourceType, url, enabled)

	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

func (r *SourceRepo) RecordRun(name, status, lastError string, eventCount int, ranAt time.Time, nextRunAt *time.Time) error {
	_, err := r.db.Exec(`
		UPDATE sources
		SET last_run_at = ?, next_run_at = ?, last_status = ?, last_error = ?,
		    last_event_count = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, ranAt, nextRunAt, status, lastError, eventCount, name)

	if err != nil {
		return fmt.Errorf("failed to record source run: %w", err)
	}

	return nil
}

func (r *SourceRepo) GetSource(name string) (*Source, error) {
	row := r.db.QueryRow(selectSourceColumns+"FROM sources WHERE name = ?", name)

	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return source, nil
}

func (r *SourceRepo) ListSources() ([]Source, error) {
	rows, err := r.db.Query(selectSourceColumns + "FROM sources ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	return collectSources(rows)
}

// ListDue returns enabled sources whose next run time has arrived (or has
// never been set).
func (r *SourceRepo) ListDue(now time.Time) ([]Source, error) {
	rows, err := r.db.Query(selectSourceColumns+`
		FROM sources
		WHERE enabled = 1 AND (next_run_at IS NULL OR next_run_at <= ?)
		ORDER BY name
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due sources: %w", err)
	}
	defer rows.Close()

	return collectSources(rows)
}

const selectSourceColumns = `
	SELECT name, display_name, type, url, enabled,
	       last_run_at, next_run_at, last_status, last_error, last_event_count,
	       created_at, updated_at
`

func scanSource(row rowScanner) (*Source, error) {
	var source Source
	err := row.Scan(
		&source.Name, &source.DisplayName, &source.Type, &source.URL, &source.Enabled,
		&source.LastRunAt, &source.NextRunAt, &source.LastStatus, &source.LastError, &source.LastEventCount,
		&source.CreatedAt, &source.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &source, nil
}

func collectSources(rows *sql.Rows) ([]Source, error) {
	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}
