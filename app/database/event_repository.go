package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ EventRepository = (*EventRepo)(nil)

// EventRepo handles database operations for canonical event rows.
type EventRepo struct {
	db *DB
}

func NewEventRepository(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

// Upsert inserts or updates an event keyed on (source_name, source_id).
// Re-running ingestion with unchanged upstream content rewrites mutable
// fields in place and never duplicates a row. The original id survives
// conflicts so external references stay valid.
func (r *EventRepo) Upsert(event Event) error {
	_, err := r.db.Exec(`
		INSERT INTO events (
			id, source_name, source_id, title, description,
			start_time, end_time, timezone, venue, city, state,
			latitude, longitude, category, price_text, url, image_url,
			source, source_type, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_name, source_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			timezone = excluded.timezone,
			venue = excluded.venue,
			city = excluded.city,
			state = excluded.state,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			category = excluded.category,
			price_text = excluded.price_text,
			url = excluded.url,
			image_url = excluded.image_url,
			source = excluded.source,
			source_type = excluded.source_type,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, event.ID, event.SourceName, event.SourceID, event.Title, event.Description,
		event.StartTime, event.EndTime, event.Timezone, event.Venue, event.City, event.State,
		event.Latitude, event.Longitude, event.Category, event.PriceText, event.URL, event.ImageURL,
		event.Source, event.SourceType, event.Status)

	if err != nil {
		return fmt.Errorf("failed to upsert event: %w", err)
	}

	return nil
}

func (r *EventRepo) GetBySourceKey(sourceName, sourceID string) (*Event, error) {
	row := r.db.QueryRow(selectEventColumns+`
		FROM events
		WHERE source_name = ? AND source_id = ?
	`, sourceName, sourceID)

	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return event, nil
}

func (r *EventRepo) GetUpcoming(now time.Time, limit int) ([]Event, error) {
	rows, err := r.db.Query(selectEventColumns+`
		FROM events
		WHERE start_time >= ? AND status = 'active'
		ORDER BY start_time ASC
		LIMIT ?
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, *event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

func (r *EventRepo) GetEventCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get event count: %w", err)
	}
	return count, nil
}

func (r *EventRepo) CountBySource() (map[string]int, error) {
	rows, err := r.db.Query("SELECT source, COUNT(*) FROM events GROUP BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to count events by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[source] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating count rows: %w", err)
	}

	return counts, nil
}

const selectEventColumns = `
	SELECT id, source_name, source_id, title, description,
	       start_time, end_time, timezone, venue, city, state,
	       latitude, longitude, category, price_text, url, image_url,
	       source, source_type, status, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var event Event
	err := row.Scan(
		&event.ID, &event.SourceName, &event.SourceID, &event.Title, &event.Description,
		&event.StartTime, &event.EndTime, &event.Timezone, &event.Venue, &event.City, &event.State,
		&event.Latitude, &event.Longitude, &event.Category, &event.PriceText, &event.URL, &event.ImageURL,
		&event.Source, &event.SourceType, &event.Status, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}
