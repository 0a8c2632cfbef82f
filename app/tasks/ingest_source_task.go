package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thorntonevents/ingest/app/database"
	"github.com/thorntonevents/ingest/app/enrich"
	"github.com/thorntonevents/ingest/app/events"
	"github.com/thorntonevents/ingest/app/sources"
)

// IngestSourceTask runs one source through the full pipeline: fetch and
// extract, normalize, enrich images, upsert. The registry row is updated
// whether the run succeeds or fails.
type IngestSourceTask struct {
	Task
	source     sources.Source
	normalizer *events.Normalizer
	enricher   *enrich.Enricher
	eventRepo  database.EventRepository
	sourceRepo database.SourceRepository
	timezone   string
	eventCount int
}

func NewIngestSourceTask(source sources.Source, normalizer *events.Normalizer, enricher *enrich.Enricher,
	eventRepo database.EventRepository, sourceRepo database.SourceRepository, timezone string) *IngestSourceTask {
	return &IngestSourceTask{
		Task:       NewTask(TaskTypeIngestSource, source.Config().Slug),
		source:     source,
		normalizer: normalizer,
		enricher:   enricher,
		eventRepo:  eventRepo,
		sourceRepo: sourceRepo,
		timezone:   timezone,
	}
}

// GetEvents returns the number of events upserted by the last Execute.
func (t *IngestSourceTask) GetEvents() int {
	return t.eventCount
}

func (t *IngestSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cfg := t.source.Config()

	candidates, err := t.source.Fetch(ctx)
	if err != nil {
		t.recordRun(StatusFailed, err.Error(), 0)
		return fmt.Errorf("failed to ingest source %s: %w", cfg.Slug, err)
	}

	records := t.normalizer.Run(candidates, cfg.Meta(t.timezone))

	enriched := 0
	if t.enricher != nil && t.enricher.Enabled() {
		enriched = t.enricher.EnrichBatch(ctx, records)
	}

	for _, rec := range records {
		if err := t.eventRepo.Upsert(recordToEvent(rec)); err != nil {
			t.recordRun(StatusFailed, err.Error(), 0)
			return fmt.Errorf("failed to store event for source %s: %w", cfg.Slug, err)
		}
	}

	t.eventCount = len(records)
	t.recordRun(StatusOK, "", len(records))

	slog.Info("Task completed",
		"type", "IngestSource",
		"source", cfg.Slug,
		"duration", t.GetDuration(),
		"candidates", len(candidates),
		"stored", len(records),
		"enriched", enriched)

	return nil
}

func (t *IngestSourceTask) recordRun(status, lastError string, eventCount int) {
	now := time.Now().UTC()
	next := now.Add(time.Duration(t.source.Config().Settings.RefreshInterval) * time.Second)

	if err := t.sourceRepo.RecordRun(t.SourceName, status, lastError, eventCount, now, &next); err != nil {
		slog.Warn("Failed to record source run", "source", t.SourceName, "error", err)
	}
}

func recordToEvent(rec events.Record) database.Event {
	return database.Event{
		ID:          rec.ID,
		SourceName:  rec.SourceName,
		SourceID:    rec.SourceID,
		Title:       rec.Title,
		Description: rec.Description,
		StartTime:   rec.StartTime,
		EndTime:     rec.EndTime,
		Timezone:    rec.Timezone,
		Venue:       rec.Venue,
		City:        rec.City,
		State:       rec.State,
		Latitude:    rec.Latitude,
		Longitude:   rec.Longitude,
		Category:    rec.Category,
		PriceText:   rec.PriceText,
		URL:         rec.URL,
		ImageURL:    rec.ImageURL,
		Source:      rec.Source,
		SourceType:  rec.SourceType,
		Status:      rec.Status,
	}
}
