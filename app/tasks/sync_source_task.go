package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thorntonevents/ingest/app/database"
	"github.com/thorntonevents/ingest/app/sources"
)

// SyncSourceTask mirrors a source configuration into the registry table so
// run outcomes and schedules have a row to attach to.
type SyncSourceTask struct {
	Task
	config     *sources.Config
	enabled    bool
	sourceRepo database.SourceRepository
}

func NewSyncSourceTask(config *sources.Config, enabled bool, sourceRepo database.SourceRepository) *SyncSourceTask {
	return &SyncSourceTask{
		Task:       NewTask(TaskTypeSyncSource, config.Slug),
		config:     config,
		enabled:    enabled,
		sourceRepo: sourceRepo,
	}
}

func (t *SyncSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := t.sourceRepo.UpsertSource(t.config.Slug, t.config.Name, t.config.Type, t.config.URL, t.enabled)
	if err != nil {
		return fmt.Errorf("failed to sync source %s: %w", t.config.Slug, err)
	}

	slog.Debug("Source registry synced", "source", t.config.Slug, "enabled", t.enabled)

	return nil
}
