package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// DealImporter is the deal import pipeline. The production implementation
// lives in the deals package.
type DealImporter interface {
	Run(ctx context.Context) (int, error)
}

type ImportDealsTask struct {
	Task
	importer DealImporter
}

func NewImportDealsTask(importer DealImporter) *ImportDealsTask {
	return &ImportDealsTask{
		Task:     NewTask(TaskTypeImportDeals, "deals"),
		importer: importer,
	}
}

func (t *ImportDealsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	imported, err := t.importer.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to import deals: %w", err)
	}

	slog.Info("Task completed",
		"type", "ImportDeals",
		"duration", t.GetDuration(),
		"imported", imported)

	return nil
}
