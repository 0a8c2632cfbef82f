package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thorntonevents/ingest/app/database"
	"github.com/thorntonevents/ingest/app/enrich"
	"github.com/thorntonevents/ingest/app/events"
	"github.com/thorntonevents/ingest/app/sources"
)

const taskTimeout = 5 * time.Minute

// Runner owns the worker pool and the refresh schedule. Sources run in
// parallel across the pool; one source failing never blocks the others.
type Runner struct {
	srcs         []sources.Source
	normalizer   *events.Normalizer
	enricher     *enrich.Enricher
	eventRepo    database.EventRepository
	sourceRepo   database.SourceRepository
	dealImporter DealImporter
	timezone     string
	interval     time.Duration
	workerCount  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	taskQueue    chan TaskInterface
	manualRun    atomic.Bool
	nextDealsRun time.Time
}

func NewRunner(srcs []sources.Source, normalizer *events.Normalizer, enricher *enrich.Enricher,
	eventRepo database.EventRepository, sourceRepo database.SourceRepository,
	dealImporter DealImporter, timezone string, intervalSeconds, workerCount int) *Runner {
	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		srcs:         srcs,
		normalizer:   normalizer,
		enricher:     enricher,
		eventRepo:    eventRepo,
		sourceRepo:   sourceRepo,
		dealImporter: dealImporter,
		timezone:     timezone,
		interval:     time.Duration(intervalSeconds) * time.Second,
		workerCount:  workerCount,
		ctx:          ctx,
		cancel:       cancel,
		taskQueue:    make(chan TaskInterface, 100),
	}
}

// RunOnce ingests every source in one parallel pass and returns the tagged
// per-source results. Disabled sources are reported as skipped.
func (r *Runner) RunOnce(ctx context.Context) Summary {
	r.syncRegistry(ctx)

	queue := make(chan sources.Source, len(r.srcs))
	results := make(chan Result, len(r.srcs)+1)

	var wg sync.WaitGroup
	for i := 0; i < r.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range queue {
				results <- r.runSource(ctx, src)
			}
		}()
	}

	for _, src := range r.srcs {
		queue <- src
	}
	close(queue)
	wg.Wait()

	if r.dealImporter != nil {
		results <- r.runDealsImport(ctx)
	}
	close(results)

	collected := make([]Result, 0, len(r.srcs)+1)
	for res := range results {
		collected = append(collected, res)
	}

	summary := NewSummary(collected)
	slog.Info("Ingestion pass finished",
		"ok", summary.OK, "failed", summary.Failed, "skipped", summary.Skipped,
		"events", summary.TotalEvents)

	return summary
}

func (r *Runner) runSource(ctx context.Context, src sources.Source) Result {
	slug := src.Config().Slug

	if !src.Enabled() {
		r.recordSkip(slug)
		return Result{Source: slug, Status: StatusSkipped}
	}

	task := NewIngestSourceTask(src, r.normalizer, r.enricher, r.eventRepo, r.sourceRepo, r.timezone)
	task.Start()

	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Source ingestion failed", "source", slug, "error", err)
		return Result{Source: slug, Status: StatusFailed, Err: err, Duration: task.GetDuration()}
	}

	return Result{Source: slug, Status: StatusOK, Events: task.GetEvents(), Duration: task.GetDuration()}
}

func (r *Runner) runDealsImport(ctx context.Context) Result {
	task := NewImportDealsTask(r.dealImporter)
	task.Start()

	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Deals import failed", "error", err)
		return Result{Source: "deals", Status: StatusFailed, Err: err, Duration: task.GetDuration()}
	}

	return Result{Source: "deals", Status: StatusOK, Duration: task.GetDuration()}
}

// Start launches the worker pool and the periodic schedule. Each tick
// enqueues the sources whose registry row says they are due.
func (r *Runner) Start() {
	for i := 0; i < r.workerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.enqueueStartupTasks()

		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				r.enqueueDueTasks()
			}
		}
	}()
}

func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
	close(r.taskQueue)
}

// TriggerRun starts a full pass in the background, for the admin API. Only
// one manual pass may be in flight at a time.
func (r *Runner) TriggerRun() error {
	if !r.manualRun.CompareAndSwap(false, true) {
		return fmt.Errorf("an ingestion run is already in progress")
	}

	go func() {
		defer r.manualRun.Store(false)
		r.RunOnce(r.ctx)
	}()

	return nil
}

func (r *Runner) EnqueueTask(task TaskInterface) error {
	select {
	case r.taskQueue <- task:
		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (r *Runner) enqueueStartupTasks() {
	for _, src := range r.srcs {
		syncTask := NewSyncSourceTask(src.Config(), src.Enabled(), r.sourceRepo)
		if err := r.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncSourceTask", "source", src.Config().Slug, "error", err)
			continue
		}

		if !src.Enabled() {
			slog.Debug("Source disabled, skipping IngestSourceTask", "source", src.Config().Slug)
			continue
		}

		task := NewIngestSourceTask(src, r.normalizer, r.enricher, r.eventRepo, r.sourceRepo, r.timezone)
		if err := r.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue IngestSourceTask", "source", src.Config().Slug, "error", err)
		}
	}

	r.maybeEnqueueDealsImport()
}

func (r *Runner) enqueueDueTasks() {
	due, err := r.sourceRepo.ListDue(time.Now().UTC())
	if err != nil {
		slog.Warn("Failed to list due sources", "error", err)
		return
	}

	bySlug := make(map[string]sources.Source, len(r.srcs))
	for _, src := range r.srcs {
		bySlug[src.Config().Slug] = src
	}

	for _, row := range due {
		src, ok := bySlug[row.Name]
		if !ok {
			slog.Warn("Registry row has no matching configuration", "source", row.Name)
			continue
		}
		if !src.Enabled() {
			continue
		}

		task := NewIngestSourceTask(src, r.normalizer, r.enricher, r.eventRepo, r.sourceRepo, r.timezone)
		if err := r.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue IngestSourceTask", "source", row.Name, "error", err)
		}
	}

	r.maybeEnqueueDealsImport()
}

// maybeEnqueueDealsImport schedules the deal import once a day rather than
// on every scheduler tick.
func (r *Runner) maybeEnqueueDealsImport() {
	if r.dealImporter == nil {
		return
	}

	now := time.Now().UTC()
	if now.Before(r.nextDealsRun) {
		return
	}
	r.nextDealsRun = now.Add(24 * time.Hour)

	if err := r.EnqueueTask(NewImportDealsTask(r.dealImporter)); err != nil {
		slog.Warn("Failed to enqueue ImportDealsTask", "error", err)
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	for {
		select {
		case task, ok := <-r.taskQueue:
			if !ok {
				return
			}
			r.executeTask(id, task)

		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Runner) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(r.ctx, taskTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "error", err)
	}
}

func (r *Runner) syncRegistry(ctx context.Context) {
	for _, src := range r.srcs {
		task := NewSyncSourceTask(src.Config(), src.Enabled(), r.sourceRepo)
		task.Start()
		if err := task.Execute(ctx); err != nil {
			slog.Warn("Failed to sync source registry", "source", src.Config().Slug, "error", err)
		}
	}
}

func (r *Runner) recordSkip(slug string) {
	now := time.Now().UTC()
	if err := r.sourceRepo.RecordRun(slug, StatusSkipped, "", 0, now, nil); err != nil {
		slog.Warn("Failed to record skipped run", "source", slug, "error", err)
	}
}
