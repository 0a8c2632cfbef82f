package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thorntonevents/ingest/app/database"
	"github.com/thorntonevents/ingest/app/events"
	"github.com/thorntonevents/ingest/app/sources"
)

type stubSource struct {
	cfg        *sources.Config
	enabled    bool
	candidates []events.Candidate
	err        error
}

func (s *stubSource) Config() *sources.Config { return s.cfg }
func (s *stubSource) Enabled() bool           { return s.enabled }

func (s *stubSource) Fetch(ctx context.Context) ([]events.Candidate, error) {
	return s.candidates, s.err
}

func newStubSource(slug string, enabled bool, candidates []events.Candidate, err error) *stubSource {
	return &stubSource{
		cfg: &sources.Config{
			Slug: slug,
			Name: slug,
			Type: sources.TypeRSSFeed,
			URL:  "https://example.org/" + slug,
			Settings: sources.ConfigSettings{
				Enabled:         enabled,
				RefreshInterval: 21600,
			},
		},
		enabled:    enabled,
		candidates: candidates,
		err:        err,
	}
}

func candidateAt(title string, start time.Time) events.Candidate {
	return events.Candidate{Title: title, StartTime: &start}
}

func newTestRunner(t *testing.T, srcs []sources.Source) (*Runner, *database.DB) {
	t.Helper()

	db, err := database.NewConnection(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db))

	runner := NewRunner(srcs,
		events.NewNormalizer(), nil,
		database.NewEventRepository(db), database.NewSourceRepository(db),
		nil, "America/Denver", 60, 3)
	return runner, db
}

func resultFor(t *testing.T, summary Summary, source string) Result {
	t.Helper()
	for _, r := range summary.Results {
		if r.Source == source {
			return r
		}
	}
	t.Fatalf("no result for source %s", source)
	return Result{}
}

func TestRunOnceIsolatesFailures(t *testing.T) {
	start := time.Now().Add(24 * time.Hour)

	srcs := []sources.Source{
		newStubSource("anythink", true, []events.Candidate{
			candidateAt("Storytime", start),
			candidateAt("Craft Fair", start.Add(time.Hour)),
		}, nil),
		newStubSource("city-thornton", true, nil, errors.New("upstream timeout")),
		newStubSource("ticketing", true, []events.Candidate{
			candidateAt("Winter Concert", start),
		}, nil),
	}

	runner, db := newTestRunner(t, srcs)
	summary := runner.RunOnce(context.Background())

	assert.Equal(t, 2, summary.OK)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 3, summary.TotalEvents)

	failed := resultFor(t, summary, "city-thornton")
	assert.Equal(t, StatusFailed, failed.Status)
	require.Error(t, failed.Err)
	assert.Contains(t, failed.Err.Error(), "upstream timeout")

	// The failure did not block the other sources' events.
	count, err := database.NewEventRepository(db).GetEventCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRunOnceSkipsDisabledSources(t *testing.T) {
	start := time.Now().Add(24 * time.Hour)

	srcs := []sources.Source{
		newStubSource("anythink", true, []events.Candidate{candidateAt("Storytime", start)}, nil),
		newStubSource("westminster", false, nil, nil),
	}

	runner, db := newTestRunner(t, srcs)
	summary := runner.RunOnce(context.Background())

	assert.Equal(t, 1, summary.OK)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, StatusSkipped, resultFor(t, summary, "westminster").Status)

	// Skipped sources still get a registry row with the outcome recorded.
	source, err := database.NewSourceRepository(db).GetSource("westminster")
	require.NoError(t, err)
	require.NotNil(t, source)
	assert.Equal(t, StatusSkipped, source.LastStatus)
	assert.False(t, source.Enabled)
}

func TestRunOnceUpdatesRegistry(t *testing.T) {
	start := time.Now().Add(24 * time.Hour)
	srcs := []sources.Source{
		newStubSource("anythink", true, []events.Candidate{candidateAt("Storytime", start)}, nil),
	}

	runner, db := newTestRunner(t, srcs)
	runner.RunOnce(context.Background())

	source, err := database.NewSourceRepository(db).GetSource("anythink")
	require.NoError(t, err)
	require.NotNil(t, source)
	assert.Equal(t, StatusOK, source.LastStatus)
	assert.Equal(t, 1, source.LastEventCount)
	require.NotNil(t, source.NextRunAt)
	assert.True(t, source.NextRunAt.After(time.Now().UTC().Add(5*time.Hour)), "next run honors the refresh interval")
}

func TestRunOnceIsIdempotent(t *testing.T) {
	start := time.Now().Add(24 * time.Hour)
	srcs := []sources.Source{
		newStubSource("anythink", true, []events.Candidate{candidateAt("Storytime", start)}, nil),
	}

	runner, db := newTestRunner(t, srcs)
	for range 3 {
		runner.RunOnce(context.Background())
	}

	count, err := database.NewEventRepository(db).GetEventCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

type stubImporter struct {
	runs int
	err  error
}

func (s *stubImporter) Run(ctx context.Context) (int, error) {
	s.runs++
	return 2, s.err
}

func TestRunOnceIncludesDealsImport(t *testing.T) {
	runner, _ := newTestRunner(t, nil)
	importer := &stubImporter{}
	runner.dealImporter = importer

	summary := runner.RunOnce(context.Background())

	assert.Equal(t, 1, importer.runs)
	assert.Equal(t, StatusOK, resultFor(t, summary, "deals").Status)
}

func TestTriggerRunRejectsConcurrentRuns(t *testing.T) {
	block := make(chan struct{})
	srcs := []sources.Source{
		&blockingSource{stubSource: *newStubSource("slow", true, nil, nil), release: block},
	}

	runner, _ := newTestRunner(t, srcs)
	require.NoError(t, runner.TriggerRun())

	// Second trigger while the first is still fetching.
	err := runner.TriggerRun()
	assert.Error(t, err)

	close(block)
	require.Eventually(t, func() bool {
		return runner.TriggerRun() == nil
	}, 2*time.Second, 10*time.Millisecond)
}

type blockingSource struct {
	stubSource
	release chan struct{}
}

func (s *blockingSource) Fetch(ctx context.Context) ([]events.Candidate, error) {
	<-s.release
	return nil, nil
}

func TestStartAndStopDrainCleanly(t *testing.T) {
	start := time.Now().Add(24 * time.Hour)
	srcs := []sources.Source{
		newStubSource("anythink", true, []events.Candidate{candidateAt("Storytime", start)}, nil),
	}

	runner, db := newTestRunner(t, srcs)
	runner.Start()

	repo := database.NewEventRepository(db)
	require.Eventually(t, func() bool {
		count, err := repo.GetEventCount()
		return err == nil && count == 1
	}, 5*time.Second, 20*time.Millisecond)

	runner.Stop()
}
