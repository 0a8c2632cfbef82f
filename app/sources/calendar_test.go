package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thorntonevents/ingest/app/events"
)

type fakeExtractor struct {
	content    string
	hints      string
	candidates []events.Candidate
	err        error
}

func (f *fakeExtractor) ExtractEvents(ctx context.Context, content string, hints string) ([]events.Candidate, error) {
	f.content = content
	f.hints = hints
	return f.candidates, f.err
}

func TestCalendarSourceEnabled(t *testing.T) {
	cfg := &Config{Settings: ConfigSettings{Enabled: true}}

	src := NewCalendarSource(cfg, "test-agent", &fakeExtractor{})
	assert.True(t, src.Enabled())

	src = NewCalendarSource(cfg, "test-agent", nil)
	assert.False(t, src.Enabled(), "no extractor means the source cannot run")

	cfg.Settings.Enabled = false
	src = NewCalendarSource(cfg, "test-agent", &fakeExtractor{})
	assert.False(t, src.Enabled())
}

func TestCalendarSourceFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
<script>analytics();</script>
<div>Harvest Fest - Carpenter Park - September 19</div>
</body></html>`))
	}))
	defer server.Close()

	start := time.Date(2026, time.September, 19, 16, 0, 0, 0, time.UTC)
	extractor := &fakeExtractor{
		candidates: []events.Candidate{{Title: "Harvest Fest", StartTime: &start}},
	}

	src := NewCalendarSource(&Config{
		URL:       server.URL,
		Settings:  ConfigSettings{Enabled: true, Timeout: 5, MaxPromptBytes: 60000},
		DateHints: []DateHint{{Match: "Harvest Fest", Estimate: "mid September"}},
	}, "test-agent", extractor)

	candidates, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Harvest Fest", candidates[0].Title)

	assert.Contains(t, extractor.content, "Harvest Fest - Carpenter Park")
	assert.NotContains(t, extractor.content, "analytics", "page chrome should be stripped before prompting")
	assert.Contains(t, extractor.hints, "Harvest Fest: around mid September")
}

func TestCalendarSourceExtractorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>calendar</body></html>`))
	}))
	defer server.Close()

	src := NewCalendarSource(&Config{
		URL:      server.URL,
		Settings: ConfigSettings{Enabled: true, Timeout: 5, MaxPromptBytes: 60000},
	}, "test-agent", &fakeExtractor{err: assert.AnError})

	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to extract events")
}

func TestFormatHintsEmpty(t *testing.T) {
	src := NewCalendarSource(&Config{}, "test-agent", nil)
	assert.Equal(t, "", src.formatHints())
}
