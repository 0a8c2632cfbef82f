package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thorntonevents/ingest/app/events"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		category string
		expected string
	}{
		{
			name:     "specific keyword beats category",
			title:    "Trunk or Treat at Anythink",
			category: "Library",
			expected: "halloween trunk or treat",
		},
		{
			name:     "keyword match is case insensitive",
			title:    "Toddler STORYTIME",
			category: "Library",
			expected: "children reading books",
		},
		{
			name:     "category fallback",
			title:    "Open House",
			category: "Library",
			expected: "public library interior",
		},
		{
			name:     "default when nothing matches",
			title:    "Quarterly Planning Session",
			category: "Civic",
			expected: "colorado community event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildQuery(tt.title, tt.category))
		})
	}
}

func newTestEnricher(serverURL string, batchCap int) *Enricher {
	e := New("test-key", 0, batchCap)
	e.searchURL = serverURL
	return e
}

func TestFindImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"photos":[{"src":{"large":"https://images.example.org/photo.jpg"}}]}`))
	}))
	defer server.Close()

	e := newTestEnricher(server.URL, 40)
	url := e.FindImage(context.Background(), "Harvest Fest", "Community")
	assert.Equal(t, "https://images.example.org/photo.jpg", url)
}

func TestFindImageFailuresAreNonFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	e := newTestEnricher(server.URL, 40)
	assert.Equal(t, "", e.FindImage(context.Background(), "Harvest Fest", "Community"))

	e = New("", 0, 40)
	assert.Equal(t, "", e.FindImage(context.Background(), "Harvest Fest", "Community"))
	assert.False(t, e.Enabled())
}

func TestEnrichBatch(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"photos":[{"src":{"large":"https://images.example.org/photo.jpg"}}]}`))
	}))
	defer server.Close()

	records := []events.Record{
		{Title: "Storytime", Category: "Library"},
		{Title: "Concert", Category: "Music", ImageURL: "https://example.org/already.jpg"},
		{Title: "Harvest Fest", Category: "Community"},
	}

	e := newTestEnricher(server.URL, 40)
	enriched := e.EnrichBatch(context.Background(), records)

	assert.Equal(t, 2, enriched)
	assert.Equal(t, 2, requests, "records with images should not trigger lookups")
	assert.Equal(t, "https://images.example.org/photo.jpg", records[0].ImageURL)
	assert.Equal(t, "https://example.org/already.jpg", records[1].ImageURL, "existing image untouched")
	assert.Equal(t, "https://images.example.org/photo.jpg", records[2].ImageURL)
}

func TestEnrichBatchHonorsCap(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"photos":[]}`))
	}))
	defer server.Close()

	records := make([]events.Record, 10)
	for i := range records {
		records[i].Title = "Event"
	}

	e := newTestEnricher(server.URL, 3)
	enriched := e.EnrichBatch(context.Background(), records)

	require.Equal(t, 3, requests)
	assert.Equal(t, 0, enriched, "empty search results leave records bare")
}

func TestEnrichBatchDisabledWithoutKey(t *testing.T) {
	e := New("", 0, 40)
	records := []events.Record{{Title: "Storytime"}}
	assert.Equal(t, 0, e.EnrichBatch(context.Background(), records))
	assert.Empty(t, records[0].ImageURL)
}
