package events

import (
	"time"
)

// Candidate is the loosely-typed object a source extractor produces before
// normalization. Fields mirror whatever the upstream feed, page or API
// provided; only the temporal fields are interpreted.
type Candidate struct {
	SourceID    string // source-local identifier, may be empty
	Title       string
	Description string
	StartTime   *time.Time
	EndTime     *time.Time
	Venue       string
	City        string
	State       string
	Latitude    *float64
	Longitude   *float64
	URL         string
	Category    string
	PriceText   string
	ImageURL    string
}

// Record is the canonical event row shared by every source.
type Record struct {
	ID          string
	SourceName  string
	SourceID    string
	Title       string
	Description string
	StartTime   time.Time
	EndTime     *time.Time
	Timezone    string
	Venue       string
	City        string
	State       string
	Latitude    *float64
	Longitude   *float64
	Category    string
	PriceText   string
	URL         string
	ImageURL    string
	Source      string // machine slug, e.g. "city-thornton"
	SourceType  string // rss-feed | ai-scraped | ticketing-api
	Status      string // active | canceled
}

// SourceMeta carries the per-source identity and defaulting policy applied
// during normalization.
type SourceMeta struct {
	Slug            string
	Name            string
	Type            string
	HomeCity        string
	HomeState       string
	DefaultCategory string
	Timezone        string
}
