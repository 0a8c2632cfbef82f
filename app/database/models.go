package database

import (
	"time"
)

// Event is a canonical event row. The (SourceName, SourceID) pair is the
// upsert conflict target; ID is the deterministic hash-derived identifier.
type Event struct {
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
	Source      string
	SourceType  string
	Status      string // active | canceled
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Deal is a time-bounded promotional offer, keyed on its slug.
type Deal struct {
	ID              int64
	Slug            string
	Title           string
	Description     string
	BusinessName    string
	BusinessLogoURL string
	DealType        string // discount | coupon | promotion | freebie
	DiscountAmount  string
	PromoCode       string
	Category        string
	Terms           string
	StartDate       *time.Time
	EndDate         *time.Time
	URL             string
	ImageURL        string
	Status          string // active | paused | expired
	Featured        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Article is editorial content created manually or via the admin API.
type Article struct {
	ID          int64
	Slug        string
	Title       string
	Content     string
	Excerpt     string
	Category    string
	Tags        []string
	ImageURL    string
	Status      string // draft | published
	PublishedAt *time.Time
	ViewCount   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Source is a registry row tracking a configured ingestion source and the
// outcome of its most recent run.
type Source struct {
	Name           string
	DisplayName    string
	Type           string
	URL            string
	Enabled        bool
	LastRunAt      *time.Time
	NextRunAt      *time.Time
	LastStatus     string // ok | failed | skipped
	LastError      string
	LastEventCount int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
