package sources

import (
	"github.com/thorntonevents/ingest/app/events"
)

const (
	TypeRSSFeed      = "rss-feed"
	TypeAIScraped    = "ai-scraped"
	TypeTicketingAPI = "ticketing-api"
)

// Config describes one external source, loaded from a YAML file in the
// sources directory. The machine slug is derived from the filename.
type Config struct {
	Slug string `yaml:"-"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	URL  string `yaml:"url"`

	// FeedFilter is a base64-encoded filter-configuration JSON appended to
	// the feed URL. RSS sources only.
	FeedFilter string `yaml:"feed_filter"`

	Settings  ConfigSettings `yaml:"settings"`
	Defaults  ConfigDefaults `yaml:"defaults"`
	DateHints []DateHint     `yaml:"date_hints"`
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	Timeout         int  `yaml:"timeout"`          // seconds
	MaxPromptBytes  int  `yaml:"max_prompt_bytes"` // ai-scraped only
}

// ConfigDefaults is the per-source defaulting policy applied during
// normalization.
type ConfigDefaults struct {
	City     string `yaml:"city"`
	State    string `yaml:"state"`
	Category string `yaml:"category"`
}

// DateHint gives the extraction prompt a date estimate for a known recurring
// annual event the page lists without a year.
type DateHint struct {
	Match    string `yaml:"match"`
	Estimate string `yaml:"estimate"`
}

// Meta builds the normalization metadata for this source.
func (c *Config) Meta(timezone string) events.SourceMeta {
	return events.SourceMeta{
		Slug:            c.Slug,
		Name:            c.Name,
		Type:            c.Type,
		HomeCity:        c.Defaults.City,
		HomeState:       c.Defaults.State,
		DefaultCategory: c.Defaults.Category,
		Timezone:        timezone,
	}
}
