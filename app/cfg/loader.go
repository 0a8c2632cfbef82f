package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./thornton.db" description:"Path to the SQLite database file"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for source ingestion"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	RunOnce           bool   `long:"once" env:"RUN_ONCE" description:"Run a single ingestion pass for all enabled sources and exit"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for admin endpoints (optional)"`

	// AI extraction
	OpenAIAPIKey string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key for calendar page extraction"`
	OpenAIModel  string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"Chat completion model used for extraction"`

	// Image enrichment
	PexelsAPIKey  string `long:"pexels-api-key" env:"PEXELS_API_KEY" description:"Pexels API key for stock photo enrichment (optional)"`
	ImageDelayMs  int    `long:"image-delay-ms" env:"IMAGE_DELAY_MS" default:"1200" description:"Delay between stock photo lookups in milliseconds"`
	ImageBatchCap int    `long:"image-batch-cap" env:"IMAGE_BATCH_CAP" default:"40" description:"Maximum number of stock photo lookups per run"`

	// Deal import
	SearchAPIKey   string `long:"search-api-key" env:"SEARCH_API_KEY" description:"Web search API key for deal import (optional)"`
	DealsQuery     string `long:"deals-query" env:"DEALS_QUERY" default:"Thornton Colorado deals discounts coupons this week" description:"Search query used for deal import"`
	DealsSourceURL string `long:"deals-source-url" env:"DEALS_SOURCE_URL" description:"Source URL whose expired deals are deleted during cleanup"`

	// Ticketing API
	TicketingAPIKey string `long:"ticketing-api-key" env:"TICKETING_API_KEY" description:"Ticketing API key for the events discovery source (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Thornton Events Ingest/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"America/Denver" description:"Timezone used when interpreting source-local times"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	// Best effort; variables already set in the shell take precedence over .env
	_ = godotenv.Load()

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		SourcesDir:        raw.SourcesDir,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		RunOnce:           raw.RunOnce,
		APIAccessKey:      raw.APIAccessKey,
		OpenAIAPIKey:      raw.OpenAIAPIKey,
		OpenAIModel:       raw.OpenAIModel,
		PexelsAPIKey:      raw.PexelsAPIKey,
		ImageDelayMs:      raw.ImageDelayMs,
		ImageBatchCap:     raw.ImageBatchCap,
		SearchAPIKey:      raw.SearchAPIKey,
		DealsQuery:        raw.DealsQuery,
		DealsSourceURL:    raw.DealsSourceURL,
		TicketingAPIKey:   raw.TicketingAPIKey,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
	}
	return nil
}
