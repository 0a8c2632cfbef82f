package api

import (
	"github.com/thorntonevents/ingest/app/database"
	"github.com/thorntonevents/ingest/app/sources"
)

// RunTrigger starts a full ingestion pass on demand.
type RunTrigger interface {
	TriggerRun() error
}

type Handler struct {
	eventRepo      database.EventRepository
	dealRepo       database.DealRepository
	articleRepo    database.ArticleRepository
	sourceRepo     database.SourceRepository
	configCache    *sources.ConfigCache
	runner         RunTrigger
	dealsSourceURL string
}
