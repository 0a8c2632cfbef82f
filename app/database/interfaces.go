package database

import (
	"time"
)

type EventRepository interface {
	Upsert(event Event) error
	GetBySourceKey(sourceName, sourceID string) (*Event, error)
	GetUpcoming(now time.Time, limit int) ([]Event, error)
	GetEventCount() (int, error)
	CountBySource() (map[string]int, error)
}

type DealRepository interface {
	Upsert(deal Deal) error
	SlugExists(slug string) (bool, error)
	GetBySlug(slug string) (*Deal, error)
	GetByStatus(status string, limit int) ([]Deal, error)
	UpdateStatus(slug, status string) error
	DeleteExpiredByURL(sourceURL string, now time.Time) (int64, error)
	GetDealCount() (int, error)
}

type ArticleRepository interface {
	Create(article Article) error
	GetBySlug(slug string) (*Article, error)
	ListPublished(limit int) ([]Article, error)
	IncrementViewCount(slug string) error
	Publish(slug string, publishedAt time.Time) error
	GetArticleCount() (int, error)
}

type SourceRepository interface {
	UpsertSource(name, displayName, sourceType, url string, enabled bool) error
	RecordRun(name, status, lastError string, eventCount int, ranAt time.Time, nextRunAt *time.Time) error
	GetSource(name string) (*Source, error)
	ListSources() ([]Source, error)
	ListDue(now time.Time) ([]Source, error)
}
