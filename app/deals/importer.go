package deals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thorntonevents/ingest/app/ai"
	"github.com/thorntonevents/ingest/app/database"
	"github.com/thorntonevents/ingest/app/events"
)

// Extractor turns a deals digest into loosely-typed deal candidates. The
// production implementation is the chat completion client.
type Extractor interface {
	ExtractDeals(ctx context.Context, content string) ([]ai.Deal, error)
}

// DigestProvider produces the text digest the extractor reads. The
// production implementation is the web search client.
type DigestProvider interface {
	Digest(ctx context.Context, query string) (string, error)
}

// Importer runs the deal import pipeline: search digest, extraction,
// validation, slug assignment, upsert, expired cleanup.
type Importer struct {
	repo      database.DealRepository
	extractor Extractor
	search    DigestProvider
	query     string
	sourceURL string
	now       func() time.Time
}

func NewImporter(repo database.DealRepository, extractor Extractor, search DigestProvider, query, sourceURL string) *Importer {
	return &Importer{
		repo:      repo,
		extractor: extractor,
		search:    search,
		query:     query,
		sourceURL: sourceURL,
		now:       time.Now,
	}
}

// Run executes one import pass and returns the number of deals upserted.
func (i *Importer) Run(ctx context.Context) (int, error) {
	digest, err := i.search.Digest(ctx, i.query)
	if err != nil {
		return 0, fmt.Errorf("failed to build deals digest: %w", err)
	}
	if digest == "" {
		slog.Info("Deals digest empty, nothing to import")
		return 0, nil
	}

	raw, err := i.extractor.ExtractDeals(ctx, digest)
	if err != nil {
		return 0, fmt.Errorf("failed to extract deals: %w", err)
	}

	imported := 0
	for _, candidate := range raw {
		deal, ok := i.validate(candidate)
		if !ok {
			continue
		}

		slug, err := i.assignSlug(deal)
		if err != nil {
			return imported, fmt.Errorf("failed to assign deal slug: %w", err)
		}
		deal.Slug = slug

		if err := i.repo.Upsert(*deal); err != nil {
			slog.Warn("Failed to upsert deal", "slug", deal.Slug, "error", err)
			continue
		}
		imported++
	}

	deleted, err := i.repo.DeleteExpiredByURL(i.sourceURL, i.now())
	if err != nil {
		slog.Warn("Failed to clean up expired deals", "error", err)
	} else if deleted > 0 {
		slog.Info("Removed expired deals", "count", deleted)
	}

	return imported, nil
}

// validate converts one extracted candidate into a storable deal, or rejects
// it with a warning. Rejection of one candidate never aborts the run.
func (i *Importer) validate(candidate ai.Deal) (*database.Deal, bool) {
	if candidate.Title == "" || candidate.BusinessName == "" {
		slog.Warn("Skipping deal without title or business name", "title", candidate.Title)
		return nil, false
	}
	if !database.ValidDealType(candidate.DealType) {
		slog.Warn("Skipping deal with invalid type", "title", candidate.Title, "deal_type", candidate.DealType)
		return nil, false
	}

	deal := &database.Deal{
		Title:          candidate.Title,
		Description:    candidate.Description,
		BusinessName:   candidate.BusinessName,
		DealType:       candidate.DealType,
		DiscountAmount: candidate.DiscountAmount,
		PromoCode:      candidate.PromoCode,
		Category:       candidate.Category,
		Terms:          candidate.Terms,
		URL:            candidate.URL,
		Status:         "active",
	}
	if deal.Category == "" {
		deal.Category = "Local Business"
	}
	if deal.URL == "" {
		deal.URL = i.sourceURL
	}

	deal.StartDate = parseDealDate(candidate.StartDate)
	deal.EndDate = parseDealDate(candidate.EndDate)
	if deal.EndDate != nil && deal.EndDate.Before(i.now().AddDate(0, 0, -30)) {
		slog.Warn("Skipping long-expired deal", "title", candidate.Title, "end_date", candidate.EndDate)
		return nil, false
	}

	return deal, true
}

// assignSlug derives the deal's slug from business and title. When the slug
// is taken by a different business's deal a timestamp suffix keeps the new
// row distinct; the same deal re-imported reuses its slug and upserts.
func (i *Importer) assignSlug(deal *database.Deal) (string, error) {
	slug := events.Slugify(deal.BusinessName + " " + deal.Title)

	exists, err := i.repo.SlugExists(slug)
	if err != nil {
		return "", err
	}
	if !exists {
		return slug, nil
	}

	existing, err := i.repo.GetBySlug(slug)
	if err != nil {
		return "", err
	}
	if existing != nil && existing.BusinessName == deal.BusinessName && existing.URL == deal.URL {
		return slug, nil
	}

	return fmt.Sprintf("%s-%s", slug, i.now().Format("20060102150405")), nil
}

var dealDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
}

func parseDealDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range dealDateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return &t
		}
	}
	return nil
}
