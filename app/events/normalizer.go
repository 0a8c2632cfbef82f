package events

import (
	"cmp"
	"log/slog"
	"time"
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Run maps source candidates into canonical records. Candidates without a
// resolvable start time are dropped before they can reach persistence.
func (n *Normalizer) Run(candidates []Candidate, meta SourceMeta) []Record {
	records := make([]Record, 0, len(candidates))
	dropped := 0

	for _, c := range candidates {
		if c.StartTime == nil || c.StartTime.IsZero() {
			dropped++
			continue
		}
		records = append(records, n.normalize(c, meta))
	}

	if dropped > 0 {
		slog.Warn("Dropped candidates without a parseable start time", "source", meta.Slug, "dropped", dropped)
	}

	return records
}

func (n *Normalizer) normalize(c Candidate, meta SourceMeta) Record {
	titleSlug := Slugify(c.Title)
	start := c.StartTime.UTC()

	rec := Record{
		// Start time participates in the ID so recurring events with the same
		// title stay distinct rows.
		ID:          DeterministicID(meta.Slug, titleSlug, start.Format(time.RFC3339)),
		SourceName:  meta.Name,
		SourceID:    cmp.Or(c.SourceID, titleSlug+"-"+start.Format("20060102")),
		Title:       c.Title,
		Description: c.Description,
		StartTime:   start,
		Timezone:    meta.Timezone,
		Venue:       c.Venue,
		City:        cmp.Or(c.City, meta.HomeCity),
		State:       cmp.Or(c.State, meta.HomeState, "CO"),
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		Category:    cmp.Or(c.Category, meta.DefaultCategory, "Community"),
		PriceText:   cmp.Or(c.PriceText, "Free"),
		URL:         c.URL,
		ImageURL:    c.ImageURL,
		Source:      meta.Slug,
		SourceType:  meta.Type,
		Status:      "active",
	}

	if c.EndTime != nil && !c.EndTime.IsZero() {
		end := c.EndTime.UTC()
		rec.EndTime = &end
	}

	return rec
}
