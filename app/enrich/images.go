package enrich

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/thorntonevents/ingest/app/events"
)

const defaultSearchURL = "https://api.pexels.com/v1/search"

// keywordQueries maps title substrings to stock photo search queries. Order
// matters: specific event phrasings are checked before generic ones, so
// "Trunk or Treat at Anythink" gets a trunk-or-treat photo, not a library.
var keywordQueries = []struct {
	Keyword string
	Query   string
}{
	{"trunk or treat", "halloween trunk or treat"},
	{"storytime", "children reading books"},
	{"story time", "children reading books"},
	{"farmers market", "farmers market produce"},
	{"food truck", "food truck festival"},
	{"harvest fest", "autumn harvest festival"},
	{"tree lighting", "christmas tree lighting"},
	{"movie night", "outdoor movie screening"},
	{"craft fair", "craft fair handmade"},
	{"book club", "book club discussion"},
	{"yoga", "outdoor yoga class"},
	{"5k", "running race community"},
	{"fun run", "running race community"},
	{"concert", "live music concert outdoor"},
	{"fireworks", "fireworks celebration"},
	{"parade", "community parade"},
	{"garage sale", "garage sale neighborhood"},
	{"easter egg", "easter egg hunt children"},
}

// categoryQueries is the fallback when no title keyword matches.
var categoryQueries = map[string]string{
	"library":   "public library interior",
	"music":     "live music concert",
	"sports":    "community sports field",
	"arts":      "art gallery exhibition",
	"outdoors":  "colorado park trail",
	"family":    "family community event",
	"community": "community gathering park",
	"food":      "street food festival",
	"holiday":   "holiday celebration lights",
}

const defaultQuery = "colorado community event"

type Enricher struct {
	client    *resty.Client
	apiKey    string
	searchURL string
	delay     time.Duration
	batchCap  int
}

func New(apiKey string, delayMs, batchCap int) *Enricher {
	return &Enricher{
		client:    resty.New().SetTimeout(15 * time.Second),
		apiKey:    apiKey,
		searchURL: defaultSearchURL,
		delay:     time.Duration(delayMs) * time.Millisecond,
		batchCap:  batchCap,
	}
}

func (e *Enricher) Enabled() bool {
	return e.apiKey != ""
}

// BuildQuery picks the stock photo search query for an event. Exported for
// the keyword table to be testable without network access.
func BuildQuery(title, category string) string {
	lowerTitle := strings.ToLower(title)
	for _, kq := range keywordQueries {
		if strings.Contains(lowerTitle, kq.Keyword) {
			return kq.Query
		}
	}
	if q, ok := categoryQueries[strings.ToLower(category)]; ok {
		return q
	}
	return defaultQuery
}

type searchResponse struct {
	Photos []struct {
		Src struct {
			Large string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

// FindImage looks up a stock photo URL for the event. Failures are reported
// as an empty URL with a nil error; enrichment must never sink an ingest run.
func (e *Enricher) FindImage(ctx context.Context, title, category string) string {
	if e.apiKey == "" {
		return ""
	}

	query := BuildQuery(title, category)

	var payload searchResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Authorization", e.apiKey).
		SetQueryParams(map[string]string{
			"query":    query,
			"per_page": "1",
		}).
		SetResult(&payload).
		Get(e.searchURL)
	if err != nil {
		slog.Warn("Image lookup failed", "query", query, "error", err)
		return ""
	}
	if resp.StatusCode() != 200 {
		slog.Warn("Image lookup returned bad status", "query", query, "status", resp.StatusCode())
		return ""
	}
	if len(payload.Photos) == 0 {
		return ""
	}

	return payload.Photos[0].Src.Large
}

// EnrichBatch fills in missing image URLs on the given records, in place.
// Lookups are paced to respect the photo API's rate limit and capped per run
// so one large source cannot exhaust the quota.
func (e *Enricher) EnrichBatch(ctx context.Context, records []events.Record) int {
	if e.apiKey == "" {
		return 0
	}

	enriched := 0
	lookups := 0
	for i := range records {
		if records[i].ImageURL != "" {
			continue
		}
		if lookups >= e.batchCap {
			slog.Debug("Image lookup cap reached", "cap", e.batchCap)
			break
		}

		if lookups > 0 {
			select {
			case <-ctx.Done():
				return enriched
			case <-time.After(e.delay):
			}
		}

		lookups++
		if url := e.FindImage(ctx, records[i].Title, records[i].Category); url != "" {
			records[i].ImageURL = url
			enriched++
		}
	}

	return enriched
}
