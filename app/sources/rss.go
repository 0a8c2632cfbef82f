package sources

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"

	"github.com/thorntonevents/ingest/app/events"
)

var _ Source = (*RSSSource)(nil)

// RSSSource ingests a library/community RSS feed. The feed's item
// descriptions carry the actual event schedule as free text; pubDate is only
// a fallback.
type RSSSource struct {
	cfg    *Config
	client *resty.Client
	parser *gofeed.Parser
}

func NewRSSSource(cfg *Config, userAgent string) *RSSSource {
	return &RSSSource{
		cfg: cfg,
		client: resty.New().
			SetTimeout(time.Duration(cfg.Settings.Timeout) * time.Second).
			SetHeader("User-Agent", userAgent),
		parser: gofeed.NewParser(),
	}
}

func (s *RSSSource) Config() *Config {
	return s.cfg
}

func (s *RSSSource) Enabled() bool {
	// RSS feeds need no credential
	return s.cfg.Settings.Enabled
}

func (s *RSSSource) Fetch(ctx context.Context) ([]events.Candidate, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.feedURL())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode())
	}

	feed, err := s.parser.Parse(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	candidates := make([]events.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		candidates = append(candidates, s.normalizeItem(item))
	}

	return candidates, nil
}

func (s *RSSSource) feedURL() string {
	if s.cfg.FeedFilter == "" {
		return s.cfg.URL
	}
	sep := "?"
	if strings.Contains(s.cfg.URL, "?") {
		sep = "&"
	}
	return s.cfg.URL + sep + "config=" + s.cfg.FeedFilter
}

func (s *RSSSource) normalizeItem(item *gofeed.Item) events.Candidate {
	candidate := events.Candidate{
		SourceID:    cmp.Or(item.GUID, item.Link),
		Title:       item.Title,
		Description: item.Description,
		URL:         item.Link,
	}

	start, end := ParseDescriptionTimes(item.Description)
	if start == nil && item.PublishedParsed != nil {
		// No schedule in the description text; assume the feed's pubDate
		// with a fixed one-hour duration.
		fallbackStart := *item.PublishedParsed
		fallbackEnd := fallbackStart.Add(time.Hour)
		start, end = &fallbackStart, &fallbackEnd
	}
	candidate.StartTime = start
	candidate.EndTime = end

	if len(item.Categories) > 0 {
		candidate.Category = item.Categories[0]
	}

	if item.Image != nil {
		candidate.ImageURL = item.Image.URL
	} else if len(item.Enclosures) > 0 && item.Enclosures[0] != nil &&
		strings.HasPrefix(item.Enclosures[0].Type, "image/") {
		candidate.ImageURL = item.Enclosures[0].URL
	}

	return candidate
}

// descriptionTimePattern matches the schedule line library feeds embed in
// item descriptions: "Saturday, January 24 2026 9:15am - 10:00am".
var descriptionTimePattern = regexp.MustCompile(
	`(?i)\b(?:sunday|monday|tuesday|wednesday|thursday|friday|saturday),?\s+` +
		`(january|february|march|april|may|june|july|august|september|october|november|december)\s+` +
		`(\d{1,2}),?\s+(\d{4})\s+(\d{1,2}):(\d{2})\s*(am|pm)\s*[-\x{2013}]\s*(\d{1,2}):(\d{2})\s*(am|pm)`)

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// ParseDescriptionTimes pulls the event start and end out of a feed item's
// description. Times are interpreted in the configured local timezone. A
// regex miss returns nil, nil so the caller can fall back to pubDate.
func ParseDescriptionTimes(description string) (*time.Time, *time.Time) {
	m := descriptionTimePattern.FindStringSubmatch(description)
	if m == nil {
		return nil, nil
	}

	month := monthsByName[strings.ToLower(m[1])]
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	startHour := to24Hour(m[4], m[6])
	startMin, _ := strconv.Atoi(m[5])
	endHour := to24Hour(m[7], m[9])
	endMin, _ := strconv.Atoi(m[8])

	start := time.Date(year, month, day, startHour, startMin, 0, 0, time.Local)
	end := time.Date(year, month, day, endHour, endMin, 0, 0, time.Local)

	return &start, &end
}

func to24Hour(hour, meridiem string) int {
	h, _ := strconv.Atoi(hour)
	h = h % 12
	if strings.EqualFold(meridiem, "pm") {
		h += 12
	}
	return h
}
