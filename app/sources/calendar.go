package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/thorntonevents/ingest/app/ai"
	"github.com/thorntonevents/ingest/app/events"
)

var _ Source = (*CalendarSource)(nil)

// CalendarSource scrapes a municipal calendar page that has no machine
// readable feed. The page HTML is reduced to text and handed to the
// extractor, so the candidate list is only as good as the completion.
type CalendarSource struct {
	cfg       *Config
	client    *resty.Client
	extractor EventExtractor
}

func NewCalendarSource(cfg *Config, userAgent string, extractor EventExtractor) *CalendarSource {
	return &CalendarSource{
		cfg: cfg,
		client: resty.New().
			SetTimeout(time.Duration(cfg.Settings.Timeout) * time.Second).
			SetHeader("User-Agent", userAgent),
		extractor: extractor,
	}
}

func (s *CalendarSource) Config() *Config {
	return s.cfg
}

func (s *CalendarSource) Enabled() bool {
	// Without an extractor (no API key configured) the source cannot run.
	return s.cfg.Settings.Enabled && s.extractor != nil
}

func (s *CalendarSource) Fetch(ctx context.Context) ([]events.Candidate, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode())
	}

	text, err := ai.ReduceHTML(resp.Body(), s.cfg.Settings.MaxPromptBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce page content: %w", err)
	}

	candidates, err := s.extractor.ExtractEvents(ctx, text, s.formatHints())
	if err != nil {
		return nil, fmt.Errorf("failed to extract events: %w", err)
	}

	return candidates, nil
}

// formatHints renders the configured date hints as extra prompt context for
// recurring annual events the page lists without an explicit year.
func (s *CalendarSource) formatHints() string {
	if len(s.cfg.DateHints) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Known date estimates for recurring events on this page:\n")
	for _, hint := range s.cfg.DateHints {
		fmt.Fprintf(&b, "- %s: around %s\n", hint.Match, hint.Estimate)
	}
	return b.String()
}
