package sources

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/thorntonevents/ingest/app/events"
)

var _ Source = (*TicketingSource)(nil)

// TicketingSource pulls commercial events from a ticketing discovery API.
// The response is already structured, so extraction is a straight mapping.
type TicketingSource struct {
	cfg    *Config
	client *resty.Client
	apiKey string
}

func NewTicketingSource(cfg *Config, userAgent, apiKey string) *TicketingSource {
	return &TicketingSource{
		cfg: cfg,
		client: resty.New().
			SetTimeout(time.Duration(cfg.Settings.Timeout) * time.Second).
			SetHeader("User-Agent", userAgent),
		apiKey: apiKey,
	}
}

func (s *TicketingSource) Config() *Config {
	return s.cfg
}

func (s *TicketingSource) Enabled() bool {
	return s.cfg.Settings.Enabled && s.apiKey != ""
}

type ticketingResponse struct {
	Embedded struct {
		Events []ticketingEvent `json:"events"`
	} `json:"_embedded"`
}

type ticketingEvent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Info   string `json:"info"`
	Images []struct {
		URL   string `json:"url"`
		Width int    `json:"width"`
	} `json:"images"`
	Dates struct {
		Start struct {
			DateTime  string `json:"dateTime"`
			LocalDate string `json:"localDate"`
		} `json:"start"`
		End struct {
			DateTime string `json:"dateTime"`
		} `json:"end"`
	} `json:"dates"`
	Classifications []struct {
		Segment struct {
			Name string `json:"name"`
		} `json:"segment"`
	} `json:"classifications"`
	PriceRanges []struct {
		Min float64 `json:"min"`
	} `json:"priceRanges"`
	Embedded struct {
		Venues []struct {
			Name string `json:"name"`
			City struct {
				Name string `json:"name"`
			} `json:"city"`
			State struct {
				StateCode string `json:"stateCode"`
			} `json:"state"`
			Location struct {
				Latitude  string `json:"latitude"`
				Longitude string `json:"longitude"`
			} `json:"location"`
		} `json:"venues"`
	} `json:"_embedded"`
}

func (s *TicketingSource) Fetch(ctx context.Context) ([]events.Candidate, error) {
	var payload ticketingResponse

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey": s.apiKey,
			"city":   s.cfg.Defaults.City,
			"sort":   "date,asc",
		}).
		SetResult(&payload).
		Get(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticketing API: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("ticketing API returned status %d", resp.StatusCode())
	}

	candidates := make([]events.Candidate, 0, len(payload.Embedded.Events))
	for _, ev := range payload.Embedded.Events {
		candidates = append(candidates, mapTicketingEvent(ev))
	}

	return candidates, nil
}

func mapTicketingEvent(ev ticketingEvent) events.Candidate {
	candidate := events.Candidate{
		SourceID:    ev.ID,
		Title:       ev.Name,
		Description: ev.Info,
		URL:         ev.URL,
	}

	candidate.StartTime = parseTicketingTime(ev.Dates.Start.DateTime, ev.Dates.Start.LocalDate)
	candidate.EndTime = parseTicketingTime(ev.Dates.End.DateTime, "")

	if len(ev.Embedded.Venues) > 0 {
		venue := ev.Embedded.Venues[0]
		candidate.Venue = venue.Name
		candidate.City = venue.City.Name
		candidate.State = venue.State.StateCode
		if lat, err := strconv.ParseFloat(venue.Location.Latitude, 64); err == nil {
			candidate.Latitude = &lat
		}
		if lon, err := strconv.ParseFloat(venue.Location.Longitude, 64); err == nil {
			candidate.Longitude = &lon
		}
	}

	if len(ev.Classifications) > 0 {
		candidate.Category = ev.Classifications[0].Segment.Name
	}

	if len(ev.PriceRanges) > 0 {
		candidate.PriceText = fmt.Sprintf("From $%.2f", ev.PriceRanges[0].Min)
	}

	// Pick the widest image, the API returns several crops per event.
	best := -1
	for i, img := range ev.Images {
		if best == -1 || img.Width > ev.Images[best].Width {
			best = i
		}
	}
	if best >= 0 {
		candidate.ImageURL = ev.Images[best].URL
	}

	return candidate
}

func parseTicketingTime(dateTime, localDate string) *time.Time {
	if dateTime != "" {
		if t, err := time.Parse(time.RFC3339, dateTime); err == nil {
			return &t
		}
	}
	if localDate != "" {
		if t, err := time.ParseInLocation("2006-01-02", localDate, time.Local); err == nil {
			return &t
		}
	}
	return nil
}
