package sources

import "fmt"

// Deps carries the shared dependencies a source may need. Credentials left
// empty disable the sources that require them rather than failing them.
type Deps struct {
	UserAgent       string
	Extractor       EventExtractor
	TicketingAPIKey string
}

// New builds the source implementation matching the config's type.
func New(cfg *Config, deps Deps) (Source, error) {
	switch cfg.Type {
	case TypeRSSFeed:
		return NewRSSSource(cfg, deps.UserAgent), nil
	case TypeAIScraped:
		return NewCalendarSource(cfg, deps.UserAgent, deps.Extractor), nil
	case TypeTicketingAPI:
		return NewTicketingSource(cfg, deps.UserAgent, deps.TicketingAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Type)
	}
}
