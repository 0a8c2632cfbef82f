package sources

import (
	"context"

	"github.com/thorntonevents/ingest/app/events"
)

// Source is one external provider of event data. Each implementation owns
// its fetch and extraction strategy; everything downstream of the candidate
// list is shared.
type Source interface {
	Config() *Config

	// Enabled reports whether the source should run: its configuration must
	// enable it and its required credential must be present. A disabled
	// source is skipped, not failed.
	Enabled() bool

	// Fetch retrieves the source's raw content and extracts loosely-typed
	// candidates. An error means the step failed; zero candidates with a nil
	// error means the source genuinely had nothing.
	Fetch(ctx context.Context) ([]events.Candidate, error)
}

// EventExtractor turns reduced page text into event candidates. The
// production implementation is non-deterministic (chat completion); tests
// substitute a fixed-output fake.
type EventExtractor interface {
	ExtractEvents(ctx context.Context, content string, hints string) ([]events.Candidate, error)
}
