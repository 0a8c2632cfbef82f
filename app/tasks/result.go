package tasks

import "time"

const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Result is the tagged outcome of one source's run. A failed source keeps
// its error attached instead of collapsing into an empty event list.
type Result struct {
	Source   string
	Status   string
	Events   int
	Err      error
	Duration time.Duration
}

// Summary aggregates the results of one full ingestion pass.
type Summary struct {
	Results     []Result
	OK          int
	Failed      int
	Skipped     int
	TotalEvents int
}

func NewSummary(results []Result) Summary {
	s := Summary{Results: results}
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			s.OK++
			s.TotalEvents += r.Events
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}
