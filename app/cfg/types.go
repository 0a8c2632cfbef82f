package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	RunOnce           bool
	APIAccessKey      string

	// AI extraction
	OpenAIAPIKey string
	OpenAIModel  string

	// Image enrichment
	PexelsAPIKey  string
	ImageDelayMs  int
	ImageBatchCap int

	// Deal import
	SearchAPIKey   string
	DealsQuery     string
	DealsSourceURL string

	// Ticketing API
	TicketingAPIKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
