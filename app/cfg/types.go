package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// HTTP server configuration
	Port string

	// Ingestion authorization
	CronSecret string

	// Identity provider (token validation for the admin path)
	AuthURL     string
	AuthAnonKey string

	// LLM classification
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	LLMTimeout    int // seconds

	// Ingestion behavior
	SourcesFile       string
	DescriptionLimit  int
	FeedTimeout       int // seconds
	SchedulerInterval int // seconds, <= 0 disables the background scheduler
	WorkerCount       int

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
