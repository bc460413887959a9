package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"garage_user" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"garage_hub" description:"Database name"`

	// HTTP server configuration
	Port string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`

	// Ingestion authorization
	CronSecret string `long:"cron-secret" env:"CRON_SECRET" description:"Shared secret for scheduled ingestion triggers (optional)"`

	// Identity provider
	AuthURL     string `long:"auth-url" env:"AUTH_URL" description:"Identity provider base URL for bearer token validation"`
	AuthAnonKey string `long:"auth-anon-key" env:"AUTH_ANON_KEY" description:"Identity provider public API key"`

	// LLM classification
	OpenAIAPIKey  string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key (required)" required:"true"`
	OpenAIBaseURL string `long:"openai-base-url" env:"OPENAI_BASE_URL" default:"https://api.openai.com/v1" description:"OpenAI-compatible API base URL"`
	OpenAIModel   string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"Model used for listing classification"`
	LLMTimeout    int    `long:"llm-timeout" env:"LLM_TIMEOUT" default:"30" description:"Classification request timeout in seconds"`

	// Ingestion behavior
	SourcesFile       string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"Optional YAML file with feed sources to register at startup"`
	DescriptionLimit  int    `long:"description-limit" env:"DESCRIPTION_LIMIT" default:"2000" description:"Maximum stored description length"`
	FeedTimeout       int    `long:"feed-timeout" env:"FEED_TIMEOUT" default:"30" description:"Feed fetch timeout in seconds"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"0" description:"Background ingestion interval in seconds (0 disables)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background task workers"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (compatible; R107GarageBot/1.0)" description:"User agent string for outbound HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:            raw.DBHost,
		DBPort:            raw.DBPort,
		DBUser:            raw.DBUser,
		DBPassword:        raw.DBPassword,
		DBName:            raw.DBName,
		Port:              raw.Port,
		CronSecret:        raw.CronSecret,
		AuthURL:           raw.AuthURL,
		AuthAnonKey:       raw.AuthAnonKey,
		OpenAIAPIKey:      raw.OpenAIAPIKey,
		OpenAIBaseURL:     raw.OpenAIBaseURL,
		OpenAIModel:       raw.OpenAIModel,
		LLMTimeout:        raw.LLMTimeout,
		SourcesFile:       raw.SourcesFile,
		DescriptionLimit:  raw.DescriptionLimit,
		FeedTimeout:       raw.FeedTimeout,
		SchedulerInterval: raw.SchedulerInterval,
		WorkerCount:       raw.WorkerCount,
		UserAgent:         raw.UserAgent,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}
