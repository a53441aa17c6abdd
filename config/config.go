package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Apify     ApifyConfig
	Gemini    GeminiConfig
	Pipeline  PipelineConfig
	Scheduler SchedulerConfig
	Storage   StorageConfig
	S3        S3Config
	LogLevel  string
	Brands    []Brand
}

type ApifyConfig struct {
	APIKey      string
	Actor       string
	CallTimeout time.Duration
	PollTimeout time.Duration
}

type GeminiConfig struct {
	APIKey      string
	LabelModel  string
	NarrateModel string
	CallTimeout time.Duration
}

// PipelineConfig is the immutable run configuration: analysis window,
// per-stage enable flags, concurrency limits and result caps.
type PipelineConfig struct {
	WindowStart time.Time
	WindowEnd   time.Time

	EnableScraping  bool
	EnableLabeling  bool
	EnableSummaries bool

	FetchWorkers   int
	LabelWorkers   int
	SummaryWorkers int
	MaxAdsPerPage  int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

type SchedulerConfig struct {
	Cron     string
	Interval time.Duration
}

type StorageConfig struct {
	Driver      string // sqlite or postgres
	DBPath      string
	PostgresURL string
	ExportDir   string
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Brand is one tracked advertiser page, loaded from brands.yaml.
type Brand struct {
	Name    string `yaml:"name"`
	PageURL string `yaml:"page_url"`
	Group   string `yaml:"group"`
}

type brandsFile struct {
	Brands []Brand `yaml:"brands"`
}

const dateLayout = "2006-01-02"

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Apify: ApifyConfig{
			APIKey:      os.Getenv("APIFY_API_KEY"),
			Actor:       getEnv("APIFY_ACTOR", "apify~facebook-ads-scraper"),
			CallTimeout: getEnvDuration("APIFY_CALL_TIMEOUT", 60*time.Second),
			PollTimeout: getEnvDuration("APIFY_POLL_TIMEOUT", 15*time.Minute),
		},
		Gemini: GeminiConfig{
			APIKey:       os.Getenv("GEMINI_API_KEY"),
			LabelModel:   getEnv("GEMINI_LABEL_MODEL", "gemini-2.0-flash"),
			NarrateModel: getEnv("GEMINI_NARRATE_MODEL", "gemini-2.0-flash"),
			CallTimeout:  getEnvDuration("GEMINI_CALL_TIMEOUT", 45*time.Second),
		},
		Pipeline: PipelineConfig{
			EnableScraping:  getEnvBool("ENABLE_SCRAPING", true),
			EnableLabeling:  getEnvBool("ENABLE_LABELING", true),
			EnableSummaries: getEnvBool("ENABLE_SUMMARIES", true),
			FetchWorkers:    getEnvInt("FETCH_WORKERS", 3),
			LabelWorkers:    getEnvInt("LABEL_WORKERS", 10),
			SummaryWorkers:  getEnvInt("SUMMARY_WORKERS", 4),
			MaxAdsPerPage:   getEnvInt("MAX_ADS_PER_PAGE", 200),
			MaxAttempts:     getEnvInt("MAX_ATTEMPTS", 3),
			RetryBaseDelay:  getEnvDuration("RETRY_BASE_DELAY", 2*time.Second),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("PIPELINE_CRON"),
		},
		Storage: StorageConfig{
			Driver:      getEnv("DB_DRIVER", "sqlite"),
			DBPath:      getEnv("DB_PATH", "adwatch.db"),
			PostgresURL: os.Getenv("POSTGRES_URL"),
			ExportDir:   getEnv("EXPORT_DIR", "exports"),
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_SNAPSHOTS", false),
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "eu-central-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if interval := os.Getenv("PIPELINE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadWindow(); err != nil {
		return nil, err
	}

	if err := cfg.loadBrands(getEnv("BRANDS_FILE", "config/brands.yaml")); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadWindow reads the analysis window. When WINDOW_START/WINDOW_END are not
// set, the window defaults to the last WINDOW_DAYS days ending today.
func (c *Config) loadWindow() error {
	days := getEnvInt("WINDOW_DAYS", 14)
	end := time.Now().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -(days - 1))

	if v := os.Getenv("WINDOW_START"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return fmt.Errorf("invalid WINDOW_START %q: %w", v, err)
		}
		start = t
	}
	if v := os.Getenv("WINDOW_END"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return fmt.Errorf("invalid WINDOW_END %q: %w", v, err)
		}
		end = t
	}

	c.Pipeline.WindowStart = start
	c.Pipeline.WindowEnd = end
	return nil
}

func (c *Config) loadBrands(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var f brandsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	c.Brands = f.Brands
	return nil
}

// Validate rejects configuration errors before any network call is made.
func (c *Config) Validate() error {
	p := c.Pipeline
	if p.WindowEnd.Before(p.WindowStart) {
		return fmt.Errorf("window end %s before start %s",
			p.WindowEnd.Format(dateLayout), p.WindowStart.Format(dateLayout))
	}
	if p.EnableScraping && len(c.Brands) == 0 {
		return fmt.Errorf("scraping enabled but no brands configured")
	}
	if p.FetchWorkers < 1 || p.LabelWorkers < 1 || p.SummaryWorkers < 1 {
		return fmt.Errorf("worker counts must be positive")
	}
	if p.MaxAdsPerPage < 1 {
		return fmt.Errorf("MAX_ADS_PER_PAGE must be positive")
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("MAX_ATTEMPTS must be positive")
	}
	if c.Storage.Driver != "sqlite" && c.Storage.Driver != "postgres" {
		return fmt.Errorf("unknown DB_DRIVER: %s", c.Storage.Driver)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
