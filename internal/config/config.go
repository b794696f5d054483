package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// News snapshot sources understood by the analyzer.
const (
	SourceFile          = "file"
	SourceElasticsearch = "elasticsearch"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Outputs locates the files a run publishes.
type Outputs struct {
	ResultsPath   string
	ValuePath     string
	DashboardPath string
}

// Scorer configures the remote sentiment model.
type Scorer struct {
	URL        string
	Token      string
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int
}

// Analyzer holds configuration for one index computation run.
type Analyzer struct {
	Common
	Outputs
	Scorer         Scorer
	NewsSource     string
	NewsFile       string
	Lookback       time.Duration
	MaxDocuments   int
	ImpactKeywords []string
}

// Worker holds configuration for the Kafka -> Elasticsearch worker.
type Worker struct {
	Common
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaConsumer  string
	DedupeCapacity int
	DedupeTTL      time.Duration
	BatchSize      int
}

// API describes HTTP-layer configuration.
type API struct {
	Outputs
	BindAddr string
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// LoadDotEnv reads ENV_FILE, or .env.local and .env, into the process
// environment. Missing files are not an error and variables that are already
// set win.
func LoadDotEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// LoadAnalyzer builds an Analyzer config from environment variables.
func LoadAnalyzer() (*Analyzer, error) {
	c := &Analyzer{
		Common:  loadCommon(),
		Outputs: loadOutputs(),
		Scorer: Scorer{
			URL:        getEnv("SCORER_URL", "http://finbert:8080/predict"),
			Token:      getEnv("SCORER_TOKEN", ""),
			BatchSize:  getInt("SCORER_BATCH_SIZE", 32),
			Timeout:    getDuration("SCORER_TIMEOUT", "60s"),
			MaxRetries: getInt("SCORER_MAX_RETRIES", 3),
		},
		NewsSource:     strings.ToLower(getEnv("NEWS_SOURCE", SourceFile)),
		NewsFile:       getEnv("NEWS_FILE", "news.json"),
		Lookback:       getDuration("ANALYZER_LOOKBACK", "720h"),
		MaxDocuments:   getInt("ANALYZER_MAX_DOCUMENTS", 5000),
		ImpactKeywords: splitAndTrim(getEnv("IMPACT_KEYWORDS", "")),
	}

	switch c.NewsSource {
	case SourceFile:
		if c.NewsFile == "" {
			return nil, fmt.Errorf("NEWS_FILE must be set when NEWS_SOURCE=file")
		}
	case SourceElasticsearch:
	default:
		return nil, fmt.Errorf("NEWS_SOURCE must be %q or %q, got %q", SourceFile, SourceElasticsearch, c.NewsSource)
	}

	if c.Scorer.URL == "" {
		return nil, fmt.Errorf("SCORER_URL must be set")
	}
	if c.Scorer.BatchSize <= 0 {
		return nil, fmt.Errorf("SCORER_BATCH_SIZE must be positive")
	}
	if c.Scorer.Timeout <= 0 {
		return nil, fmt.Errorf("SCORER_TIMEOUT must be positive")
	}
	if c.Scorer.MaxRetries < 0 {
		return nil, fmt.Errorf("SCORER_MAX_RETRIES cannot be negative")
	}
	if c.Lookback <= 0 {
		return nil, fmt.Errorf("ANALYZER_LOOKBACK must be positive")
	}
	if c.MaxDocuments <= 0 {
		return nil, fmt.Errorf("ANALYZER_MAX_DOCUMENTS must be positive")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common:         loadCommon(),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "news_raw"),
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "news-worker"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:      getInt("WORKER_BATCH_SIZE", 10),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Outputs:  loadOutputs(),
		BindAddr: getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
	}

	if c.ValuePath == "" {
		return nil, fmt.Errorf("OUTPUT_VALUE_PATH must be set")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_CRON", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "news"),
	}
}

func loadOutputs() Outputs {
	return Outputs{
		ResultsPath:   getEnv("OUTPUT_RESULTS_PATH", "sentiment_results.json"),
		ValuePath:     getEnv("OUTPUT_VALUE_PATH", "docs/gsi_value.json"),
		DashboardPath: getEnv("OUTPUT_DASHBOARD_PATH", "docs/index.html"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
