package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/gold-sentiment-index/backend/internal/config"
)

func TestLoadAnalyzerDefaults(t *testing.T) {
	for _, key := range []string{
		"ELASTICSEARCH_ADDR", "ELASTICSEARCH_INDEX", "NEWS_SOURCE", "NEWS_FILE",
		"SCORER_URL", "SCORER_TOKEN", "SCORER_BATCH_SIZE", "SCORER_TIMEOUT", "SCORER_MAX_RETRIES",
		"ANALYZER_LOOKBACK", "ANALYZER_MAX_DOCUMENTS", "IMPACT_KEYWORDS",
		"OUTPUT_RESULTS_PATH", "OUTPUT_VALUE_PATH", "OUTPUT_DASHBOARD_PATH",
	} {
		t.Setenv(key, "")
	}

	cfg, err := config.LoadAnalyzer()
	require.NoError(t, err)

	require.Equal(t, config.SourceFile, cfg.NewsSource)
	require.Equal(t, "news.json", cfg.NewsFile)
	require.Equal(t, "http://finbert:8080/predict", cfg.Scorer.URL)
	require.Equal(t, 32, cfg.Scorer.BatchSize)
	require.Equal(t, 60*time.Second, cfg.Scorer.Timeout)
	require.Equal(t, 3, cfg.Scorer.MaxRetries)
	require.Equal(t, 720*time.Hour, cfg.Lookback)
	require.Equal(t, 5000, cfg.MaxDocuments)
	require.Empty(t, cfg.ImpactKeywords)
	require.Equal(t, "sentiment_results.json", cfg.ResultsPath)
	require.Equal(t, "docs/gsi_value.json", cfg.ValuePath)
	require.Equal(t, "docs/index.html", cfg.DashboardPath)
	require.Equal(t, "news", cfg.ElasticsearchIndex)
}

func TestLoadAnalyzerOverrides(t *testing.T) {
	t.Setenv("NEWS_SOURCE", "Elasticsearch")
	t.Setenv("ELASTICSEARCH_ADDR", "http://localhost:9200")
	t.Setenv("SCORER_URL", "http://localhost:5000/score")
	t.Setenv("SCORER_TOKEN", "secret")
	t.Setenv("SCORER_BATCH_SIZE", "8")
	t.Setenv("SCORER_TIMEOUT", "5s")
	t.Setenv("SCORER_MAX_RETRIES", "0")
	t.Setenv("ANALYZER_LOOKBACK", "48h")
	t.Setenv("IMPACT_KEYWORDS", "tariff, gold ban ,,")
	t.Setenv("OUTPUT_VALUE_PATH", "/srv/www/gsi_value.json")

	cfg, err := config.LoadAnalyzer()
	require.NoError(t, err)

	require.Equal(t, config.SourceElasticsearch, cfg.NewsSource)
	require.Equal(t, "http://localhost:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "http://localhost:5000/score", cfg.Scorer.URL)
	require.Equal(t, "secret", cfg.Scorer.Token)
	require.Equal(t, 8, cfg.Scorer.BatchSize)
	require.Equal(t, 5*time.Second, cfg.Scorer.Timeout)
	require.Equal(t, 0, cfg.Scorer.MaxRetries)
	require.Equal(t, 48*time.Hour, cfg.Lookback)
	require.Equal(t, []string{"tariff", "gold ban"}, cfg.ImpactKeywords)
	require.Equal(t, "/srv/www/gsi_value.json", cfg.ValuePath)
}

func TestLoadAnalyzerValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "unknown source", key: "NEWS_SOURCE", val: "twitter"},
		{name: "zero batch", key: "SCORER_BATCH_SIZE", val: "0"},
		{name: "negative retries", key: "SCORER_MAX_RETRIES", val: "-1"},
		{name: "zero max documents", key: "ANALYZER_MAX_DOCUMENTS", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := config.LoadAnalyzer()
			require.Error(t, err)
		})
	}
}

func TestLoadWorkerDefaults(t *testing.T) {
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("ELASTICSEARCH_INDEX", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("KAFKA_CONSUMER_GROUP", "")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "news_raw", cfg.KafkaTopic)
	require.Equal(t, "news-worker", cfg.KafkaConsumer)
}

func TestLoadWorkerOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker-a:29092, broker-b:29093")
	t.Setenv("WORKER_DEDUPE_CAPACITY", "5")
	t.Setenv("WORKER_DEDUPE_TTL", "48h")
	t.Setenv("WORKER_BATCH_SIZE", "3")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.Equal(t, 5, cfg.DedupeCapacity)
	require.Equal(t, 48*time.Hour, cfg.DedupeTTL)
	require.Equal(t, 3, cfg.BatchSize)
}

func TestLoadAPI(t *testing.T) {
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("OUTPUT_VALUE_PATH", "out/value.json")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, "out/value.json", cfg.ValuePath)
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("RETENTION_CRON", "12h")
	t.Setenv("RETENTION_MAX_AGE", "")
	t.Setenv("RETENTION_BATCH_SIZE", "123")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 30*24*time.Hour, cfg.MaxAge)
	require.Equal(t, 123, cfg.BatchSize)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GSI_DOTENV_PROBE=from-file\n"), 0o600))

	t.Setenv("ENV_FILE", path)
	t.Setenv("GSI_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("GSI_DOTENV_PROBE"))

	require.NoError(t, config.LoadDotEnv())
	require.Equal(t, "from-file", os.Getenv("GSI_DOTENV_PROBE"))
}
