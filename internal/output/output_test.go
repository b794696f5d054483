package output_test

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/gold-sentiment-index/backend/internal/output"
	"github.com/DeafMist/gold-sentiment-index/backend/internal/sentiment"
)

func sampleResult() *sentiment.Result {
	return &sentiment.Result{
		RunID:     "run-1",
		Timestamp: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		Documents: []sentiment.DocumentResult{{
			Document:       sentiment.Document{ID: "https://example.com/a", Source: "news", Timestamp: "2024-06-15T10:00:00Z", Text: "Fed cuts <rates>"},
			Score:          sentiment.Score{Positive: 0.9, Negative: 0.05, Neutral: 0.05},
			RecencyWeight:  1,
			ImpactWeight:   2.35,
			Weight:         2.35,
			ImpactKeywords: []string{"fed"},
		}},
		Components: sentiment.Components{NW: 2, NWNorm: 92.5, GSI: 92.5, Classification: sentiment.ExtremelyBullish},
	}
}

func TestFromResult(t *testing.T) {
	r := output.FromResult(sampleResult())

	require.Equal(t, "2024-06-15T12:00:00Z", r.Timestamp)
	require.Equal(t, 1, r.News.Count)
	require.Equal(t, 92.5, r.GSI)
	require.Equal(t, "Extremely Bullish", r.Classification)
	require.Equal(t, 0.9, r.News.Documents[0].Positive)

	require.Equal(t, output.GaugeValue{
		Timestamp:      "2024-06-15T12:00:00Z",
		GSI:            92.5,
		Classification: "Extremely Bullish",
		NWNorm:         92.5,
	}, r.Gauge())
}

func TestFromResultEmptyDocumentsIsArray(t *testing.T) {
	r := output.FromResult(&sentiment.Result{Components: sentiment.NeutralComponents()})
	data, err := json.Marshal(r)
	require.NoError(t, err)
	require.Contains(t, string(data), `"documents":[]`)
}

func TestPublishRoundTrip(t *testing.T) {
	dir := t.TempDir()
	resultsPath := filepath.Join(dir, "sentiment_results.json")
	valuePath := filepath.Join(dir, "docs", "gsi_value.json")

	r := output.FromResult(sampleResult())
	require.NoError(t, output.Publish(resultsPath, valuePath, r))

	gauge, err := output.ReadGaugeValue(valuePath)
	require.NoError(t, err)
	require.Equal(t, r.Gauge(), gauge)

	back, err := output.ReadResults(resultsPath)
	require.NoError(t, err)
	require.Equal(t, r, back)

	raw, err := os.ReadFile(resultsPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), "Fed cuts <rates>")
	require.Contains(t, string(raw), "\n  \"news\": {")

	entries, err := os.ReadDir(filepath.Join(dir, "docs"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are cleaned up")
}

func TestReadGaugeValueMissing(t *testing.T) {
	_, err := output.ReadGaugeValue(filepath.Join(t.TempDir(), "nope.json"))
	require.True(t, errors.Is(err, fs.ErrNotExist))
}
