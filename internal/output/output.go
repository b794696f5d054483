package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DeafMist/gold-sentiment-index/backend/internal/sentiment"
)

// GaugeValue is the lightweight record polled by the dashboard gauge.
type GaugeValue struct {
	Timestamp      string  `json:"timestamp"`
	GSI            float64 `json:"gsi"`
	Classification string  `json:"classification"`
	NWNorm         float64 `json:"nw_norm"`
}

// DocumentRecord is one scored document in the detailed results.
type DocumentRecord struct {
	Source         string   `json:"source"`
	ID             string   `json:"id"`
	Timestamp      string   `json:"timestamp"`
	Text           string   `json:"text"`
	Positive       float64  `json:"positive"`
	Negative       float64  `json:"negative"`
	Neutral        float64  `json:"neutral"`
	RecencyWeight  float64  `json:"recency_weight"`
	ImpactWeight   float64  `json:"impact_weight"`
	Weight         float64  `json:"weight"`
	ImpactKeywords []string `json:"impact_keywords,omitempty"`
}

// NewsSection groups the per-document detail with the raw accumulators.
type NewsSection struct {
	Count     int              `json:"count"`
	Documents []DocumentRecord `json:"documents"`
	NW        float64          `json:"nw"`
	NWNorm    float64          `json:"nw_norm"`
}

// Results is the detailed audit record of a run.
type Results struct {
	Timestamp      string      `json:"timestamp"`
	RunID          string      `json:"run_id,omitempty"`
	News           NewsSection `json:"news"`
	GSI            float64     `json:"gsi"`
	Classification string      `json:"classification"`
}

// FromResult converts an analysis result into its published shape.
func FromResult(r *sentiment.Result) Results {
	docs := make([]DocumentRecord, 0, len(r.Documents))
	for _, d := range r.Documents {
		docs = append(docs, DocumentRecord{
			Source:         d.Source,
			ID:             d.ID,
			Timestamp:      d.Timestamp,
			Text:           d.Text,
			Positive:       d.Score.Positive,
			Negative:       d.Score.Negative,
			Neutral:        d.Score.Neutral,
			RecencyWeight:  d.RecencyWeight,
			ImpactWeight:   d.ImpactWeight,
			Weight:         d.Weight,
			ImpactKeywords: d.ImpactKeywords,
		})
	}

	return Results{
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
		RunID:     r.RunID,
		News: NewsSection{
			Count:     len(docs),
			Documents: docs,
			NW:        r.NW,
			NWNorm:    r.NWNorm,
		},
		GSI:            r.GSI,
		Classification: string(r.Classification),
	}
}

// Gauge extracts the lightweight record.
func (r Results) Gauge() GaugeValue {
	return GaugeValue{
		Timestamp:      r.Timestamp,
		GSI:            r.GSI,
		Classification: r.Classification,
		NWNorm:         r.News.NWNorm,
	}
}

// Publish writes the detailed results and then the gauge value. The gauge
// file is replaced last so pollers never see a value without its audit trail.
func Publish(resultsPath, valuePath string, r Results) error {
	if resultsPath != "" {
		if err := WriteJSON(resultsPath, r); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
	}
	if err := WriteJSON(valuePath, r.Gauge()); err != nil {
		return fmt.Errorf("write gauge value: %w", err)
	}
	return nil
}

// WriteJSON atomically replaces path with the indented JSON encoding of v.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return WriteFile(path, buf.Bytes())
}

// WriteFile atomically replaces path with data, creating parent directories.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// ReadGaugeValue loads the latest gauge value.
func ReadGaugeValue(path string) (GaugeValue, error) {
	var v GaugeValue
	if err := readJSON(path, &v); err != nil {
		return GaugeValue{}, err
	}
	return v, nil
}

// ReadResults loads the latest detailed results.
func ReadResults(path string) (Results, error) {
	var r Results
	if err := readJSON(path, &r); err != nil {
		return Results{}, err
	}
	return r, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
