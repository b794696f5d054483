package sentiment

import "math"

// Score holds the classifier's three independent confidences for one text.
type Score struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// Net is positive minus negative confidence.
func (s Score) Net() float64 { return s.Positive - s.Negative }

// Margin is the absolute gap between positive and negative confidence.
func (s Score) Margin() float64 { return math.Abs(s.Net()) }

// Document is a dated piece of text ready for scoring.
type Document struct {
	ID        string
	Source    string
	Timestamp string
	Text      string
}

// Classification is the discrete label attached to an index value.
type Classification string

const (
	ExtremelyBearish Classification = "Extremely Bearish"
	Bearish          Classification = "Bearish"
	Neutral          Classification = "Neutral"
	Bullish          Classification = "Bullish"
	ExtremelyBullish Classification = "Extremely Bullish"
)

// Band is one slice of the 0-100 scale. Lower is inclusive and Upper is
// exclusive, except for the last band which also contains 100.
type Band struct {
	Label Classification
	Lower float64
	Upper float64
	Color string
}

// Bands partitions [0,100]. The dashboard gauge is rendered from this table,
// so the page and Classify can never disagree.
var Bands = []Band{
	{Label: ExtremelyBearish, Lower: 0, Upper: 25, Color: "#ff0000"},
	{Label: Bearish, Lower: 25, Upper: 45, Color: "#fee2e2"},
	{Label: Neutral, Lower: 45, Upper: 55, Color: "#e5e7eb"},
	{Label: Bullish, Lower: 55, Upper: 75, Color: "#bbf7d0"},
	{Label: ExtremelyBullish, Lower: 75, Upper: 100, Color: "#22c55e"},
}

// Components is the aggregated index for one run. GSI mirrors NWNorm while
// news is the only input signal.
type Components struct {
	NW             float64
	NWNorm         float64
	GSI            float64
	Classification Classification
}

// NeutralComponents is the result for an empty corpus.
func NeutralComponents() Components {
	return Components{NW: 0, NWNorm: 50, GSI: 50, Classification: Neutral}
}
