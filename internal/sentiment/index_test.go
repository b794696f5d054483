package sentiment_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/gold-sentiment-index/backend/internal/sentiment"
)

func TestComputeIndexEmptyIsNeutral(t *testing.T) {
	want := sentiment.Components{NW: 0, NWNorm: 50, GSI: 50, Classification: sentiment.Neutral}

	got, err := sentiment.ComputeIndex(nil, nil)
	require.NoError(t, err)
	require.Equal(t, want, got)

	got, err = sentiment.ComputeIndex(
		[]sentiment.Score{{Positive: 1}, {Negative: 1}},
		[]float64{0, 0},
	)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestComputeIndexExtremes(t *testing.T) {
	got, err := sentiment.ComputeIndex([]sentiment.Score{{Positive: 1}}, []float64{1})
	require.NoError(t, err)
	require.Equal(t, 100.0, got.NWNorm)
	require.Equal(t, got.NWNorm, got.GSI)
	require.Equal(t, 1.0, got.NW)
	require.Equal(t, sentiment.ExtremelyBullish, got.Classification)

	got, err = sentiment.ComputeIndex([]sentiment.Score{{Negative: 1}}, []float64{1})
	require.NoError(t, err)
	require.Equal(t, 0.0, got.NWNorm)
	require.Equal(t, sentiment.ExtremelyBearish, got.Classification)
}

func TestComputeIndexWeightedAverage(t *testing.T) {
	scores := []sentiment.Score{
		{Positive: 0.8, Negative: 0.1},
		{Positive: 0.2, Negative: 0.6},
	}
	weights := []float64{3, 1}

	got, err := sentiment.ComputeIndex(scores, weights)
	require.NoError(t, err)

	nw := 3*0.7 + 1*(-0.4)
	require.InDelta(t, nw, got.NW, 1e-12)
	require.InDelta(t, 50+50*nw/4, got.NWNorm, 1e-12)
	require.Equal(t, sentiment.Bullish, got.Classification)
}

func TestComputeIndexIndependentOfCorpusSize(t *testing.T) {
	one, err := sentiment.ComputeIndex([]sentiment.Score{{Positive: 0.6, Negative: 0.2}}, []float64{0.5})
	require.NoError(t, err)

	scores := make([]sentiment.Score, 50)
	weights := make([]float64, 50)
	for i := range scores {
		scores[i] = sentiment.Score{Positive: 0.6, Negative: 0.2}
		weights[i] = 0.5
	}
	many, err := sentiment.ComputeIndex(scores, weights)
	require.NoError(t, err)

	require.InDelta(t, one.NWNorm, many.NWNorm, 1e-9)
	require.Greater(t, many.NW, one.NW)
}

func TestComputeIndexIgnoresNonFiniteWeights(t *testing.T) {
	got, err := sentiment.ComputeIndex(
		[]sentiment.Score{{Positive: 1}, {Negative: 1}, {Negative: 1}, {Negative: 1}},
		[]float64{1, math.NaN(), math.Inf(1), -2},
	)
	require.NoError(t, err)
	require.Equal(t, 100.0, got.NWNorm)
}

func TestComputeIndexClampsOutOfRangeScores(t *testing.T) {
	got, err := sentiment.ComputeIndex([]sentiment.Score{{Positive: 5, Negative: 0}}, []float64{2})
	require.NoError(t, err)
	require.Equal(t, 100.0, got.NWNorm)

	got, err = sentiment.ComputeIndex([]sentiment.Score{{Positive: 0, Negative: 7}}, []float64{2})
	require.NoError(t, err)
	require.Equal(t, 0.0, got.NWNorm)
}

func TestComputeIndexLengthMismatch(t *testing.T) {
	_, err := sentiment.ComputeIndex([]sentiment.Score{{Positive: 1}}, nil)
	require.ErrorIs(t, err, sentiment.ErrLengthMismatch)
}

func TestComputeIndexDeterministic(t *testing.T) {
	scores := []sentiment.Score{
		{Positive: 0.31, Negative: 0.52, Neutral: 0.17},
		{Positive: 0.77, Negative: 0.03, Neutral: 0.2},
		{Positive: 0.1, Negative: 0.1, Neutral: 0.8},
	}
	weights := []float64{0.123, 1.77, 0.000031}

	first, err := sentiment.ComputeIndex(scores, weights)
	require.NoError(t, err)
	second, err := sentiment.ComputeIndex(scores, weights)
	require.NoError(t, err)

	require.Equal(t, math.Float64bits(first.NW), math.Float64bits(second.NW))
	require.Equal(t, math.Float64bits(first.NWNorm), math.Float64bits(second.NWNorm))
	require.Equal(t, first, second)
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		value float64
		want  sentiment.Classification
	}{
		{value: 0, want: sentiment.ExtremelyBearish},
		{value: 24.999, want: sentiment.ExtremelyBearish},
		{value: 25, want: sentiment.Bearish},
		{value: 44.99, want: sentiment.Bearish},
		{value: 45, want: sentiment.Neutral},
		{value: 50, want: sentiment.Neutral},
		{value: 55, want: sentiment.Bullish},
		{value: 74.999, want: sentiment.Bullish},
		{value: 75, want: sentiment.ExtremelyBullish},
		{value: 100, want: sentiment.ExtremelyBullish},
		{value: -3, want: sentiment.ExtremelyBearish},
		{value: 140, want: sentiment.ExtremelyBullish},
		{value: math.NaN(), want: sentiment.Neutral},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, sentiment.Classify(tt.value), "value %v", tt.value)
	}
}

func TestBandsPartitionScale(t *testing.T) {
	require.Len(t, sentiment.Bands, 5)
	require.Equal(t, 0.0, sentiment.Bands[0].Lower)
	require.Equal(t, 100.0, sentiment.Bands[len(sentiment.Bands)-1].Upper)
	for i := 1; i < len(sentiment.Bands); i++ {
		require.Equal(t, sentiment.Bands[i-1].Upper, sentiment.Bands[i].Lower)
	}
	for _, b := range sentiment.Bands {
		require.Equal(t, b.Label, sentiment.Classify(b.Lower))
	}
}
