package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polyagent/internal/types"
)

func history(prices ...float64) []types.PricePoint {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]types.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = types.PricePoint{Timestamp: base.Add(time.Duration(i) * time.Hour), Price: p}
	}
	return out
}

func rampPrices(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestAnalyzeTechnicalsTooFewPoints(t *testing.T) {
	assert.Nil(t, AnalyzeTechnicals(history(rampPrices(20, 0.4, 0.01)...), "tok", 8, 21, 14))
}

func TestAnalyzeTechnicalsUptrend(t *testing.T) {
	tc := AnalyzeTechnicals(history(rampPrices(40, 0.30, 0.01)...), "tok", 8, 21, 14)
	require.NotNil(t, tc)

	assert.Equal(t, "up", tc.Trend)
	assert.Equal(t, "bullish", tc.Crossover)
	assert.Greater(t, tc.EMAFast.Value, tc.EMASlow.Value)
	assert.Greater(t, tc.RSI.RSI, 50.0)
	assert.Greater(t, tc.PriceChangePct, 0.0)
}

func TestAnalyzeTechnicalsDowntrend(t *testing.T) {
	tc := AnalyzeTechnicals(history(rampPrices(40, 0.80, -0.01)...), "tok", 8, 21, 14)
	require.NotNil(t, tc)

	assert.Equal(t, "down", tc.Trend)
	assert.Equal(t, "bearish", tc.Crossover)
	assert.Less(t, tc.RSI.RSI, 50.0)
}

func TestAnalyzeTechnicalsFlatIsNeutral(t *testing.T) {
	tc := AnalyzeTechnicals(history(rampPrices(40, 0.50, 0)...), "tok", 8, 21, 14)
	require.NotNil(t, tc)

	assert.Equal(t, "neutral", tc.Trend)
	assert.Equal(t, "none", tc.Crossover)
	assert.InDelta(t, 0.50, tc.EMAFast.Value, 1e-9)
	assert.InDelta(t, 0.50, tc.EMASlow.Value, 1e-9)
}

func TestComputeEMAFallbackToMean(t *testing.T) {
	got := computeEMA([]float64{0.2, 0.4, 0.6}, 8)
	assert.InDelta(t, 0.4, got.Value, 1e-9)
	assert.Equal(t, 8, got.Period)
}

func TestComputeRSINeutralOnShortSeries(t *testing.T) {
	got := computeRSI([]float64{0.5, 0.6, 0.7}, 14)
	assert.Equal(t, 50.0, got.RSI)
	assert.Equal(t, 0.5, got.StochRSI)
	assert.False(t, got.Overbought)
	assert.False(t, got.Oversold)
}

func TestComputeRSIAllGainsOverbought(t *testing.T) {
	got := computeRSI(rampPrices(30, 0.10, 0.02), 14)
	assert.True(t, got.Overbought)
	assert.False(t, got.Oversold)
	assert.Greater(t, got.RSI, 70.0)
}

func TestComputeSqueezeLowVolatilityAfterHigh(t *testing.T) {
	// 前段高波动,后段收敛,最终 width 应落在中位数之下
	prices := make([]float64, 0, 60)
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			prices = append(prices, 0.40)
		} else {
			prices = append(prices, 0.60)
		}
	}
	for i := 0; i < 30; i++ {
		prices = append(prices, 0.50)
	}
	got := computeSqueeze(prices)
	assert.True(t, got.Squeezing)
	assert.False(t, got.Releasing)
}
