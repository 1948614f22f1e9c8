package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"polyagent/internal/config"
	"polyagent/internal/types"
)

func TestKellyFormula(t *testing.T) {
	// b=1, f = 0.7 - 0.3
	assert.InDelta(t, 0.4, Kelly(0.7, 0.5), 1e-9)
	// 期望为零
	assert.Equal(t, 0.0, Kelly(0.5, 0.5))
	// 负期望截断为 0
	assert.Equal(t, 0.0, Kelly(0.3, 0.5))
}

func TestKellyDegeneratePrices(t *testing.T) {
	assert.Equal(t, 0.0, Kelly(0.9, 0))
	assert.Equal(t, 0.0, Kelly(0.9, 1))
	assert.Equal(t, 0.0, Kelly(0.9, 1.2))
	assert.Equal(t, 0.0, Kelly(0.9, -0.1))
}

func testSignal(confidence, price, size float64) types.Signal {
	return types.Signal{
		Strategy:    "signal_trader",
		MarketID:    "m1",
		TokenID:     "t1",
		Side:        types.SideBuy,
		Confidence:  confidence,
		TargetPrice: price,
		Size:        size,
	}
}

func portfolioWorth(balance float64) types.Portfolio {
	return types.Portfolio{Balance: balance, Positions: map[string]types.Position{}}
}

func TestComputeSizeFixed(t *testing.T) {
	s := New(config.PositionSizingConfig{Method: config.SizingFixed})
	got := s.ComputeSize(testSignal(0.7, 0.5, 42), portfolioWorth(1000))
	assert.Equal(t, 42.0, got)
}

func TestComputeSizeKellyCappedByMaxBetPct(t *testing.T) {
	s := New(config.PositionSizingConfig{Method: config.SizingKelly, MaxBetPct: 0.10})
	// 凯利比例 0.4,但 max_bet_pct 把它压到总值的 10%
	got := s.ComputeSize(testSignal(0.7, 0.5, 500), portfolioWorth(1000))
	assert.InDelta(t, 100.0, got, 1e-9)
}

func TestComputeSizeKellyCappedBySignalSize(t *testing.T) {
	s := New(config.PositionSizingConfig{Method: config.SizingKelly, MaxBetPct: 0.50})
	got := s.ComputeSize(testSignal(0.7, 0.5, 30), portfolioWorth(1000))
	assert.Equal(t, 30.0, got)
}

func TestComputeSizeFractionalKelly(t *testing.T) {
	s := New(config.PositionSizingConfig{
		Method:        config.SizingFractionalKelly,
		KellyFraction: 0.25,
		MaxBetPct:     0.50,
	})
	// 0.25 * 0.4 = 0.1,即总值的 10%
	got := s.ComputeSize(testSignal(0.7, 0.5, 500), portfolioWorth(1000))
	assert.InDelta(t, 100.0, got, 1e-9)
}

func TestComputeSizeNegativeEdgeIsZero(t *testing.T) {
	s := New(config.PositionSizingConfig{Method: config.SizingKelly, MaxBetPct: 0.10})
	got := s.ComputeSize(testSignal(0.3, 0.5, 100), portfolioWorth(1000))
	assert.Equal(t, 0.0, got)
}
