package strategy

import (
	"math"
	"sort"

	talib "github.com/markcheno/go-talib"

	"polyagent/internal/types"
)

const (
	minDataPoints = 21
	bbPeriod      = 20
	bbMult        = 2.0
)

type EMAResult struct {
	Period int
	Value  float64
}

type RSIResult struct {
	RSI        float64 // 0-100
	StochRSI   float64 // 0-1
	Overbought bool
	Oversold   bool
}

// SqueezeResult 布林带收敛检测。
type SqueezeResult struct {
	Squeezing bool
	Releasing bool
	Momentum  float64
	BBWidth   float64
}

// TechnicalContext 单个 token 的技术面汇总。
type TechnicalContext struct {
	TokenID        string
	EMAFast        EMAResult
	EMASlow        EMAResult
	RSI            RSIResult
	Squeeze        SqueezeResult
	Trend          string // up | down | neutral
	Crossover      string // bullish | bearish | none
	PriceChangePct float64
	CurrentPrice   float64
	PriceStart     float64
}

// AnalyzeTechnicals 在一段价格历史上跑全部指标。
// 数据点不足 minDataPoints 时返回 nil,不足以做有意义的分析。
func AnalyzeTechnicals(points []types.PricePoint, tokenID string, emaFast, emaSlow, rsiPeriod int) *TechnicalContext {
	if len(points) < minDataPoints {
		return nil
	}
	prices := make([]float64, len(points))
	for i, pp := range points {
		prices[i] = pp.Price
	}

	fast := computeEMA(prices, emaFast)
	slow := computeEMA(prices, emaSlow)
	rsi := computeRSI(prices, rsiPeriod)
	squeeze := computeSqueeze(prices)

	priceStart := prices[0]
	currentPrice := prices[len(prices)-1]
	changePct := 0.0
	if priceStart > 0 {
		changePct = (currentPrice - priceStart) / priceStart
	}

	trend := "neutral"
	switch {
	case changePct > 0.02:
		trend = "up"
	case changePct < -0.02:
		trend = "down"
	}

	crossover := "none"
	switch {
	case fast.Value > slow.Value*1.005:
		crossover = "bullish"
	case fast.Value < slow.Value*0.995:
		crossover = "bearish"
	}

	return &TechnicalContext{
		TokenID:        tokenID,
		EMAFast:        fast,
		EMASlow:        slow,
		RSI:            rsi,
		Squeeze:        squeeze,
		Trend:          trend,
		Crossover:      crossover,
		PriceChangePct: round4(changePct),
		CurrentPrice:   currentPrice,
		PriceStart:     priceStart,
	}
}

func computeEMA(prices []float64, period int) EMAResult {
	if len(prices) < period {
		// 数据不足时退化为简单均值
		sum := 0.0
		for _, p := range prices {
			sum += p
		}
		return EMAResult{Period: period, Value: sum / float64(len(prices))}
	}
	series := talib.Ema(prices, period)
	return EMAResult{Period: period, Value: series[len(series)-1]}
}

func computeRSI(prices []float64, period int) RSIResult {
	if len(prices) < period+1 {
		return RSIResult{RSI: 50.0, StochRSI: 0.5}
	}
	series := talib.Rsi(prices, period)
	// talib 前 period 个值是未定义的 0,截掉
	valid := series[period:]
	if len(valid) == 0 {
		return RSIResult{RSI: 50.0, StochRSI: 0.5}
	}
	current := valid[len(valid)-1]

	window := valid
	if len(valid) > period {
		window = valid[len(valid)-period:]
	}
	lo, hi := window[0], window[0]
	for _, v := range window {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	stoch := 0.5
	if hi-lo > 0 {
		stoch = (current - lo) / (hi - lo)
	}

	return RSIResult{
		RSI:        math.Round(current*100) / 100,
		StochRSI:   round4(math.Max(0, math.Min(1, stoch))),
		Overbought: current > 70,
		Oversold:   current < 30,
	}
}

func computeSqueeze(prices []float64) SqueezeResult {
	if len(prices) < bbPeriod {
		return SqueezeResult{}
	}
	upper, middle, lower := talib.BBands(prices, bbPeriod, bbMult, bbMult, talib.SMA)

	widths := make([]float64, 0, len(prices)-bbPeriod+1)
	for i := bbPeriod - 1; i < len(prices); i++ {
		if middle[i] > 0 {
			widths = append(widths, (upper[i]-lower[i])/middle[i])
		} else {
			widths = append(widths, 0)
		}
	}
	current := widths[len(widths)-1]

	sorted := append([]float64(nil), widths...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	squeezing := current < median

	releasing := false
	if len(widths) >= 2 {
		wasSqueezing := widths[len(widths)-2] < median
		releasing = wasSqueezing && !squeezing
	}

	momentum := 0.0
	window := len(prices) - 1
	if window > 5 {
		window = 5
	}
	if window > 0 {
		momentum = (prices[len(prices)-1] - prices[len(prices)-1-window]) / float64(window)
	}

	return SqueezeResult{
		Squeezing: squeezing,
		Releasing: releasing,
		Momentum:  math.Round(momentum*1e6) / 1e6,
		BBWidth:   math.Round(current*1e6) / 1e6,
	}
}
