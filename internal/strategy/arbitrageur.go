package strategy

import (
	"context"
	"fmt"
	"math"

	"polyagent/internal/config"
	"polyagent/internal/dataprovider"
	"polyagent/internal/types"
)

// Arbitrageur 捕捉同一市场内的定价不一致:
// 互补结果的价格之和应接近 1.0,偏离超出容忍度时交易被错误定价的一侧。
type Arbitrageur struct {
	priceSumTolerance float64
	minDeviation      float64
	orderSize         float64
}

func NewArbitrageur(cfg config.ArbitrageurConfig) *Arbitrageur {
	return &Arbitrageur{
		priceSumTolerance: cfg.PriceSumTolerance,
		minDeviation:      cfg.MinDeviation,
		orderSize:         cfg.OrderSize,
	}
}

func (a *Arbitrageur) Name() string { return "arbitrageur" }

func (a *Arbitrageur) Analyze(_ context.Context, markets []types.Market, _ dataprovider.Provider) ([]types.Signal, error) {
	var signals []types.Signal
	for _, market := range markets {
		if !market.Active || market.Closed {
			continue
		}
		if sig, ok := a.checkPriceSum(market); ok {
			signals = append(signals, sig)
		}
	}
	return signals, nil
}

func (a *Arbitrageur) checkPriceSum(market types.Market) (types.Signal, bool) {
	if len(market.OutcomePrices) < 2 {
		return types.Signal{}, false
	}

	priceSum := 0.0
	for _, p := range market.OutcomePrices {
		priceSum += p
	}
	deviation := math.Abs(priceSum - 1.0)
	if deviation <= a.priceSumTolerance {
		return types.Signal{}, false
	}

	var side types.Side
	var idx int
	if priceSum < 1.0 {
		// 整体定价偏低,买入最便宜的一侧
		side = types.SideBuy
		idx = minIndex(market.OutcomePrices)
	} else {
		// 整体定价偏高,卖出最贵的一侧
		side = types.SideSell
		idx = maxIndex(market.OutcomePrices)
	}
	targetPrice := market.OutcomePrices[idx]
	tokenID := ""
	if idx < len(market.ClobTokenIDs) {
		tokenID = market.ClobTokenIDs[idx]
	}

	confidence := math.Min(deviation/0.1, 1.0)
	return types.Signal{
		Strategy:    a.Name(),
		MarketID:    market.ID,
		TokenID:     tokenID,
		Side:        side,
		Confidence:  round4(confidence),
		TargetPrice: targetPrice,
		Size:        a.orderSize,
		Reason:      fmt.Sprintf("price_sum=%.4f, deviation=%.4f", priceSum, deviation),
	}, true
}

func minIndex(vals []float64) int {
	idx := 0
	for i, v := range vals {
		if v < vals[idx] {
			idx = i
		}
	}
	return idx
}

func maxIndex(vals []float64) int {
	idx := 0
	for i, v := range vals {
		if v > vals[idx] {
			idx = i
		}
	}
	return idx
}
