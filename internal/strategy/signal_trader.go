package strategy

import (
	"context"
	"fmt"
	"math"

	"polyagent/internal/config"
	"polyagent/internal/dataprovider"
	"polyagent/internal/types"
)

const midpoint = 0.5

// SignalTrader 基于成交量过滤的方向性策略:
// Yes 价格偏离 0.5 中点超过阈值时,在低于中点一侧买入、高于中点一侧卖出。
type SignalTrader struct {
	volumeThreshold    float64
	priceMoveThreshold float64
}

func NewSignalTrader(cfg config.SignalTraderConfig) *SignalTrader {
	return &SignalTrader{
		volumeThreshold:    cfg.VolumeThreshold,
		priceMoveThreshold: cfg.PriceMoveThreshold,
	}
}

func (s *SignalTrader) Name() string { return "signal_trader" }

func (s *SignalTrader) Analyze(_ context.Context, markets []types.Market, _ dataprovider.Provider) ([]types.Signal, error) {
	var signals []types.Signal
	for _, market := range markets {
		if sig, ok := s.evaluate(market); ok {
			signals = append(signals, sig)
		}
	}
	return signals, nil
}

func (s *SignalTrader) evaluate(market types.Market) (types.Signal, bool) {
	if !market.Active || market.Closed {
		return types.Signal{}, false
	}
	if market.Volume24h < s.volumeThreshold {
		return types.Signal{}, false
	}

	yesPrice := midpoint
	if len(market.OutcomePrices) > 0 {
		yesPrice = market.OutcomePrices[0]
	}
	distance := math.Abs(yesPrice - midpoint)
	if distance <= s.priceMoveThreshold {
		return types.Signal{}, false
	}

	var side types.Side
	var tokenID string
	if yesPrice < midpoint {
		side = types.SideBuy
		if len(market.ClobTokenIDs) > 0 {
			tokenID = market.ClobTokenIDs[0]
		}
	} else {
		side = types.SideSell
		if len(market.ClobTokenIDs) > 1 {
			tokenID = market.ClobTokenIDs[1]
		}
	}

	confidence := math.Min(distance/midpoint, 1.0)
	return types.Signal{
		Strategy:    s.Name(),
		MarketID:    market.ID,
		TokenID:     tokenID,
		Side:        side,
		Confidence:  round4(confidence),
		TargetPrice: yesPrice,
		Size:        round2(market.Volume24h * 0.01),
		Reason:      fmt.Sprintf("yes_price=%.4f, 24h_vol=%.0f", yesPrice, market.Volume24h),
	}, true
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
