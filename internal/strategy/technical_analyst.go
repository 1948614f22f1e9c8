package strategy

import (
	"context"
	"fmt"
	"math"

	"polyagent/internal/config"
	"polyagent/internal/dataprovider"
	"polyagent/internal/logger"
	"polyagent/internal/types"
)

// TechnicalAnalyst 基于 EMA/RSI/布林带收敛的多指标策略。
// 只在价格处于中间区间 (0.05-0.95) 的市场上产生信号,
// 极端价格附近指标意义不大。
type TechnicalAnalyst struct {
	emaFast   int
	emaSlow   int
	rsiPeriod int
	interval  string
	fidelity  int
	orderSize float64
}

func NewTechnicalAnalyst(cfg config.TechnicalAnalystConfig) *TechnicalAnalyst {
	return &TechnicalAnalyst{
		emaFast:   cfg.EMAFastPeriod,
		emaSlow:   cfg.EMASlowPeriod,
		rsiPeriod: cfg.RSIPeriod,
		interval:  cfg.HistoryInterval,
		fidelity:  cfg.HistoryFidelity,
		orderSize: cfg.OrderSize,
	}
}

func (t *TechnicalAnalyst) Name() string { return "technical_analyst" }

func (t *TechnicalAnalyst) Analyze(ctx context.Context, markets []types.Market, data dataprovider.Provider) ([]types.Signal, error) {
	var signals []types.Signal
	for _, m := range markets {
		if !t.eligible(m) {
			continue
		}
		tokenID := m.ClobTokenIDs[0]
		history, err := data.GetPriceHistory(ctx, tokenID, t.interval, t.fidelity)
		if err != nil {
			logger.Debugf("technical_analyst: history unavailable for %s: %v", tokenID, err)
			continue
		}
		tc := AnalyzeTechnicals(history, tokenID, t.emaFast, t.emaSlow, t.rsiPeriod)
		if tc == nil {
			continue
		}
		if sig := t.evaluate(m, tc); sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals, nil
}

func (t *TechnicalAnalyst) eligible(m types.Market) bool {
	if !m.Active || m.Closed {
		return false
	}
	if len(m.OutcomePrices) == 0 || len(m.ClobTokenIDs) == 0 {
		return false
	}
	yes := m.OutcomePrices[0]
	return yes >= 0.05 && yes <= 0.95
}

func (t *TechnicalAnalyst) evaluate(m types.Market, tc *TechnicalContext) *types.Signal {
	var side types.Side
	switch {
	case tc.Crossover == "bullish" && !tc.RSI.Overbought:
		if tc.Squeeze.Releasing && tc.Squeeze.Momentum <= 0 {
			return nil
		}
		side = types.SideBuy
	case tc.Crossover == "bearish" && !tc.RSI.Oversold:
		if tc.Squeeze.Releasing && tc.Squeeze.Momentum >= 0 {
			return nil
		}
		side = types.SideSell
	default:
		return nil
	}

	confidence := t.confidence(tc, side)
	if confidence <= 0 {
		return nil
	}

	reason := fmt.Sprintf("TA %s: ema_cross=%s, rsi=%.1f, trend=%s, price_change=%+.2f%%",
		side, tc.Crossover, tc.RSI.RSI, tc.Trend, tc.PriceChangePct*100)
	if tc.Squeeze.Releasing {
		reason += ", squeeze_release"
	}

	return &types.Signal{
		Strategy:    t.Name(),
		MarketID:    m.ID,
		TokenID:     tc.TokenID,
		Side:        side,
		Confidence:  round4(confidence),
		TargetPrice: tc.CurrentPrice,
		Size:        t.orderSize,
		Reason:      reason,
	}
}

// confidence 三项加权: EMA 距离 0.4, RSI 位置 0.3, 收敛状态 0.3。
func (t *TechnicalAnalyst) confidence(tc *TechnicalContext, side types.Side) float64 {
	emaScore := 0.0
	if tc.EMASlow.Value > 0 {
		diffPct := math.Abs(tc.EMAFast.Value-tc.EMASlow.Value) / tc.EMASlow.Value
		emaScore = math.Min(diffPct/0.05, 1.0)
	}

	rsiScore := 0.0
	if side == types.SideBuy {
		rsiScore = math.Max(0, (50-tc.RSI.RSI)/50)
	} else {
		rsiScore = math.Max(0, (tc.RSI.RSI-50)/50)
	}

	squeezeScore := 0.5
	if tc.Squeeze.Releasing {
		aligned := (side == types.SideBuy && tc.Squeeze.Momentum > 0) ||
			(side == types.SideSell && tc.Squeeze.Momentum < 0)
		if aligned {
			squeezeScore = 1.0
		}
	} else if tc.Squeeze.Squeezing {
		squeezeScore = 0.3
	}

	return emaScore*0.4 + rsiScore*0.3 + squeezeScore*0.3
}
