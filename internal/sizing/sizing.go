package sizing

import (
	"math"

	"polyagent/internal/config"
	"polyagent/internal/logger"
	"polyagent/internal/types"
)

// Sizer 在风控检查之前决定每笔信号的实际下注金额(USDC)。
type Sizer struct {
	method        string
	kellyFraction float64
	maxBetPct     float64
}

func New(cfg config.PositionSizingConfig) *Sizer {
	return &Sizer{
		method:        cfg.Method,
		kellyFraction: cfg.KellyFraction,
		maxBetPct:     cfg.MaxBetPct,
	}
}

// Kelly 计算凯利最优下注比例。
// 对二元市场,以 price 买入的赔率 b = 1/price - 1,
// f* = (b*p - q) / b,p 取信号置信度。
// 无赔率或负期望时返回 0,永不建议反向下注。
func Kelly(confidence, price float64) float64 {
	if price <= 0 || price >= 1 {
		return 0
	}
	b := 1/price - 1
	if b <= 0 {
		return 0
	}
	p := confidence
	q := 1 - p
	f := (b*p - q) / b
	if f < 0 {
		return 0
	}
	return f
}

// ComputeSize 返回该信号应投入的金额。
// fixed 模式直接用信号自带的 size;kelly 模式按组合总值的凯利比例,
// 并以 max_bet_pct 和信号 size 双重封顶。
func (s *Sizer) ComputeSize(sig types.Signal, portfolio types.Portfolio) float64 {
	switch s.method {
	case config.SizingKelly, config.SizingFractionalKelly:
		raw := Kelly(sig.Confidence, sig.TargetPrice)
		if s.method == config.SizingFractionalKelly {
			raw *= s.kellyFraction
		}
		total := portfolio.TotalValue()
		size := raw * total
		size = math.Min(size, total*s.maxBetPct)
		size = math.Min(size, sig.Size)
		size = math.Max(size, 0)
		if size != sig.Size {
			logger.Debugf("sizer: %s %s resized %.2f -> %.2f (method=%s)",
				sig.Side, sig.TokenID, sig.Size, size, s.method)
		}
		return size
	default: // fixed
		return sig.Size
	}
}
