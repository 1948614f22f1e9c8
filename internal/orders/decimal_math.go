package orders

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	decOne      = decimal.NewFromInt(1)
	decimalZero = decimal.Zero
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimalZero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

func decimalCompare(a, b float64) int {
	return decFromFloat(a).Cmp(decFromFloat(b))
}

func decimalLTE(a, b float64) bool { return decimalCompare(a, b) <= 0 }
func decimalGTE(a, b float64) bool { return decimalCompare(a, b) >= 0 }
func decimalGT(a, b float64) bool  { return decimalCompare(a, b) > 0 }

// relativePrice 返回 entry*(1±pct),用十进制算避免二进制浮点的边界误差。
func relativePrice(entry, pct float64, above bool) float64 {
	if entry <= 0 {
		return 0
	}
	pctDec := decFromFloat(pct)
	factor := decOne.Sub(pctDec)
	if above {
		factor = decOne.Add(pctDec)
	}
	return decToFloat(decFromFloat(entry).Mul(factor))
}
