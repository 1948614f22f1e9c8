package strategy

import "polyagent/internal/types"

type groupKey struct {
	marketID string
	tokenID  string
	side     types.Side
}

// Aggregate 合并多策略的原始信号:
//  1. 按 (market_id, token_id, side) 分组;
//  2. 组内不同策略名的数量须达到 minStrategies;
//  3. 每组保留 confidence 最高的一条,并列时取先出现的;
//  4. 最终丢弃 confidence 低于 minConfidence 的。
//
// 纯函数,输出顺序跟随各组在输入中的首次出现顺序。
func Aggregate(signals []types.Signal, minConfidence float64, minStrategies int) []types.Signal {
	if len(signals) == 0 {
		return nil
	}

	groups := make(map[groupKey][]types.Signal)
	var order []groupKey
	for _, sig := range signals {
		key := groupKey{marketID: sig.MarketID, tokenID: sig.TokenID, side: sig.Side}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], sig)
	}

	var result []types.Signal
	for _, key := range order {
		group := groups[key]
		if countStrategies(group) < minStrategies {
			continue
		}
		best := group[0]
		for _, sig := range group[1:] {
			if sig.Confidence > best.Confidence {
				best = sig
			}
		}
		if best.Confidence >= minConfidence {
			result = append(result, best)
		}
	}
	return result
}

func countStrategies(group []types.Signal) int {
	seen := make(map[string]struct{}, len(group))
	for _, sig := range group {
		seen[sig.Strategy] = struct{}{}
	}
	return len(seen)
}
