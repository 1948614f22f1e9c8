package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"polyagent/internal/config"
	"polyagent/internal/dataprovider"
	"polyagent/internal/executor"
	"polyagent/internal/logger"
	"polyagent/internal/metrics"
	"polyagent/internal/store"
	"polyagent/internal/store/model"
	"polyagent/internal/types"
)

// Engine 管理条件单的创建、巡检与触发。
// 状态全部落库,重启后继续守护已有持仓。
type Engine struct {
	cfg      config.ConditionalOrdersConfig
	store    *store.Store
	provider dataprovider.Provider
	exec     executor.Executor
}

func NewEngine(cfg config.ConditionalOrdersConfig, st *store.Store, provider dataprovider.Provider, exec executor.Executor) *Engine {
	return &Engine{cfg: cfg, store: st, provider: provider, exec: exec}
}

// shouldTrigger 判断一张条件单在当前 bid 下是否该触发。
// 比较走十进制,0.54 这类阈值不受浮点表示误差影响。
func shouldTrigger(o ConditionalOrder, bid float64) bool {
	switch o.OrderType {
	case TypeStopLoss:
		return decimalLTE(bid, o.TriggerPrice)
	case TypeTakeProfit:
		return decimalGTE(bid, o.TriggerPrice)
	case TypeTrailingStop:
		if o.HighWatermark == nil || o.TrailPercent == nil {
			return false
		}
		return decimalLTE(bid, relativePrice(*o.HighWatermark, *o.TrailPercent, false))
	}
	return false
}

// CheckAll 巡检全部活跃条件单,返回触发数。
// 单个 token 价格拉不到只跳过该单,不中断整轮巡检。
func (e *Engine) CheckAll(ctx context.Context) (int, error) {
	models, err := e.store.ListActiveConditionalOrders(ctx)
	if err != nil {
		return 0, err
	}

	triggered := 0
	cancelledTokens := make(map[string]bool)
	for _, m := range models {
		order := fromModel(m)
		if cancelledTokens[order.TokenID] {
			continue
		}

		spread, err := e.provider.GetPrice(ctx, order.TokenID)
		if err != nil {
			logger.Warnf("conditional: no price for %s, skipping %s check: %v", order.TokenID, order.OrderType, err)
			continue
		}
		bid := spread.Bid

		if !shouldTrigger(order, bid) {
			e.maybeRaiseWatermark(ctx, &order, bid)
			continue
		}

		if e.fire(ctx, &order, bid) {
			triggered++
			cancelledTokens[order.TokenID] = true
			e.cancelSiblings(ctx, models, order)
		}
	}
	return triggered, nil
}

// maybeRaiseWatermark 追踪止损的水位线只升不降。
func (e *Engine) maybeRaiseWatermark(ctx context.Context, order *ConditionalOrder, bid float64) {
	if order.OrderType != TypeTrailingStop || order.HighWatermark == nil {
		return
	}
	if !decimalGT(bid, *order.HighWatermark) {
		return
	}
	watermark := bid
	order.HighWatermark = &watermark
	if err := e.store.SaveConditionalOrder(ctx, order.toModel()); err != nil {
		logger.Errorf("conditional: failed to persist watermark for %s: %v", order.ID, err)
	} else {
		logger.Debugf("conditional: %s watermark raised to %.4f", order.TokenID, watermark)
	}
}

// fire 执行触发:持仓还在就按现价全量卖出,持仓已没了就作废。
// 返回 true 表示实际产生了卖出。
func (e *Engine) fire(ctx context.Context, order *ConditionalOrder, bid float64) bool {
	portfolio := e.exec.GetPortfolio()
	pos, held := portfolio.Positions[order.TokenID]
	if !held || pos.Shares <= 0 {
		order.Status = StatusCancelled
		if err := e.store.SaveConditionalOrder(ctx, order.toModel()); err != nil {
			logger.Errorf("conditional: failed to cancel %s: %v", order.ID, err)
		}
		logger.Infof("conditional: %s on %s cancelled, position already closed", order.OrderType, order.TokenID)
		return false
	}

	sig := types.Signal{
		Strategy:    "conditional_orders",
		MarketID:    order.MarketID,
		TokenID:     order.TokenID,
		Side:        types.SideSell,
		Confidence:  1.0,
		TargetPrice: bid,
		Size:        pos.Shares * bid,
		Reason:      fmt.Sprintf("%s triggered at %.4f (trigger %.4f)", order.OrderType, bid, order.TriggerPrice),
	}
	placed, err := e.exec.PlaceOrder(ctx, sig)
	if err != nil {
		logger.Errorf("conditional: sell for %s failed, order stays active: %v", order.TokenID, err)
		return false
	}
	if placed == nil {
		order.Status = StatusCancelled
		_ = e.store.SaveConditionalOrder(ctx, order.toModel())
		return false
	}

	now := time.Now()
	order.Status = StatusTriggered
	order.TriggeredAt = &now
	if err := e.store.SaveConditionalOrder(ctx, order.toModel()); err != nil {
		logger.Errorf("conditional: failed to mark %s triggered: %v", order.ID, err)
	}
	metrics.ConditionalTriggersTotal.WithLabelValues(order.OrderType).Inc()
	logger.Infof("conditional: %s TRIGGERED on %s, sold %.2f shares @ %.4f", order.OrderType, order.TokenID, placed.Shares, bid)
	return true
}

// cancelSiblings 一张触发后,同 token 的其余活跃条件单全部作废,
// 避免对已清空的持仓再触发一次。
func (e *Engine) cancelSiblings(ctx context.Context, models []model.ConditionalOrderModel, fired ConditionalOrder) {
	for _, m := range models {
		if m.TokenID != fired.TokenID || m.ID == fired.ID || m.Status != StatusActive {
			continue
		}
		sibling := fromModel(m)
		sibling.Status = StatusCancelled
		if err := e.store.SaveConditionalOrder(ctx, sibling.toModel()); err != nil {
			logger.Errorf("conditional: failed to cancel sibling %s: %v", sibling.ID, err)
		}
	}
}

// CancelForToken 平仓路径(如退出管理)清掉某 token 的全部活跃条件单。
func (e *Engine) CancelForToken(ctx context.Context, tokenID string) error {
	models, err := e.store.ListActiveConditionalOrders(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		if m.TokenID != tokenID {
			continue
		}
		order := fromModel(m)
		order.Status = StatusCancelled
		if err := e.store.SaveConditionalOrder(ctx, order.toModel()); err != nil {
			return err
		}
	}
	return nil
}

// AutoCreate 在买单成交后自动挂保护单:止损、止盈,
// 以及(开启时)追踪止损。信号可以用显式价格覆盖默认百分比。
func (e *Engine) AutoCreate(ctx context.Context, sig types.Signal, filled *types.Order) ([]ConditionalOrder, error) {
	if filled == nil || sig.Side != types.SideBuy {
		return nil, nil
	}
	entry := filled.Price
	now := time.Now()

	stopTrigger := relativePrice(entry, e.cfg.DefaultStopLossPct, false)
	if sig.StopLoss != nil {
		stopTrigger = *sig.StopLoss
	}
	takeTrigger := relativePrice(entry, e.cfg.DefaultTakeProfitPct, true)
	if sig.TakeProfit != nil {
		takeTrigger = *sig.TakeProfit
	}

	created := []ConditionalOrder{
		{
			ID: uuid.NewString(), TokenID: sig.TokenID, MarketID: sig.MarketID,
			OrderType: TypeStopLoss, Status: StatusActive,
			TriggerPrice: stopTrigger, Size: filled.Size,
			ParentStrategy: sig.Strategy,
			Reason:         fmt.Sprintf("auto stop_loss for %s entry @ %.4f", sig.Strategy, entry),
			CreatedAt:      now,
		},
		{
			ID: uuid.NewString(), TokenID: sig.TokenID, MarketID: sig.MarketID,
			OrderType: TypeTakeProfit, Status: StatusActive,
			TriggerPrice: takeTrigger, Size: filled.Size,
			ParentStrategy: sig.Strategy,
			Reason:         fmt.Sprintf("auto take_profit for %s entry @ %.4f", sig.Strategy, entry),
			CreatedAt:      now,
		},
	}
	if e.cfg.TrailingStopEnabled {
		watermark := entry
		trail := e.cfg.TrailingStopPct
		created = append(created, ConditionalOrder{
			ID: uuid.NewString(), TokenID: sig.TokenID, MarketID: sig.MarketID,
			OrderType: TypeTrailingStop, Status: StatusActive,
			TriggerPrice: relativePrice(entry, trail, false), Size: filled.Size,
			ParentStrategy: sig.Strategy,
			Reason:         fmt.Sprintf("auto trailing_stop for %s entry @ %.4f", sig.Strategy, entry),
			HighWatermark:  &watermark, TrailPercent: &trail,
			CreatedAt: now,
		})
	}

	for i := range created {
		if err := e.store.SaveConditionalOrder(ctx, created[i].toModel()); err != nil {
			return created[:i], err
		}
	}
	logger.Infof("conditional: created %d protective orders for %s", len(created), sig.TokenID)
	return created, nil
}
