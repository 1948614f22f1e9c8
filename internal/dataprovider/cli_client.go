package dataprovider

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"polyagent/internal/config"
	"polyagent/internal/types"
)

// CLIClient 封装 polymarket 命令行工具,所有调用经过同一个 runCLI
// 入口,便于测试替换。CLI 输出经 TTL 缓存,外加速率限制避免打爆上游。
type CLIClient struct {
	bin     string
	timeout time.Duration
	cache   *ttlCache
	limiter *rate.Limiter

	// 测试注入点,默认为 execCLI
	run func(ctx context.Context, args []string) (string, error)
}

var _ Provider = (*CLIClient)(nil)

func NewCLIClient(cfg config.DataConfig) *CLIClient {
	c := &CLIClient{
		bin:     cfg.CLIPath,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		cache:   newTTLCache(time.Duration(cfg.CacheTTL) * time.Second),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}
	c.run = c.execCLI
	return c
}

func (c *CLIClient) GetActiveMarkets(ctx context.Context, tag string, limit int) ([]types.Market, error) {
	args := []string{"markets", "list", "--active", "true", "--limit", strconv.Itoa(limit), "-o", "json"}
	if tag != "" {
		args = append(args, "--tag", tag)
	}
	raw, err := c.runCached(ctx, fmt.Sprintf("markets:%s:%d", tag, limit), args)
	if err != nil {
		return nil, err
	}
	var markets []types.Market
	gjson.Parse(raw).ForEach(func(_, item gjson.Result) bool {
		markets = append(markets, parseMarket(item))
		return true
	})
	return markets, nil
}

func (c *CLIClient) GetOrderBook(ctx context.Context, tokenID string) (types.OrderBook, error) {
	raw, err := c.runCached(ctx, "book:"+tokenID, []string{"clob", "book", tokenID, "-o", "json"})
	if err != nil {
		return types.OrderBook{}, err
	}
	doc := gjson.Parse(raw)
	var book types.OrderBook
	doc.Get("bids").ForEach(func(_, lvl gjson.Result) bool {
		book.Bids = append(book.Bids, types.OrderBookLevel{
			Price: lvl.Get("price").Float(),
			Size:  lvl.Get("size").Float(),
		})
		return true
	})
	doc.Get("asks").ForEach(func(_, lvl gjson.Result) bool {
		book.Asks = append(book.Asks, types.OrderBookLevel{
			Price: lvl.Get("price").Float(),
			Size:  lvl.Get("size").Float(),
		})
		return true
	})
	return book, nil
}

func (c *CLIClient) GetPrice(ctx context.Context, tokenID string) (types.Spread, error) {
	book, err := c.GetOrderBook(ctx, tokenID)
	if err != nil {
		return types.Spread{}, err
	}
	if len(book.Bids) == 0 && len(book.Asks) == 0 {
		return types.Spread{}, fmt.Errorf("no price data for token %s", tokenID)
	}
	return types.Spread{Bid: book.BestBid(), Ask: book.BestAsk(), Spread: book.Spread()}, nil
}

func (c *CLIClient) GetPriceHistory(ctx context.Context, tokenID, interval string, fidelity int) ([]types.PricePoint, error) {
	args := []string{
		"clob", "price-history", tokenID,
		"--interval", interval,
		"--fidelity", strconv.Itoa(fidelity),
		"-o", "json",
	}
	key := fmt.Sprintf("history:%s:%s:%d", tokenID, interval, fidelity)
	raw, err := c.runCached(ctx, key, args)
	if err != nil {
		return nil, err
	}
	var points []types.PricePoint
	gjson.Parse(raw).ForEach(func(_, item gjson.Result) bool {
		points = append(points, types.PricePoint{
			Timestamp: parseTimestamp(item.Get("timestamp")),
			Price:     item.Get("price").Float(),
		})
		return true
	})
	return points, nil
}

func (c *CLIClient) runCached(ctx context.Context, key string, args []string) (string, error) {
	if cached, ok := c.cache.get(key); ok {
		return cached, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	raw, err := c.run(ctx, args)
	if err != nil {
		return "", err
	}
	c.cache.set(key, raw)
	return raw, nil
}

func (c *CLIClient) execCLI(ctx context.Context, args []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, c.bin, args...)
	out, err := cmd.Output()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%s CLI timed out after %s: %s", c.bin, c.timeout, strings.Join(args, " "))
	}
	if err != nil {
		var stderr string
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		return "", fmt.Errorf("%s CLI failed: %w (%s)", c.bin, err, stderr)
	}
	return string(out), nil
}

// parseMarket 解析单个市场的 JSON。outcomes/outcomePrices/clobTokenIds
// 在 CLI 输出里可能是字符串化的嵌套数组,需二次解析。
func parseMarket(item gjson.Result) types.Market {
	return types.Market{
		ID:             item.Get("id").String(),
		Question:       item.Get("question").String(),
		Outcomes:       parseStringList(item.Get("outcomes")),
		OutcomePrices:  parseFloatList(item.Get("outcomePrices")),
		Volume:         item.Get("volume").Float(),
		Liquidity:      item.Get("liquidity").Float(),
		Active:         item.Get("active").Bool(),
		Closed:         item.Get("closed").Bool(),
		ConditionID:    item.Get("conditionId").String(),
		Slug:           item.Get("slug").String(),
		EndDate:        item.Get("endDate").String(),
		Description:    item.Get("description").String(),
		ClobTokenIDs:   parseStringList(item.Get("clobTokenIds")),
		Volume24h:      item.Get("volume24hr").Float(),
		GroupItemTitle: item.Get("groupItemTitle").String(),
	}
}

func parseStringList(res gjson.Result) []string {
	if res.Type == gjson.String {
		res = gjson.Parse(res.String())
	}
	if !res.IsArray() {
		return nil
	}
	var out []string
	res.ForEach(func(_, item gjson.Result) bool {
		out = append(out, item.String())
		return true
	})
	return out
}

func parseFloatList(res gjson.Result) []float64 {
	if res.Type == gjson.String {
		res = gjson.Parse(res.String())
	}
	if !res.IsArray() {
		return nil
	}
	var out []float64
	res.ForEach(func(_, item gjson.Result) bool {
		out = append(out, item.Float())
		return true
	})
	return out
}

func parseTimestamp(res gjson.Result) time.Time {
	if res.Type == gjson.Number {
		return time.Unix(res.Int(), 0).UTC()
	}
	s := strings.TrimSpace(res.String())
	if s == "" {
		return time.Time{}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(ts, 0).UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
