package backtest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"polyagent/internal/logger"
)

const (
	colorEquity   = "#3b82f6"
	colorBaseline = "#9ca3af"
)

// WriteReport 把权益曲线渲染成单页 HTML。
func WriteReport(result *Result, path string) error {
	if path == "" {
		return fmt.Errorf("report path 不能为空")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	xAxis := make([]string, len(result.Equity))
	equity := make([]opts.LineData, len(result.Equity))
	baseline := make([]opts.LineData, len(result.Equity))
	for i, point := range result.Equity {
		xAxis[i] = point.Timestamp.Format("2006-01-02 15:04")
		equity[i] = opts.LineData{Value: point.Value}
		baseline[i] = opts.LineData{Value: result.Metrics.InitialBalance}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Backtest %s", result.RunID),
			Subtitle: fmt.Sprintf("return %.2f%%  sharpe %.2f  max_dd %.2f%%  win_rate %.1f%%  trades %d",
				result.Metrics.TotalReturn*100, result.Metrics.SharpeRatio,
				result.Metrics.MaxDrawdown*100, result.Metrics.WinRate*100, result.Metrics.Trades),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("Equity", equity, charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}))
	line.AddSeries("Initial", baseline, charts.WithLineStyleOpts(opts.LineStyle{Color: colorBaseline, Width: 1, Type: "dashed"}))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		return err
	}
	logger.Infof("backtest: report written to %s", path)
	return nil
}
