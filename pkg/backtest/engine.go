package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/bhargavap21/mobius-sub001/pkg/indicators"
	"github.com/bhargavap21/mobius-sub001/pkg/marketdata"
	"github.com/bhargavap21/mobius-sub001/pkg/sentiment"
	"github.com/bhargavap21/mobius-sub001/pkg/strategy"
)

const (
	defaultFetchTimeout = 5 * time.Minute
	defaultWorkers      = 8
)

// Engine replays a validated strategy against historical prices and
// sentiment. The bar loop is single-threaded and deterministic; only the
// data prefetch phase runs concurrently, and it completes before the first
// bar is evaluated.
type Engine struct {
	prices    marketdata.Provider
	sentiment *sentiment.Aggregator

	now          func() time.Time
	fetchTimeout time.Duration
	workers      int
	runHook      func(*sentiment.Run)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the "today" reference used to anchor the window.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithFetchTimeout bounds the sentiment prefetch phase. When it expires
// the run proceeds with whatever the cache holds.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.fetchTimeout = d
		}
	}
}

// WithWorkers sets the prefetch worker pool size.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithRunHook registers a callback invoked with the sentiment run after a
// simulation completes. Callers use it to snapshot the run cache.
func WithRunHook(hook func(*sentiment.Run)) Option {
	return func(e *Engine) {
		e.runHook = hook
	}
}

// NewEngine constructs an Engine. The sentiment aggregator may be nil when
// no strategy will gate on sentiment.
func NewEngine(prices marketdata.Provider, agg *sentiment.Aggregator, opts ...Option) *Engine {
	e := &Engine{
		prices:       prices,
		sentiment:    agg,
		now:          time.Now,
		fetchTimeout: defaultFetchTimeout,
		workers:      defaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run simulates the strategy over the trailing window of the given length.
// Data-availability failures degrade (an asset with no bars is dropped; a
// run with no bars at all yields a Result whose Error is set); invariant
// violations surface as errors.
func (e *Engine) Run(ctx context.Context, schema *strategy.Schema, days int, initialCapital float64) (*Result, error) {
	if schema == nil {
		return nil, fmt.Errorf("backtest: nil strategy")
	}
	if days <= 0 {
		return nil, fmt.Errorf("backtest: days must be positive, got %d", days)
	}
	if initialCapital <= 0 {
		return nil, fmt.Errorf("backtest: initial capital must be positive, got %v", initialCapital)
	}
	if e.prices == nil {
		return nil, fmt.Errorf("backtest: no price data provider configured")
	}

	universe := schema.Universe()
	to := marketdata.Day(e.now())
	from := to.AddDate(0, 0, -days)

	series := e.fetchPrices(ctx, universe, from, to)
	if len(series) == 0 {
		return errorResult(fmt.Sprintf("no price data available for %v over the last %d days", universe, days)), nil
	}
	assets := orderedAssets(universe, series)

	var run *sentiment.Run
	if e.sentiment != nil && e.needsSentiment(schema) {
		source := schema.SentimentSource()
		if !e.sentiment.HasCategory(source) {
			return nil, fmt.Errorf("backtest: no sentiment provider for source %q", source)
		}
		run = e.sentiment.NewRun()
		e.prefetchSentiment(ctx, run, series, source)
	} else if e.needsSentiment(schema) {
		return nil, fmt.Errorf("backtest: strategy requires sentiment but no aggregator is configured")
	}

	weights, err := e.resolveWeights(ctx, schema, assets, series, run)
	if err != nil {
		return nil, err
	}

	var (
		allTrades []Trade
		breakdown = make(map[string]AssetStats, len(assets))
		curves    = make(map[string]*assetRun, len(assets))
		allocated float64
	)
	for _, asset := range assets {
		weight, ok := weights[asset]
		if !ok || weight <= 0 {
			continue
		}
		capital := initialCapital * weight
		allocated += capital
		ar, err := e.simulateAsset(ctx, schema, asset, series[asset], capital, run)
		if err != nil {
			return nil, err
		}
		allTrades = append(allTrades, ar.trades...)
		curves[asset] = ar
		breakdown[asset] = AssetStats{
			TotalReturn:   totalReturnPct(capital, ar.finalCapital),
			BuyHoldReturn: ar.buyHoldPct,
			TotalTrades:   len(ar.trades),
			WinRate:       winRatePct(ar.trades),
			FinalCapital:  ar.finalCapital,
		}
	}
	if len(curves) == 0 {
		return errorResult("no assets selected for simulation"), nil
	}

	history := mergeEquityCurves(curves, initialCapital-allocated)
	equity := make([]float64, 0, len(history)+1)
	equity = append(equity, initialCapital)
	for _, pt := range history {
		equity = append(equity, pt.TotalValue)
	}
	finalValue := equity[len(equity)-1]

	summary := Summary{
		NumAssets:     len(curves),
		TotalReturn:   totalReturnPct(initialCapital, finalValue),
		BuyHoldReturn: buyHoldReturnPct(curves),
		TotalTrades:   len(allTrades),
		WinRate:       winRatePct(allTrades),
		SharpeRatio:   sharpeRatio(equity),
		MaxDrawdown:   maxDrawdownPct(equity),
		ProfitFactor:  profitFactor(allTrades),
	}
	if schema.PortfolioMode {
		for _, asset := range assets {
			if _, ok := curves[asset]; ok {
				summary.Assets = append(summary.Assets, asset)
			}
		}
	} else {
		summary.Symbol = assets[0]
	}
	if run != nil {
		checked, found := run.Stats()
		summary.DataPointsChecked = checked
		summary.ExternalDataFound = found
		if e.runHook != nil {
			e.runHook(run)
		}
	}

	return &Result{
		Summary:          summary,
		Trades:           allTrades,
		AssetBreakdown:   breakdown,
		PortfolioHistory: history,
	}, nil
}

func (e *Engine) needsSentiment(schema *strategy.Schema) bool {
	if schema.Entry.Signal == strategy.SignalSentiment {
		return true
	}
	return schema.PortfolioMode &&
		schema.Risk.Allocation == strategy.AllocationSignalWeighted &&
		schema.Risk.DynamicSelection
}

// resolveWeights decides per-asset capital weights once for the run.
func (e *Engine) resolveWeights(ctx context.Context, schema *strategy.Schema, assets []string, series map[string][]marketdata.Bar, run *sentiment.Run) (map[string]float64, error) {
	if schema.PortfolioMode &&
		schema.Risk.Allocation == strategy.AllocationSignalWeighted &&
		schema.Risk.DynamicSelection {
		if run == nil {
			return nil, fmt.Errorf("backtest: signal-weighted allocation requires sentiment data")
		}
		candidates := e.rankCandidates(ctx, assets, series, run, schema.SentimentSource())
		if weights := SignalWeights(candidates, schema.Risk.TopN); len(weights) > 0 {
			return weights, nil
		}
		logx.WithContext(ctx).Info("backtest: no candidate has a positive signal score, falling back to equal weight")
	}
	return EqualWeights(assets, schema.Risk.MaxPositions), nil
}

// rankCandidates aggregates each asset's sentiment over the run window.
// All keys were prefetched, so these lookups are cache hits.
func (e *Engine) rankCandidates(ctx context.Context, assets []string, series map[string][]marketdata.Bar, run *sentiment.Run, source string) []Candidate {
	candidates := make([]Candidate, 0, len(assets))
	for _, asset := range assets {
		var mentions int
		var sum float64
		var scored int
		for _, bar := range series[asset] {
			score, err := run.Resolve(ctx, asset, bar.Date, source)
			if err != nil || score == nil {
				continue
			}
			mentions += score.Items
			sum += score.Value
			scored++
		}
		c := Candidate{Asset: asset, Mentions: mentions}
		if scored > 0 {
			c.AvgSentiment = sum / float64(scored)
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// assetRun holds one asset's simulation output.
type assetRun struct {
	trades       []Trade
	dates        []time.Time
	values       []float64
	initial      float64
	finalCapital float64
	buyHoldPct   float64
}

func (e *Engine) simulateAsset(ctx context.Context, schema *strategy.Schema, asset string, bars []marketdata.Bar, capital float64, run *sentiment.Run) (*assetRun, error) {
	signals := e.entrySignals(ctx, schema, asset, bars, run)
	exits := customExitSignals(schema, bars)

	machine := NewMachine(asset, schema.Exit, schema.Risk.PositionSize)
	cash := capital
	ar := &assetRun{
		initial: capital,
		dates:   make([]time.Time, 0, len(bars)),
		values:  make([]float64, 0, len(bars)),
	}

	for i, bar := range bars {
		trade, err := machine.EvalBar(BarInput{
			Date:        bar.Date,
			Price:       bar.Close,
			High:        bar.High,
			Low:         bar.Low,
			EntrySignal: signals[i],
			CustomExit:  exits[i],
			Capital:     cash,
		})
		if err != nil {
			return nil, err
		}
		if trade != nil {
			if trade.Type == TradeBuy {
				cash -= trade.Shares * trade.Price
			} else {
				cash += trade.Shares * trade.Price
			}
			ar.trades = append(ar.trades, *trade)
		}
		ar.dates = append(ar.dates, marketdata.Day(bar.Date))
		ar.values = append(ar.values, cash+machine.MarketValue(bar.Close))
	}

	ar.finalCapital = ar.values[len(ar.values)-1]
	if first := bars[0].Close; first > 0 {
		ar.buyHoldPct = (bars[len(bars)-1].Close/first - 1) * 100
	}
	return ar, nil
}

// entrySignals evaluates the strategy's entry condition over every bar.
// Indicator warm-up bars never fire. Custom signals are opaque to the
// engine and never fire; the run still reports trade counts accurately so
// the caller can decide to retry with a longer window.
func (e *Engine) entrySignals(ctx context.Context, schema *strategy.Schema, asset string, bars []marketdata.Bar, run *sentiment.Run) []bool {
	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}
	signals := make([]bool, len(bars))

	switch schema.Entry.Signal {
	case strategy.SignalRSI:
		threshold := schema.Param("threshold", 30)
		rsi := indicators.RSI(closes, int(schema.Param("period", 14)))
		for i := range bars {
			signals[i] = !math.IsNaN(rsi[i]) && rsi[i] < threshold
		}
	case strategy.SignalMACD:
		macd, signalLine, _ := indicators.MACD(closes)
		for i := 1; i < len(bars); i++ {
			if math.IsNaN(macd[i]) || math.IsNaN(signalLine[i]) ||
				math.IsNaN(macd[i-1]) || math.IsNaN(signalLine[i-1]) {
				continue
			}
			signals[i] = macd[i] > signalLine[i] && macd[i-1] <= signalLine[i-1]
		}
	case strategy.SignalSentiment:
		threshold := schema.Param("threshold", 0.3)
		source := schema.SentimentSource()
		for i, b := range bars {
			score, err := run.Resolve(ctx, asset, b.Date, source)
			if err != nil {
				logx.WithContext(ctx).Errorf("backtest: sentiment lookup %s %s: %v",
					asset, b.Date.Format("2006-01-02"), err)
				continue
			}
			// nil means no data: the gate simply does not trigger.
			signals[i] = score != nil && score.Value >= threshold
		}
	case strategy.SignalVolume:
		threshold := schema.Param("threshold", 1.5)
		ratio := indicators.VolumeRatio(volumes, int(schema.Param("period", 20)))
		for i := range bars {
			signals[i] = !math.IsNaN(ratio[i]) && ratio[i] > threshold
		}
	case strategy.SignalPriceAction:
		sma := indicators.SMA(closes, int(schema.Param("period", 20)))
		for i := 1; i < len(bars); i++ {
			if math.IsNaN(sma[i]) || math.IsNaN(sma[i-1]) {
				continue
			}
			signals[i] = closes[i] > sma[i] && closes[i-1] <= sma[i-1]
		}
	default:
		logx.Infof("backtest: entry signal %q is not evaluable, no entries will fire", schema.Entry.Signal)
	}
	return signals
}

// customExitSignals evaluates the strategy's custom_exit expression. Only
// the known expressions fire; anything else is logged and stays false.
func customExitSignals(schema *strategy.Schema, bars []marketdata.Bar) []bool {
	exits := make([]bool, len(bars))
	expr := schema.Exit.CustomExit
	if expr == "" {
		return exits
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	switch expr {
	case "macd_bearish_cross":
		macd, signalLine, _ := indicators.MACD(closes)
		for i := 1; i < len(bars); i++ {
			if math.IsNaN(macd[i]) || math.IsNaN(signalLine[i]) ||
				math.IsNaN(macd[i-1]) || math.IsNaN(signalLine[i-1]) {
				continue
			}
			exits[i] = macd[i] < signalLine[i] && macd[i-1] >= signalLine[i-1]
		}
	case "rsi_overbought":
		rsi := indicators.RSI(closes, 14)
		for i := range bars {
			exits[i] = !math.IsNaN(rsi[i]) && rsi[i] > 70
		}
	default:
		logx.Infof("backtest: unknown custom exit %q ignored", expr)
	}
	return exits
}

func orderedAssets(universe []string, series map[string][]marketdata.Bar) []string {
	out := make([]string, 0, len(series))
	for _, asset := range universe {
		if _, ok := series[asset]; ok {
			out = append(out, asset)
		}
	}
	return out
}

// buyHoldReturnPct is the unmanaged benchmark: each surviving asset held
// for the whole window, equal-weighted.
func buyHoldReturnPct(curves map[string]*assetRun) float64 {
	if len(curves) == 0 {
		return 0
	}
	var sum float64
	for _, ar := range curves {
		sum += ar.buyHoldPct
	}
	return sum / float64(len(curves))
}

// mergeEquityCurves combines per-asset curves over the union of their
// trading days, carrying each asset's last known value forward across days
// it did not trade. idleCash is capital never allocated to any asset.
func mergeEquityCurves(curves map[string]*assetRun, idleCash float64) []EquityPoint {
	dateSet := make(map[string]time.Time)
	for _, ar := range curves {
		for _, d := range ar.dates {
			dateSet[d.Format("2006-01-02")] = d
		}
	}
	days := make([]string, 0, len(dateSet))
	for key := range dateSet {
		days = append(days, key)
	}
	sort.Strings(days)

	cursors := make(map[string]int, len(curves))
	history := make([]EquityPoint, 0, len(days))
	for _, key := range days {
		day := dateSet[key]
		total := idleCash
		for asset, ar := range curves {
			i := cursors[asset]
			for i < len(ar.dates) && !ar.dates[i].After(day) {
				i++
			}
			cursors[asset] = i
			if i == 0 {
				// Asset has not started trading yet; its capital is intact.
				total += ar.initial
				continue
			}
			total += ar.values[i-1]
		}
		history = append(history, EquityPoint{Date: key, TotalValue: total})
	}
	return history
}
