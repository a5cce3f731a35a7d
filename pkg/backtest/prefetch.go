package backtest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/bhargavap21/mobius-sub001/pkg/marketdata"
	"github.com/bhargavap21/mobius-sub001/pkg/sentiment"
)

// fetchPrices retrieves daily bars for every asset concurrently. Assets
// that yield no data are dropped with a warning; the caller decides whether
// an empty map is fatal.
func (e *Engine) fetchPrices(ctx context.Context, assets []string, from, to time.Time) map[string][]marketdata.Bar {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		sem    = make(chan struct{}, e.workers)
		series = make(map[string][]marketdata.Bar, len(assets))
	)
	for _, asset := range assets {
		wg.Add(1)
		sem <- struct{}{}
		go func(asset string) {
			defer wg.Done()
			defer func() { <-sem }()
			bars, err := e.prices.DailyHistory(ctx, asset, from, to)
			if err != nil {
				if errors.Is(err, marketdata.ErrNoData) {
					logx.WithContext(ctx).Infof("backtest: no bars for %s in [%s, %s], dropping asset",
						asset, from.Format("2006-01-02"), to.Format("2006-01-02"))
				} else {
					logx.WithContext(ctx).Errorf("backtest: price history for %s: %v, dropping asset", asset, err)
				}
				return
			}
			if len(bars) == 0 {
				return
			}
			sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
			mu.Lock()
			series[asset] = bars
			mu.Unlock()
		}(asset)
	}
	wg.Wait()
	return series
}

// prefetchSentiment warms the run cache for every (asset, day) key the bar
// loop will read, so the deterministic pass only sees cache hits. The phase
// is bounded by the engine's fetch timeout; keys it did not reach stay
// uncached and resolve to "no data" during the loop.
func (e *Engine) prefetchSentiment(ctx context.Context, run *sentiment.Run, series map[string][]marketdata.Bar, source string) {
	fctx := ctx
	if e.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, e.fetchTimeout)
		defer cancel()
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.workers)
	for asset, bars := range series {
		for _, bar := range bars {
			wg.Add(1)
			sem <- struct{}{}
			go func(asset string, day time.Time) {
				defer wg.Done()
				defer func() { <-sem }()
				if _, err := run.Resolve(fctx, asset, day, source); err != nil {
					logx.WithContext(ctx).Errorf("backtest: prefetch sentiment %s %s: %v",
						asset, day.Format("2006-01-02"), err)
				}
			}(asset, bar.Date)
		}
	}
	wg.Wait()

	checked, found := run.Stats()
	logx.WithContext(ctx).Infof("backtest: sentiment prefetch complete source=%s checked=%d found=%d",
		source, checked, found)
}
