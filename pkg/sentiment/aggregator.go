package sentiment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

// Aggregator routes sentiment lookups to the providers of one category and
// owns the per-provider rate limiters. Limiters live as long as the
// aggregator (provider quotas span runs); caches do not — each run carries
// its own RunCache via NewRun.
type Aggregator struct {
	categories map[string][]Provider
	limiters   map[string]*WindowLimiter
}

// NewAggregator groups providers by their declared category. Provider order
// within a category is preserved: it is the in-category fallback order.
func NewAggregator(providers []Provider, limits map[string]*WindowLimiter) *Aggregator {
	agg := &Aggregator{
		categories: make(map[string][]Provider),
		limiters:   make(map[string]*WindowLimiter),
	}
	for _, p := range providers {
		category := strings.ToLower(strings.TrimSpace(p.Category()))
		agg.categories[category] = append(agg.categories[category], p)
		if limiter, ok := limits[p.Name()]; ok {
			agg.limiters[p.Name()] = limiter
		}
	}
	return agg
}

// Categories lists the configured category names, sorted.
func (a *Aggregator) Categories() []string {
	out := make([]string, 0, len(a.categories))
	for c := range a.categories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// HasCategory reports whether any provider serves the given category.
func (a *Aggregator) HasCategory(source string) bool {
	_, ok := a.categories[strings.ToLower(strings.TrimSpace(source))]
	return ok
}

// Run binds the aggregator to one backtest run: a fresh cache plus the
// diagnostic counters the engine reports. Runs are safe for concurrent use
// during the prefetch phase.
type Run struct {
	agg   *Aggregator
	cache *RunCache

	mu       sync.Mutex
	inflight map[string]chan struct{}

	checked atomic.Int64
	found   atomic.Int64
}

// NewRun starts a run-scoped view with an empty cache.
func (a *Aggregator) NewRun() *Run {
	return &Run{agg: a, cache: NewRunCache(), inflight: make(map[string]chan struct{})}
}

// Resolve returns the sentiment score for (ticker, day) from the requested
// source category. Failures inside the category degrade to a nil score;
// data from a different category is never substituted.
func (r *Run) Resolve(ctx context.Context, ticker string, day time.Time, source string) (*Score, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	providers, ok := r.agg.categories[source]
	if !ok {
		return nil, fmt.Errorf("sentiment: unknown source category %q", source)
	}

	// Concurrent resolves of one key collapse into a single provider fetch;
	// everyone else waits for the fetcher and reads the cache. Keeps the
	// checked/found counters counting distinct keys.
	key := CacheKey(ticker, day, source)
	for {
		if score, hit := r.cache.Lookup(key); hit {
			return score, nil
		}
		r.mu.Lock()
		if done, waiting := r.inflight[key]; waiting {
			r.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		r.inflight[key] = done
		r.mu.Unlock()
		defer func() {
			r.mu.Lock()
			delete(r.inflight, key)
			r.mu.Unlock()
			close(done)
		}()
		break
	}
	r.checked.Add(1)

	var result *Score
	for _, provider := range providers {
		if limiter := r.agg.limiters[provider.Name()]; limiter != nil {
			if err := limiter.Acquire(ctx); err != nil {
				// Run deadline hit while queued behind the quota; treat as
				// missing data for this key.
				logx.WithContext(ctx).Infof("sentiment: %s limiter wait aborted ticker=%s day=%s: %v",
					provider.Name(), ticker, day.Format("2006-01-02"), err)
				break
			}
		}
		score, err := provider.GetSentiment(ctx, ticker, day)
		if err != nil {
			// Provider trouble is non-fatal. Another provider of the SAME
			// category may be tried; other categories may not.
			logx.WithContext(ctx).Errorf("sentiment: provider %s (%s) failed ticker=%s day=%s: %v",
				provider.Name(), source, ticker, day.Format("2006-01-02"), err)
			continue
		}
		if score != nil {
			result = score
			break
		}
	}

	if result != nil {
		r.found.Add(1)
	}
	r.cache.Store(key, result)
	return result, nil
}

// Cache exposes the run's cache, mainly for diagnostic snapshots.
func (r *Run) Cache() *RunCache {
	return r.cache
}

// Stats returns the diagnostic counters: how many distinct keys were
// checked and how many produced data.
func (r *Run) Stats() (checked, found int) {
	return int(r.checked.Load()), int(r.found.Load())
}
