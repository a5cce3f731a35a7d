// Package sentiment resolves daily sentiment scores for tickers from
// external providers, with per-provider rate limiting, run-scoped caching,
// and strict category isolation: a strategy that asks for "reddit" data
// never silently receives scores derived from another category.
package sentiment

import (
	"context"
	"time"
)

// Score is an aggregated sentiment observation for one (ticker, day) pair.
// Value is the arithmetic mean over contributing items in [-1, 1]; Items is
// how many unique items contributed. A nil *Score means "no data found",
// which is deliberately distinct from a neutral 0.0.
type Score struct {
	Value float64 `json:"value" msgpack:"value"`
	Items int     `json:"items" msgpack:"items"`
}

// Provider exposes one sentiment capability for a backing service.
type Provider interface {
	// Name identifies the concrete provider, e.g. "finnhub".
	Name() string
	// Category names the data source class this provider belongs to,
	// e.g. "reddit", "news", "social".
	Category() string
	// GetSentiment returns the aggregate score for the ticker within the
	// given day's 24-hour window, or nil when no data was found.
	GetSentiment(ctx context.Context, ticker string, day time.Time) (*Score, error)
}

// Standard category names.
const (
	CategoryReddit = "reddit"
	CategoryNews   = "news"
	CategorySocial = "social"
)

// dayWindow returns the [start, end) bounds of a day's 24-hour window in UTC.
func dayWindow(day time.Time) (time.Time, time.Time) {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
